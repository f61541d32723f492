// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package semsearch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/ai/openai"
	"github.com/poiesic/semsearch/artifact"
	"github.com/poiesic/semsearch/codec"
	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/index"
	"github.com/poiesic/semsearch/infer"
	"github.com/poiesic/semsearch/search"
	"github.com/poiesic/semsearch/storage"
	"github.com/poiesic/semsearch/storage/badger"
)

// Client is the explicit context object of a search deployment: it owns the
// embedder, the lazily-loaded vector store, and the artifact plumbing, and
// hands them to coordinators by injection instead of through package-level
// singletons. Construct one per process and pass it around.
type Client struct {
	embedder ai.Embedder
	fetcher  *artifact.Fetcher
	logger   *slog.Logger

	storePath string
	inMemory  bool
	blobPath  string
	metaPath  string
	blobURL   string
	metaURL   string

	storeOnce sync.Once
	store     storage.VectorStore
	storeErr  error
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	aiConfig *ai.Config
	embedder ai.Embedder
	fetcher  *artifact.Fetcher

	storePath string
	inMemory  bool
	blobPath  string
	metaPath  string
	blobURL   string
	metaURL   string
}

// WithAIConfig sets the embedding service configuration used to construct
// the default OpenAI-compatible embedder.
func WithAIConfig(cfg *ai.Config) ClientOption {
	return func(o *clientOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithEmbedder injects an embedder directly, bypassing the AI config.
func WithEmbedder(embedder ai.Embedder) ClientOption {
	return func(o *clientOptions) {
		o.embedder = embedder
	}
}

// WithFetcher injects a custom artifact fetcher.
func WithFetcher(fetcher *artifact.Fetcher) ClientOption {
	return func(o *clientOptions) {
		if fetcher != nil {
			o.fetcher = fetcher
		}
	}
}

// WithStorePath sets the on-disk store location. Default is an in-memory store.
func WithStorePath(path string) ClientOption {
	return func(o *clientOptions) {
		o.storePath = path
		o.inMemory = path == ""
	}
}

// WithPrebuiltIndex seeds the store from local blob and metadata files on
// first load.
func WithPrebuiltIndex(blobPath, metaPath string) ClientOption {
	return func(o *clientOptions) {
		o.blobPath = blobPath
		o.metaPath = metaPath
	}
}

// WithRemoteIndex seeds the store from fetched blob and metadata artifacts
// on first load.
func WithRemoteIndex(blobURL, metaURL string) ClientOption {
	return func(o *clientOptions) {
		o.blobURL = blobURL
		o.metaURL = metaURL
	}
}

// NewClient creates a client. No store is opened and no service is
// contacted until the first operation needs it.
func NewClient(opts ...ClientOption) (*Client, error) {
	options := &clientOptions{
		aiConfig: ai.DefaultConfig(),
		inMemory: true,
	}
	for _, opt := range opts {
		opt(options)
	}

	embedder := options.embedder
	if embedder == nil {
		var err error
		embedder, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	fetcher := options.fetcher
	if fetcher == nil {
		fetcher = artifact.NewFetcher()
	}

	return &Client{
		embedder:  embedder,
		fetcher:   fetcher,
		logger:    slog.Default(),
		storePath: options.storePath,
		inMemory:  options.inMemory,
		blobPath:  options.blobPath,
		metaPath:  options.metaPath,
		blobURL:   options.blobURL,
		metaURL:   options.metaURL,
	}, nil
}

// Store returns the vector store, loading and seeding it on first use.
// The load happens exactly once; concurrent callers share one result.
func (c *Client) Store(ctx context.Context) (storage.VectorStore, error) {
	c.storeOnce.Do(func() {
		c.store, c.storeErr = c.openStore(ctx)
	})
	return c.store, c.storeErr
}

func (c *Client) openStore(ctx context.Context) (storage.VectorStore, error) {
	store, err := badger.OpenStore(c.storePath, c.inMemory)
	if err != nil {
		return nil, err
	}

	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}

	if err := c.seedStore(ctx, store); err != nil {
		store.Close()
		return nil, err
	}

	return store, nil
}

// seedStore loads the configured prebuilt index, if any, into the store.
func (c *Client) seedStore(ctx context.Context, store storage.VectorStore) error {
	var (
		blobData []byte
		metaData []byte
		err      error
	)

	switch {
	case c.blobPath != "":
		if blobData, err = artifact.ReadFile(c.blobPath); err != nil {
			return err
		}
		if metaData, err = artifact.ReadFile(c.metaPath); err != nil {
			return err
		}
	case c.blobURL != "":
		if blobData, err = c.fetcher.Fetch(ctx, c.blobURL); err != nil {
			return err
		}
		if metaData, err = c.fetcher.Fetch(ctx, c.metaURL); err != nil {
			return err
		}
	default:
		return nil
	}

	meta, err := index.DecodeMeta(metaData)
	if err != nil {
		return err
	}

	batch, err := codec.Decode(blobData, meta)
	if err != nil {
		return err
	}

	if _, err := store.InsertEmbeddings(ctx, batch); err != nil {
		return err
	}

	c.logger.Info("seeded store from prebuilt index", "entries", len(batch))
	return nil
}

// Index embeds the items, round-trips them through the codec exactly as the
// offline build artifacts would, and inserts the result into the store.
func (c *Client) Index(ctx context.Context, items []index.Item, opts ...index.Option) error {
	builder, err := index.NewBuilder(c.embedder, opts...)
	if err != nil {
		return err
	}
	defer builder.Release()

	blob, meta, err := builder.Build(ctx, items)
	if err != nil {
		return err
	}

	batch, err := codec.Decode(blob, meta)
	if err != nil {
		return err
	}

	store, err := c.Store(ctx)
	if err != nil {
		return err
	}

	_, err = store.InsertEmbeddings(ctx, batch)
	return err
}

// Search embeds the query text and runs a one-shot nearest-neighbor query.
// Interactive sessions should use NewSession instead, which debounces input
// and tolerates the store still loading.
func (c *Client) Search(ctx context.Context, query core.SearchQuery) ([]*core.SearchResult, error) {
	query.Normalize()

	vec, err := c.embedder.EmbedText(ctx, query.Text)
	if err != nil {
		return nil, err
	}

	store, err := c.Store(ctx)
	if err != nil {
		return nil, err
	}

	return store.SearchEmbeddings(ctx, vec, query.MatchThreshold, query.Limit)
}

// NewSession builds an interactive search session: an inference worker
// around the client's embedder and a coordinator wired to the client's lazy
// store load. The caller owns the session and must Destroy it; the store
// stays with the client and survives the session.
func (c *Client) NewSession(opts ...search.Option) (*search.Coordinator, error) {
	worker, err := infer.NewWorker(c.embedder)
	if err != nil {
		return nil, err
	}

	coordinator, err := search.NewCoordinator(c.Store, worker, opts...)
	if err != nil {
		worker.Close()
		return nil, err
	}

	return coordinator, nil
}

// Close releases the store if it was loaded.
func (c *Client) Close() error {
	// Mark the store as consumed so a late Store call cannot reopen it.
	c.storeOnce.Do(func() {
		c.storeErr = storage.ErrStoreClosed
	})
	if c.store != nil {
		err := c.store.Close()
		c.store = nil
		return err
	}
	return nil
}
