package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/codec"
	"github.com/poiesic/semsearch/core"
)

// Item is one entry of the index build input.
type Item struct {
	Identifier string `json:"identifier"`
	Content    string `json:"content"`
}

// Builder embeds item contents and packs them into a quantized blob plus a
// metadata sidecar. Embedding runs concurrently on a worker pool; item order
// in the output matches input order regardless of completion order, so
// identical input always yields an identical blob.
type Builder struct {
	embedder   ai.Embedder
	pool       *ants.Pool
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(b *Builder) error {
		if size < 1 {
			size = 1
		}
		if b.pool != nil {
			b.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		b.pool = pool
		return nil
	}
}

// WithRetry sets the retry budget for failed embedding calls.
// Default is 3 attempts with a 1s base delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(b *Builder) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		b.maxRetries = maxAttempts
		b.retryDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates an index builder.
func NewBuilder(embedder ai.Embedder, opts ...Option) (*Builder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		embedder:   embedder,
		pool:       pool,
		maxRetries: 3,
		retryDelay: time.Second,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}

	return b, nil
}

// Release frees the worker pool.
func (b *Builder) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}

// Build embeds every item and encodes the result. It returns the blob and
// the metadata sidecar that pairs identifiers and contents with the encoded
// vectors, in the same order.
func (b *Builder) Build(ctx context.Context, items []Item) ([]byte, []codec.Meta, error) {
	batch, err := b.Embed(ctx, items)
	if err != nil {
		return nil, nil, err
	}

	blob, err := codec.Encode(batch)
	if err != nil {
		return nil, nil, err
	}

	meta := make([]codec.Meta, len(batch))
	for i, entry := range batch {
		meta[i] = codec.Meta{Identifier: entry.Identifier, Content: entry.Content}
	}

	b.logger.Info("index built", "items", len(items), "dim", batch.Dim(), "bytes", len(blob))
	return blob, meta, nil
}

// Embed turns items into an embedding batch, preserving input order.
func (b *Builder) Embed(ctx context.Context, items []Item) (core.EmbeddingBatch, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	batch := make(core.EmbeddingBatch, len(items))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i, item := range items {
		i, item := i, item
		wg.Add(1)
		submitErr := b.pool.Submit(func() {
			defer wg.Done()

			var vec []float32
			err := retryWithBackoff(ctx, func() error {
				var embedErr error
				vec, embedErr = b.embedder.EmbedText(ctx, item.Content)
				return embedErr
			}, b.maxRetries, b.retryDelay)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.logger.Error("failed to embed item", "identifier", item.Identifier, "err", err)
				if firstErr == nil {
					firstErr = fmt.Errorf("embedding %q: %w", item.Identifier, err)
				}
				return
			}
			batch[i] = &core.Entry{
				Identifier: item.Identifier,
				Content:    item.Content,
				Vector:     vec,
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
		}
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return batch, nil
}
