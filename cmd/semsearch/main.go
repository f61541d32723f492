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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/semsearch"
	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/ai/openai"
	"github.com/poiesic/semsearch/artifact"
	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/index"
)

func main() {
	app := &cli.App{
		Name:  "semsearch",
		Usage: "Client-side semantic search over prebuilt embedding indexes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Embed a JSON item set into a quantized blob and metadata sidecar",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "items",
						Aliases:  []string{"i"},
						Usage:    "Path to JSON array of {identifier, content} items",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output path for the embedding blob",
						Value:   "index.embd",
					},
					&cli.StringFlag{
						Name:  "meta-out",
						Usage: "Output path for the metadata sidecar",
						Value: "index.meta.json",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of concurrent embedding requests",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embeddings",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run a one-shot query against a prebuilt index",
				ArgsUsage: "QUERY...",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "blob",
						Aliases:  []string{"b"},
						Usage:    "Path to the embedding blob",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "meta",
						Usage: "Path to the metadata sidecar (defaults to <blob>.meta.json)",
					},
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "BadgerDB directory for the store (in-memory if empty)",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity for a match",
						Value: float64(core.DefaultMatchThreshold),
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: core.DefaultLimit,
					},
				},
			},
			{
				Name:      "fetch",
				Usage:     "Download an index artifact into the local cache",
				ArgsUsage: "URL",
				Action:    fetchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "cache-dir",
						Usage: "Directory for cached artifacts",
						Value: defaultCacheDir(),
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func indexCommand(c *cli.Context) error {
	ctx := context.Background()

	data, err := os.ReadFile(c.String("items"))
	if err != nil {
		return fmt.Errorf("failed to read items file: %w", err)
	}

	items, err := index.DecodeItems(data)
	if err != nil {
		return fmt.Errorf("failed to parse items file: %w", err)
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	builder, err := index.NewBuilder(embedder,
		index.WithPoolSize(c.Int("pool-size")),
		index.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
	)
	if err != nil {
		return fmt.Errorf("failed to create index builder: %w", err)
	}
	defer builder.Release()

	fmt.Fprintf(os.Stderr, "Items: %d\n", len(items))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	blob, meta, err := builder.Build(ctx, items)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	metaData, err := index.EncodeMeta(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if err := os.WriteFile(c.String("out"), blob, 0o644); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := os.WriteFile(c.String("meta-out"), metaData, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes) and %s (%d entries)\n",
		c.String("out"), len(blob), c.String("meta-out"), len(meta))
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() == 0 {
		return fmt.Errorf("query text is required")
	}
	query := strings.Join(c.Args().Slice(), " ")

	metaPath := c.String("meta")
	if metaPath == "" {
		metaPath = c.String("blob") + ".meta.json"
	}

	client, err := semsearch.NewClient(
		semsearch.WithAIConfig(ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
		)),
		semsearch.WithStorePath(c.String("db")),
		semsearch.WithPrebuiltIndex(c.String("blob"), metaPath),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	results, err := client.Search(ctx, core.SearchQuery{
		Text:           query,
		MatchThreshold: float32(c.Float64("threshold")),
		Limit:          c.Int("limit"),
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: %s '%s' [%0.3f]\n", i, hit.Identifier, hit.Content, hit.Distance)
	}
	return nil
}

func fetchCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("exactly one artifact URL is required")
	}
	url := c.Args().First()

	fetcher := artifact.NewFetcher(artifact.WithCacheDir(c.String("cache-dir")))
	data, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Fetched %d bytes, cached at %s\n", len(data), fetcher.CachedPath(data))
	return nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + "/semsearch"
	}
	return ".semsearch-cache"
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
