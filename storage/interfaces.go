package storage

import (
	"context"

	"github.com/poiesic/semsearch/core"
)

// VectorStore holds (id, identifier, content, embedding) rows and answers
// nearest-neighbor queries over the embeddings. Implementations must be
// thread-safe and support concurrent access.
type VectorStore interface {
	// InitSchema prepares storage for embedding rows. It is idempotent;
	// calling it on an already-initialized store is a no-op. A failure is
	// fatal to the caller: it means the backing engine could not start, and
	// it wraps ErrStoreInit.
	InitSchema(ctx context.Context) error

	// InsertEmbeddings stores the batch as rows. Each row's content is the
	// exact string that was embedded, so queries and stored text share one
	// encoding path. Entries with Id 0 get a content-derived ID. Returns the
	// stored entries with IDs populated.
	InsertEmbeddings(ctx context.Context, batch core.EmbeddingBatch) ([]*core.Entry, error)

	// SearchEmbeddings ranks every stored row against the query vector by
	// negated inner-product distance (distance = -dot; for unit vectors this
	// orders like cosine distance). Rows with distance < -matchThreshold are
	// kept, de-duplicated by identifier keeping only the nearest row per
	// identifier, sorted by distance ascending, and truncated to limit.
	SearchEmbeddings(ctx context.Context, vector []float32, matchThreshold float32, limit int) ([]*core.SearchResult, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
