package badger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
)

// Store implements storage.VectorStore for BadgerDB. Rows are scanned
// exhaustively on search; the client-side indexes this serves are small
// enough that a flat scan beats maintaining an ANN structure.
type Store struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore creates a vector store on the given backend.
func NewStore(backend *Backend) *Store {
	return &Store{
		backend: backend,
		logger:  slog.Default().With("component", "badger-store"),
	}
}

// OpenStore opens a backend at filePath and creates a store on it.
// Any failure wraps storage.ErrStoreInit: the engine could not start, which
// is fatal to the caller.
func OpenStore(filePath string, inMemory bool) (*Store, error) {
	backend, err := OpenBackend(filePath, inMemory)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrStoreInit, err)
	}

	return NewStore(backend), nil
}

// InitSchema writes the schema marker. Badger needs no table setup, so the
// marker only records that the store has been initialized; repeat calls
// are no-ops.
func (s *Store) InitSchema(ctx context.Context) error {
	if s.backend.IsClosed() {
		return fmt.Errorf("%w: %w", storage.ErrStoreInit, storage.ErrStoreClosed)
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get([]byte(schemaMarker))
		if err == nil {
			return nil // already initialized
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		if err := tx.Set([]byte(schemaMarker), []byte{1}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStoreInit, err)
	}
	return nil
}

// InsertEmbeddings stores the batch as rows, assigning content-derived IDs
// to entries that do not carry one.
func (s *Store) InsertEmbeddings(ctx context.Context, batch core.EmbeddingBatch) ([]*core.Entry, error) {
	if err := core.ValidateBatch(batch); err != nil {
		return nil, err
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range batch {
			if entry.Id == 0 {
				entry.Id = core.IDFromContent(entry.Identifier + "\x00" + entry.Content)
			}
			key := makeEntryKey(entry.Id)
			value := storage.MarshalEntry(entry)
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return batch, nil
}

// SearchEmbeddings scans all rows, scores each by negated inner product,
// keeps rows closer than -matchThreshold, de-duplicates by identifier
// (nearest row wins), sorts ascending by distance, and truncates to limit.
//
// The de-duplication step is what keeps near-duplicate variants of one
// identifier from crowding out everything else in the result list.
func (s *Store) SearchEmbeddings(ctx context.Context, vector []float32, matchThreshold float32, limit int) ([]*core.SearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	// Nearest row per identifier.
	nearest := make(map[string]*core.SearchResult)

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			var entry *core.Entry
			err := item.Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if entry == nil || len(entry.Vector) == 0 {
				continue
			}
			if len(entry.Vector) != len(vector) {
				return fmt.Errorf("%w: stored dim %d, query dim %d",
					core.ErrDimensionMismatch, len(entry.Vector), len(vector))
			}

			distance := -dotProduct(vector, entry.Vector)
			if distance >= -matchThreshold {
				continue
			}

			if prev, ok := nearest[entry.Identifier]; ok && prev.Distance <= distance {
				continue
			}
			nearest[entry.Identifier] = &core.SearchResult{
				Identifier: entry.Identifier,
				Content:    entry.Content,
				Distance:   distance,
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	results := make([]*core.SearchResult, 0, len(nearest))
	for _, r := range nearest {
		results = append(results, r)
	}

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Distance < b.Distance {
			return -1
		}
		if a.Distance > b.Distance {
			return 1
		}
		// Stable order for equal distances.
		return strings.Compare(a.Identifier, b.Identifier)
	})

	if len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug("search complete", "candidates", len(nearest), "returned", len(results))

	return results, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// dotProduct calculates the dot product of two equal-length vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
