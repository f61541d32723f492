package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInitSchema(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InitSchema(ctx))

	t.Run("idempotent", func(t *testing.T) {
		assert.NoError(t, store.InitSchema(ctx))
		assert.NoError(t, store.InitSchema(ctx))
	})

	t.Run("fails on closed store", func(t *testing.T) {
		closed, err := NewMemoryStore()
		require.NoError(t, err)
		require.NoError(t, closed.Close())

		err = closed.InitSchema(ctx)
		assert.ErrorIs(t, err, storage.ErrStoreInit)
	})
}

func TestInsertEmbeddings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.InitSchema(ctx))

	t.Run("assigns content-derived IDs", func(t *testing.T) {
		batch := core.EmbeddingBatch{
			{Identifier: "📣", Content: "megaphone shout", Vector: []float32{0.6, 0.8}},
			{Identifier: "🔔", Content: "bell ring", Vector: []float32{0.8, 0.6}},
		}
		stored, err := store.InsertEmbeddings(ctx, batch)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.NotZero(t, stored[0].Id)
		assert.NotZero(t, stored[1].Id)
		assert.NotEqual(t, stored[0].Id, stored[1].Id)
	})

	t.Run("rejects empty batch", func(t *testing.T) {
		_, err := store.InsertEmbeddings(ctx, nil)
		assert.ErrorIs(t, err, core.ErrEmptyBatch)
	})

	t.Run("rejects mismatched dimensions", func(t *testing.T) {
		batch := core.EmbeddingBatch{
			{Identifier: "a", Content: "a", Vector: []float32{1, 0}},
			{Identifier: "b", Content: "b", Vector: []float32{1}},
		}
		_, err := store.InsertEmbeddings(ctx, batch)
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	})

	t.Run("reinsert of identical content is stable", func(t *testing.T) {
		batch := core.EmbeddingBatch{
			{Identifier: "📣", Content: "megaphone shout", Vector: []float32{0.6, 0.8}},
		}
		first, err := store.InsertEmbeddings(ctx, batch)
		require.NoError(t, err)

		again := core.EmbeddingBatch{
			{Identifier: "📣", Content: "megaphone shout", Vector: []float32{0.6, 0.8}},
		}
		second, err := store.InsertEmbeddings(ctx, again)
		require.NoError(t, err)
		assert.Equal(t, first[0].Id, second[0].Id)
	})
}

func TestSearchEmbeddings(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, store *Store, batch core.EmbeddingBatch) {
		t.Helper()
		require.NoError(t, store.InitSchema(ctx))
		_, err := store.InsertEmbeddings(ctx, batch)
		require.NoError(t, err)
	}

	t.Run("orders by distance ascending", func(t *testing.T) {
		store := newTestStore(t)
		seed(t, store, core.EmbeddingBatch{
			{Identifier: "far", Content: "far", Vector: []float32{0.62, 0.785}},
			{Identifier: "near", Content: "near", Vector: []float32{1, 0}},
			{Identifier: "mid", Content: "mid", Vector: []float32{0.95, 0.312}},
		})

		results, err := store.SearchEmbeddings(ctx, []float32{1, 0}, 0.5, 10)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "near", results[0].Identifier)
		assert.Equal(t, "mid", results[1].Identifier)
		assert.Equal(t, "far", results[2].Identifier)
		assert.Less(t, results[0].Distance, results[1].Distance)
	})

	t.Run("deduplicates by identifier keeping nearest", func(t *testing.T) {
		store := newTestStore(t)
		// Two variants of one identifier at similarity 0.9 and 0.7.
		seed(t, store, core.EmbeddingBatch{
			{Identifier: "📣", Content: "variant near", Vector: []float32{0.9, 0.4358}},
			{Identifier: "📣", Content: "variant far", Vector: []float32{0.7, 0.7141}},
			{Identifier: "🔔", Content: "bell", Vector: []float32{0.99, 0.141}},
		})

		results, err := store.SearchEmbeddings(ctx, []float32{1, 0}, 0.5, 10)
		require.NoError(t, err)
		require.Len(t, results, 2)

		var megaphone *core.SearchResult
		for _, r := range results {
			if r.Identifier == "📣" {
				require.Nil(t, megaphone, "identifier returned twice")
				megaphone = r
			}
		}
		require.NotNil(t, megaphone)
		assert.Equal(t, "variant near", megaphone.Content)
		assert.InDelta(t, -0.9, float64(megaphone.Distance), 1e-4)
	})

	t.Run("threshold filters weak matches", func(t *testing.T) {
		store := newTestStore(t)
		seed(t, store, core.EmbeddingBatch{
			{Identifier: "on", Content: "on", Vector: []float32{0.95, 0.312}},
			{Identifier: "off", Content: "off", Vector: []float32{0.1, 0.995}},
		})

		results, err := store.SearchEmbeddings(ctx, []float32{1, 0}, 0.8, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "on", results[0].Identifier)
	})

	t.Run("limit truncates after sorting", func(t *testing.T) {
		store := newTestStore(t)
		seed(t, store, core.EmbeddingBatch{
			{Identifier: "a", Content: "a", Vector: []float32{1, 0}},
			{Identifier: "b", Content: "b", Vector: []float32{0.99, 0.141}},
			{Identifier: "c", Content: "c", Vector: []float32{0.97, 0.243}},
		})

		results, err := store.SearchEmbeddings(ctx, []float32{1, 0}, 0.5, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].Identifier)
		assert.Equal(t, "b", results[1].Identifier)
	})

	t.Run("invalid query parameters", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.InitSchema(ctx))

		_, err := store.SearchEmbeddings(ctx, nil, 0.8, 10)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)

		_, err = store.SearchEmbeddings(ctx, []float32{1, 0}, 0.8, 0)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})

	t.Run("query dimension mismatch", func(t *testing.T) {
		store := newTestStore(t)
		seed(t, store, core.EmbeddingBatch{
			{Identifier: "a", Content: "a", Vector: []float32{1, 0}},
		})

		_, err := store.SearchEmbeddings(ctx, []float32{1, 0, 0}, 0.5, 10)
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	})

	t.Run("empty store returns no results", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.InitSchema(ctx))

		results, err := store.SearchEmbeddings(ctx, []float32{1, 0}, 0.5, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
