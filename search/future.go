package search

import (
	"context"
	"sync"

	"github.com/poiesic/semsearch/storage"
)

// storeFuture is a one-shot broadcast cell for the store handle. Any number
// of waiters can block on Await; Fulfill releases them all and every later
// Await returns immediately. It is never fulfilled with a failure: a store
// that failed to load leaves the future pending forever, which is the
// documented trade-off (waiters hang rather than crash).
type storeFuture struct {
	ch    chan struct{}
	once  sync.Once
	store storage.VectorStore
}

func newStoreFuture() *storeFuture {
	return &storeFuture{ch: make(chan struct{})}
}

// Fulfill assigns the store exactly once. Later calls are ignored.
func (f *storeFuture) Fulfill(store storage.VectorStore) {
	f.once.Do(func() {
		f.store = store
		close(f.ch)
	})
}

// Await blocks until the future is fulfilled or the context ends.
func (f *storeFuture) Await(ctx context.Context) (storage.VectorStore, error) {
	select {
	case <-f.ch:
		return f.store, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
