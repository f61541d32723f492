package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/infer"
	"github.com/poiesic/semsearch/storage"
)

// DefaultDebounceDelay is how long Classify waits for the keystroke burst to
// settle before dispatching to the worker.
const DefaultDebounceDelay = 150 * time.Millisecond

// StoreLoader produces the vector store, typically by fetching and decoding
// a prebuilt index. It runs once per session, in the background, started by
// Initialize. A failure is fatal for the store (storage.ErrStoreInit): the
// coordinator logs it and leaves dbReady false permanently. No retry.
type StoreLoader func(ctx context.Context) (storage.VectorStore, error)

// InferenceWorker is the slice of infer.Worker the coordinator needs.
type InferenceWorker interface {
	Send(req infer.Request) error
	Messages() <-chan infer.Message
	Close() error
}

// State is a snapshot of the coordinator's UI-facing state. Model and store
// readiness are independent flags, not a linear phase: the two loads finish
// in unpredictable relative order.
type State struct {
	ModelReady  bool
	DbReady     bool
	IsSearching bool
	Matched     []string // ordered identifiers; nil until a search completes
}

// Coordinator orchestrates a search session. Initialize starts the store
// load and the model preload concurrently; Classify debounces user text into
// worker requests; worker messages drive the state machine. All state
// mutations happen in serial critical sections: worker messages are handled
// one at a time by a single goroutine, and the only suspension points
// (awaiting the store future, running the store query) sit between
// mutations, never inside one.
type Coordinator struct {
	loader   StoreLoader
	worker   InferenceWorker
	debounce time.Duration
	query    core.SearchQuery
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	timer      *time.Timer
	generation uint64              // bumped by every Classify; stale timers check it
	store      storage.VectorStore // cached handle once the future resolves
	future     *storeFuture

	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithDebounceDelay sets the classify debounce window.
func WithDebounceDelay(d time.Duration) Option {
	return func(c *Coordinator) error {
		if d > 0 {
			c.debounce = d
		}
		return nil
	}
}

// WithMatchThreshold sets the minimum similarity for store queries.
func WithMatchThreshold(threshold float32) Option {
	return func(c *Coordinator) error {
		c.query.MatchThreshold = threshold
		return nil
	}
}

// WithLimit sets the maximum number of matched identifiers.
func WithLimit(limit int) Option {
	return func(c *Coordinator) error {
		c.query.Limit = limit
		return nil
	}
}

// NewCoordinator creates a coordinator. The store is not loaded and the
// worker is not contacted until Initialize.
func NewCoordinator(loader StoreLoader, worker InferenceWorker, opts ...Option) (*Coordinator, error) {
	if loader == nil {
		return nil, ErrStoreLoaderRequired
	}
	if worker == nil {
		return nil, ErrWorkerRequired
	}

	c := &Coordinator{
		loader:   loader,
		worker:   worker,
		debounce: DefaultDebounceDelay,
		logger:   slog.Default(),
	}
	c.query.Normalize()

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Initialize starts the session: it creates the single store-ready future,
// begins the store load in the background, sends a preload instruction to
// the worker, and starts consuming worker messages. The store load and the
// model preload deliberately run concurrently; their relative completion
// order is unknown and the coordinator is correct either way.
//
// Callers invoke Initialize once per session. A repeat call is a no-op
// rather than a reset, so a caller slip cannot corrupt state.
func (c *Coordinator) Initialize(ctx context.Context) {
	c.mu.Lock()
	if c.future != nil {
		c.mu.Unlock()
		c.logger.Warn("coordinator initialized more than once")
		return
	}
	c.future = newStoreFuture()
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.loopDone = make(chan struct{})
	future := c.future
	c.mu.Unlock()

	go c.loadStore(future)

	go func() {
		if err := c.worker.Send(infer.PreloadRequest{}); err != nil {
			c.logger.Error("failed to send preload", "err", err)
		}
	}()

	go c.consumeMessages()
}

// loadStore runs the loader and fulfills the future on success. On failure
// the future stays pending and dbReady stays false for the rest of the
// session; any query already waiting keeps waiting. No retry or backoff.
func (c *Coordinator) loadStore(future *storeFuture) {
	store, err := c.loader(c.ctx)
	if err != nil {
		c.logger.Error("store load failed, search stays unavailable", "err", err)
		return
	}

	c.mu.Lock()
	c.state.DbReady = true
	c.mu.Unlock()

	future.Fulfill(store)
}

// Classify reacts to user text. Empty text clears the matches and the
// searching flag without contacting the worker. Otherwise the searching flag
// is raised immediately for responsive feedback, and the actual dispatch is
// debounced: a newer call within the window cancels the pending dispatch, so
// only the last text of a burst reaches the worker. At most one timer is
// outstanding at a time.
func (c *Coordinator) Classify(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Stopping the timer does not cover a callback that has already fired
	// and is waiting on the mutex; bumping the generation makes such a
	// callback a no-op when it gets the lock.
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	if text == "" {
		c.state.Matched = nil
		c.state.IsSearching = false
		return
	}

	c.state.IsSearching = true
	gen := c.generation
	c.timer = time.AfterFunc(c.debounce, func() {
		c.dispatch(text, gen)
	})
}

// dispatch forwards debounced text to the worker unless a newer Classify
// superseded the timer between its firing and this call taking the lock.
func (c *Coordinator) dispatch(text string, gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	// Once dispatched, a request cannot be cancelled; a stale result is
	// simply overwritten by whatever lands in matched next.
	if err := c.worker.Send(infer.EmbedRequest{Text: text}); err != nil {
		c.logger.Error("failed to dispatch query to worker", "err", err)
	}
}

// consumeMessages handles worker messages strictly in order. Because only
// this goroutine mutates state in response to messages, no two complete
// handlers ever overlap.
func (c *Coordinator) consumeMessages() {
	defer close(c.loopDone)
	for msg := range c.worker.Messages() {
		switch msg.Status {
		case infer.StatusInitiate:
			c.mu.Lock()
			c.state.ModelReady = false
			c.mu.Unlock()

		case infer.StatusReady:
			c.mu.Lock()
			c.state.ModelReady = true
			c.mu.Unlock()

		case infer.StatusComplete:
			c.handleComplete(msg)
		}
	}
}

// handleComplete finishes one query. This is the race the coordinator
// exists to fix: inference can finish before the store load does, and the
// answer is to await the store-ready future rather than fail the query.
func (c *Coordinator) handleComplete(msg infer.Message) {
	if msg.Embedding == nil {
		c.mu.Lock()
		c.state.IsSearching = false
		c.mu.Unlock()
		return
	}

	store := c.awaitStore()
	if store == nil {
		// Session destroyed while waiting.
		return
	}

	results, err := store.SearchEmbeddings(c.ctx, msg.Embedding, c.query.MatchThreshold, c.query.Limit)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Error("store query failed", "err", err)
		c.state.IsSearching = false
		return
	}

	matched := make([]string, len(results))
	for i, r := range results {
		matched[i] = r.Identifier
	}
	c.state.Matched = matched
	c.state.IsSearching = false
}

// awaitStore returns the cached store handle, or blocks on the future until
// the load completes. Returns nil only when the session context ends first.
func (c *Coordinator) awaitStore() storage.VectorStore {
	c.mu.Lock()
	store := c.store
	future := c.future
	c.mu.Unlock()
	if store != nil {
		return store
	}

	store, err := future.Await(c.ctx)
	if err != nil {
		return nil
	}

	c.mu.Lock()
	c.store = store
	c.mu.Unlock()
	return store
}

// State returns a snapshot of the coordinator state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.state
	if c.state.Matched != nil {
		snapshot.Matched = append([]string(nil), c.state.Matched...)
	}
	return snapshot
}

// Destroy ends the session: the pending debounce timer is cancelled, the
// session context is cancelled (releasing any handler waiting on the store
// future), and the worker is terminated so its inference resources are
// freed. The coordinator must not be used afterwards.
func (c *Coordinator) Destroy() error {
	c.mu.Lock()
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	cancel := c.cancel
	loopDone := c.loopDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	err := c.worker.Close()

	if loopDone != nil {
		<-loopDone
	}
	return err
}
