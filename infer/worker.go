package infer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/semsearch/ai"
)

// preloadProbe is the text embedded during preload to force the backend to
// load its model before the first real query.
const preloadProbe = "warmup"

// Worker executes embedding inference off the caller's control flow.
// Requests go in through Send; Messages delivers initiate/ready/complete
// events in order, one at a time. Inference runs on an ants pool so a slow
// backend never blocks the caller, and the pool bounds how many requests
// hit the backend concurrently.
//
// Close releases the pool and its workers; embedding backends hold
// substantial memory that is only reclaimed when the worker is terminated.
type Worker struct {
	embedder ai.Embedder
	pool     *ants.Pool
	logger   *slog.Logger

	requests chan Request
	messages chan Message
	done     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	jobs           sync.WaitGroup
	dispatcherDone chan struct{}
	closeOnce      sync.Once
	closeErr       error

	mu    sync.Mutex
	cache map[string][]float32
}

// Option configures a Worker.
type Option func(*workerOptions)

type workerOptions struct {
	poolSize int
	logger   *slog.Logger
}

// WithPoolSize sets how many inference jobs may run concurrently.
// Default is 1: embedding backends are a scarce resource and the debounce
// upstream already coalesces bursts.
func WithPoolSize(size int) Option {
	return func(o *workerOptions) {
		if size >= 1 {
			o.poolSize = size
		}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewWorker creates and starts a worker around the embedder.
func NewWorker(embedder ai.Embedder, opts ...Option) (*Worker, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	options := &workerOptions{
		poolSize: 1,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	pool, err := ants.NewPool(options.poolSize)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		embedder:       embedder,
		pool:           pool,
		logger:         options.logger.With("component", "infer-worker"),
		requests:       make(chan Request),
		messages:       make(chan Message),
		done:           make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
		dispatcherDone: make(chan struct{}),
		cache:          make(map[string][]float32),
	}

	go w.dispatch()

	return w, nil
}

// Messages returns the worker's outbound event stream. The channel is
// closed by Close after all in-flight jobs have finished.
func (w *Worker) Messages() <-chan Message {
	return w.messages
}

// Send queues a request. It blocks until the worker accepts the request and
// returns ErrWorkerClosed if the worker has been closed.
func (w *Worker) Send(req Request) error {
	select {
	case w.requests <- req:
		return nil
	case <-w.done:
		return ErrWorkerClosed
	}
}

// Close terminates the worker: no further requests are accepted, in-flight
// jobs are waited out, the pool is released, and the message channel is
// closed. Safe to call more than once.
func (w *Worker) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.cancel()
		<-w.dispatcherDone
		w.jobs.Wait()
		w.pool.Release()
		close(w.messages)
	})
	return w.closeErr
}

// dispatch consumes requests one at a time and fans jobs out to the pool.
func (w *Worker) dispatch() {
	defer close(w.dispatcherDone)
	for {
		select {
		case <-w.done:
			return
		case req := <-w.requests:
			switch r := req.(type) {
			case PreloadRequest:
				w.handlePreload(r)
			case EmbedRequest:
				w.handleEmbed(r)
			}
		}
	}
}

// handlePreload announces the load, then warms the backend on the pool and
// announces readiness.
func (w *Worker) handlePreload(req PreloadRequest) {
	w.emit(Message{Status: StatusInitiate})

	w.submit(func() {
		if _, err := w.embedText(preloadProbe, req.NoCache); err != nil {
			w.logger.Warn("preload probe failed", "err", err)
		}
		w.emit(Message{Status: StatusReady})
	})
}

// handleEmbed runs one inference job on the pool. A failed inference still
// emits a complete message, just without an embedding; whether the caller
// should be told more than that is an open question.
func (w *Worker) handleEmbed(req EmbedRequest) {
	w.submit(func() {
		vec, err := w.embedText(req.Text, req.NoCache)
		if err != nil {
			w.logger.Error("embedding failed", "err", err)
			w.emit(Message{Status: StatusComplete})
			return
		}
		w.emit(Message{Status: StatusComplete, Embedding: vec})
	})
}

func (w *Worker) submit(job func()) {
	w.jobs.Add(1)
	err := w.pool.Submit(func() {
		defer w.jobs.Done()
		job()
	})
	if err != nil {
		w.jobs.Done()
		w.logger.Error("failed to submit inference job", "err", err)
	}
}

func (w *Worker) embedText(text string, noCache bool) ([]float32, error) {
	if !noCache {
		w.mu.Lock()
		vec, ok := w.cache[text]
		w.mu.Unlock()
		if ok {
			return vec, nil
		}
	}

	vec, err := w.embedder.EmbedText(w.ctx, text)
	if err != nil {
		return nil, err
	}

	if !noCache {
		w.mu.Lock()
		w.cache[text] = vec
		w.mu.Unlock()
	}
	return vec, nil
}

// emit delivers a message unless the worker is shutting down.
func (w *Worker) emit(msg Message) {
	select {
	case w.messages <- msg:
	case <-w.done:
	}
}
