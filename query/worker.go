package query

import (
	"log/slog"
	"sync/atomic"
)

const defaultQueueDepth = 256

// Worker executes queries on a single background goroutine in strict FIFO
// order and delivers each result through the Callbacks, exactly once, on
// that goroutine. Shutdown is graceful: everything enqueued before (and
// during) the drain completes before the goroutine exits. A Worker is not
// restartable.
type Worker struct {
	queries   chan *Query
	callbacks Callbacks
	logger    *slog.Logger
	done      chan struct{}
	stopped   atomic.Bool
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithQueueDepth sets the pending-query buffer size. Default is 256;
// Enqueue blocks while the buffer is full.
func WithQueueDepth(depth int) WorkerOption {
	return func(w *Worker) {
		if depth > 0 {
			w.queries = make(chan *Query, depth)
		}
	}
}

// WithWorkerLogger sets a custom logger. Default is slog.Default().
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorker creates a Worker and starts its goroutine.
func NewWorker(callbacks Callbacks, opts ...WorkerOption) *Worker {
	w := &Worker{
		queries:   make(chan *Query, defaultQueueDepth),
		callbacks: callbacks,
		logger:    slog.Default(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.run()
	return w
}

// Enqueue hands a query to the worker. Queries execute in enqueue order.
// Returns ErrShutdown once Shutdown has been called.
func (w *Worker) Enqueue(q *Query) error {
	if w.stopped.Load() {
		return ErrShutdown
	}
	select {
	case w.queries <- q:
		return nil
	case <-w.done:
		return ErrShutdown
	}
}

// Shutdown asks the worker to stop after draining all pending queries. It
// does not wait for the drain; use Done for that. Safe to call more than
// once.
func (w *Worker) Shutdown() {
	if w.stopped.Swap(true) {
		return
	}
	w.queries <- &Query{typ: typeShutdown}
}

// Done is closed once the worker goroutine has drained the queue and
// exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run() {
	defer close(w.done)

	draining := false
	for {
		var q *Query
		if draining {
			select {
			case q = <-w.queries:
			default:
				return
			}
		} else {
			q = <-w.queries
		}

		if q.typ == typeShutdown {
			draining = true
			continue
		}

		q.execute(w.logger)
		w.dispatch(q)
	}
}

// dispatch routes the completed query to the matching callback. Unknown
// types have no callback; the warning was already logged by execute.
func (w *Worker) dispatch(q *Query) {
	if w.callbacks == nil {
		return
	}
	switch q.typ {
	case TypeChildFileCount:
		w.callbacks.ChildFileCountResult(q.number, q.err)
	case TypeChildFolderCount:
		w.callbacks.ChildFolderCountResult(q.number, q.err)
	}
}
