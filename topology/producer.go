package topology

import (
	"context"

	"golang.org/x/xerrors"
)

// ErrProducerDone is the conventional sentinel a ProducerHandler.FillBuffer
// implementation returns to signal that it has nothing more to emit. Any
// other non-nil error is treated the same way — fill_buffer only has two
// outcomes per spec.md §6 (items, or terminal) — but a distinct sentinel
// lets callers and tests express "done" without inventing their own error.
var ErrProducerDone = xerrors.New("topology: producer done")

// ProducerHandler is the producer contract from spec.md §6. The topology
// builder invokes one instance per producer worker, constructed through a
// factory so each worker owns an independent handler (no cross-worker
// aliasing, no caller-side locking required).
type ProducerHandler[T any] interface {
	// Init runs once before the first FillBuffer call.
	Init(ctx context.Context)

	// FillBuffer returns up to n items, or a non-nil error (conventionally
	// ErrProducerDone) to end the worker.
	FillBuffer(ctx context.Context, n int) ([]T, error)

	// Drain is called once if the worker exits with items still in its
	// local buffer (spec.md §4.3 step 3 — a NoDestinations dispatch
	// failure).
	Drain(ctx context.Context, residual []T)

	// Terminate runs once at the end of the worker's life.
	Terminate(ctx context.Context)
}

// producerWorker runs the event loop described in spec.md §4.3.
type producerWorker[T any] struct {
	handler        ProducerHandler[T]
	router         *Router[T]
	bufferPoolSize int
	shutdown       <-chan struct{}
}

func (w *producerWorker[T]) run(ctx context.Context) {
	defer w.router.Close()

	w.handler.Init(ctx)

	var buf []T
	for {
		select {
		case <-w.shutdown:
			w.handler.Terminate(ctx)
			return
		default:
		}

		if len(buf) == 0 {
			items, err := w.handler.FillBuffer(ctx, w.bufferPoolSize)
			if err != nil {
				w.handler.Terminate(ctx)
				return
			}
			buf = items
		}

		for len(buf) > 0 {
			item := buf[0]
			buf = buf[1:]

			_, err := w.router.Dispatch(ctx, item, "")
			if err != nil {
				// NoDestinations: push the item back to the front of the
				// residual buffer, drain, terminate, and exit. Partition
				// routing (NotFound) cannot happen here — producers reject
				// Partition routing at build time (spec.md §3 invariant 3).
				residual := append([]T{item}, buf...)
				w.handler.Drain(ctx, residual)
				w.handler.Terminate(ctx)
				return
			}
		}
	}
}
