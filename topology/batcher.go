package topology

import (
	"context"
	"time"
)

// BatchHandler is the batch-processor contract from spec.md §6. A batcher
// is always a terminal stage; it has no outbound router.
type BatchHandler[T any] interface {
	Init(ctx context.Context)

	// HandleBatch processes a full or partial batch. A non-nil error from a
	// timer-triggered or queue-closed flush is the BatcherTerminate(items)
	// outcome: the batcher drains the same items it just passed in, then
	// terminates. A non-nil error from a size-triggered flush is ignored.
	HandleBatch(ctx context.Context, batch []T) error

	// Drain is called with the failed batch on a terminal error path
	// (timer-triggered or queue-closed flush only — see run's comments).
	Drain(ctx context.Context, batch []T)

	Terminate(ctx context.Context)
}

// batchWorker runs the event loop described in spec.md §4.5, the hardest
// sub-component: timer-or-size-or-close triggered flush, with the
// asymmetric error handling the spec calls out explicitly (size-triggered
// flush errors are swallowed — the hot path trusts handle_batch's own
// retry discipline — while timer- and close-triggered flush errors drain
// and terminate).
type batchWorker[T any] struct {
	handler      BatchHandler[T]
	inbound      *Queue[T]
	batchSize    int
	batchTimeout time.Duration
}

func (w *batchWorker[T]) run(ctx context.Context) {
	w.handler.Init(ctx)

	batch := make([]T, 0, w.batchSize)
	timer := time.NewTimer(w.batchTimeout)
	defer timer.Stop()

	resetTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.batchTimeout)
	}

	for {
		select {
		case <-timer.C:
			if len(batch) > 0 {
				if err := w.handler.HandleBatch(ctx, batch); err != nil {
					w.handler.Drain(ctx, batch)
					w.handler.Terminate(ctx)
					return
				}
				batch = make([]T, 0, w.batchSize)
			}
			timer.Reset(w.batchTimeout)

		case msg, ok := <-w.inbound.ch:
			if !ok {
				if len(batch) > 0 {
					if err := w.handler.HandleBatch(ctx, batch); err != nil {
						w.handler.Drain(ctx, batch)
					}
				}
				w.handler.Terminate(ctx)
				return
			}

			batch = append(batch, msg)
			if len(batch) == w.batchSize {
				// Size-triggered flush: the hot path. Errors are swallowed
				// on purpose — handle_batch owns its own retry discipline
				// here, per spec.md §4.5's rationale.
				_ = w.handler.HandleBatch(ctx, batch)
				batch = make([]T, 0, w.batchSize)
				resetTimer()
			}
		}
	}
}
