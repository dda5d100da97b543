package topology

import (
	"context"
	"sync/atomic"
)

// Queue is a bounded FIFO channel between two tiers. Capacity equals the
// buffer_size configured for the owning (downstream) worker. Upstream
// workers hold the send end through a Router destination; the owning
// worker holds the receive end.
//
// Closure is observable on the receive side: once the buffer drains,
// Receive reports ok=false exactly like a closed Go channel, which is
// what this type wraps. See spec.md §4.1.
//
// closed is tracked separately from the channel itself so TrySend/Send can
// report a closed destination as an ordinary return value instead of the
// panic a plain closed-channel send would raise — the router needs to
// prune a closed destination without crashing the worker that discovers it.
type Queue[T any] struct {
	ch     chan T
	closed atomic.Bool
}

// NewQueue allocates a queue with the given capacity. Capacity must be
// >= 1; the builder is responsible for applying buffer_size defaults
// before calling this.
func NewQueue[T any](capacity int) *Queue[T] {
	return &Queue[T]{ch: make(chan T, capacity)}
}

// TrySend attempts a non-blocking send. It reports ok=true if the value
// was enqueued, and ok=false if the queue is either full or closed — the
// caller distinguishes the two with isClosedHint.
func (q *Queue[T]) TrySend(v T) (ok bool) {
	if q.closed.Load() {
		return false
	}
	select {
	case q.ch <- v:
		return true
	default:
		return false
	}
}

// Send blocks until the value is enqueued or ctx is done. If Close has
// already been called it returns ErrQueueClosed without blocking. This is
// the backpressure primitive used by broadcast and partition routing.
func (q *Queue[T]) Send(ctx context.Context, v T) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until a value is available or the queue is closed and
// drained, returning ok=false in the latter case.
func (q *Queue[T]) Receive() (v T, ok bool) {
	v, ok = <-q.ch
	return v, ok
}

// Close marks the queue closed and closes the underlying channel. Only the
// sending (upstream) side of a queue edge should call Close, and in normal
// operation only once every upstream worker referencing it has released it
// (see Router.Close and the builder's per-destination countdown).
func (q *Queue[T]) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.ch)
	}
}

// isClosedHint reports whether Close has been called. It is a hint, not a
// guarantee about the channel's buffered contents — used by the router to
// decide whether a failed TrySend means "closed" (prune the destination)
// or "full" (try the next one).
func (q *Queue[T]) isClosedHint() bool {
	return q.closed.Load()
}
