package topology

import (
	"context"
	"sync"

	"github.com/serialx/hashring"
)

// destination is one entry in a Router's ordered table: a stable worker id,
// the queue that worker owns, and the shared countdown that closes the
// queue once every upstream worker referencing it has released it. wg is
// shared by every Router instance of the upstream tier that was built with
// this destination, mirroring the teacher's own wg.Wait()-then-close
// pattern (pipeline.go) generalized from one writer to many.
type destination[T any] struct {
	id    string
	queue *Queue[T]
	wg    *sync.WaitGroup
}

// Router picks the destination worker(s) of the next tier for each
// outgoing message. One Router instance belongs to exactly one upstream
// worker; its destination table and ring are never touched by any other
// goroutine (spec.md §3 invariant 5).
type Router[T any] struct {
	policy RoutingPolicy
	dests  []destination[T]
	cursor int
	ring   *hashring.HashRing
}

// NewRouter builds a Router over the given ordered (id -> queue) mapping.
// Construction fails if any id or queue appears more than once. wg is the
// shared per-destination close countdown created by the topology builder;
// every Router that shares a destination must be constructed with the same
// *sync.WaitGroup for that destination's id.
func NewRouter[T any](policy RoutingPolicy, order []string, queues map[string]*Queue[T], wgs map[string]*sync.WaitGroup) (*Router[T], error) {
	seen := make(map[string]struct{}, len(order))
	seenQueue := make(map[*Queue[T]]struct{}, len(order))
	dests := make([]destination[T], 0, len(order))

	for _, id := range order {
		if _, dup := seen[id]; dup {
			return nil, ErrDuplicateDestination
		}
		q := queues[id]
		if _, dup := seenQueue[q]; dup {
			return nil, ErrDuplicateDestination
		}
		seen[id] = struct{}{}
		seenQueue[q] = struct{}{}
		dests = append(dests, destination[T]{id: id, queue: q, wg: wgs[id]})
	}

	var ring *hashring.HashRing
	if policy == Partition {
		nodes := make([]string, len(dests))
		for i := range dests {
			nodes[i] = dests[i].id
		}
		ring = hashring.New(nodes)
	}

	return &Router[T]{policy: policy, dests: dests, ring: ring}, nil
}

// Len reports the current number of live destinations.
func (r *Router[T]) Len() int { return len(r.dests) }

// Close releases this router's reference to every remaining destination,
// called once by the owning worker as the last step before it exits. Once
// every upstream worker of a tier has released a given queue, that queue
// is closed, which is how shutdown propagates downstream (spec.md §4.7).
func (r *Router[T]) Close() {
	for _, d := range r.dests {
		if d.wg != nil {
			d.wg.Done()
		}
	}
	r.dests = nil
}

// Dispatch sends msg to the appropriate destination(s) per policy. For
// Partition routing, key must be non-empty (spec.md §3 invariant 4).
func (r *Router[T]) Dispatch(ctx context.Context, msg T, key string) (T, error) {
	switch r.policy {
	case RoundRobin:
		return r.roundRobin(msg)
	case Broadcast:
		return r.broadcast(ctx, msg)
	case Partition:
		if key == "" {
			var zero T
			return zero, ErrEmptyPartitionKey
		}
		return r.partition(ctx, msg, key)
	default:
		var zero T
		return zero, configErrorf("unknown routing policy %v", r.policy)
	}
}

func (r *Router[T]) removeAt(i int) {
	d := r.dests[i]
	if d.wg != nil {
		d.wg.Done()
	}
	r.dests = append(r.dests[:i], r.dests[i+1:]...)
	if r.ring != nil {
		// Ring nodes are keyed by the stable destination id, not its
		// position, so removal here never invalidates another surviving
		// destination's node (positions shift on every removeAt, ids don't).
		r.ring = r.ring.RemoveNode(d.id)
	}
}

// indexOfID returns the current slice position of a destination id, or -1
// if it has already been removed. The ring returns ids, not positions, so
// partition() re-resolves a position on every dispatch rather than caching
// one that a prior removal could have invalidated.
func (r *Router[T]) indexOfID(id string) int {
	for i := range r.dests {
		if r.dests[i].id == id {
			return i
		}
	}
	return -1
}

// roundRobin implements spec.md §4.2's round-robin policy: try_send to the
// current cursor, advance on success or on full (skip to the next peer
// without losing the message), and drop a destination whose channel is
// closed before retrying. With exactly one destination, fall back to a
// blocking send since there is no alternative to wait on.
func (r *Router[T]) roundRobin(msg T) (T, error) {
	for {
		n := len(r.dests)
		if n == 0 {
			return msg, ErrNoDestinations
		}

		if n == 1 {
			if r.dests[0].queue.TrySend(msg) {
				return msg, nil
			}
			if r.dests[0].queue.isClosedHint() {
				r.removeAt(0)
				return msg, ErrNoDestinations
			}
			// Single destination, buffer full: there is nothing else to
			// try, so block instead of busy-looping try_send.
			if err := r.dests[0].queue.Send(context.Background(), msg); err != nil {
				if err == ErrQueueClosed {
					r.removeAt(0)
					return msg, ErrNoDestinations
				}
				return msg, err
			}
			return msg, nil
		}

		idx := r.cursor % n
		r.cursor = (r.cursor + 1) % n

		if r.dests[idx].queue.TrySend(msg) {
			return msg, nil
		}
		// A failed TrySend means full or closed; isClosedHint tells the two
		// apart. A closed destination (e.g. on shutdown-induced drain, or in
		// tests simulating a dead consumer) is pruned right here and the
		// same msg is retried on the remaining destinations.
		if r.dests[idx].queue.isClosedHint() {
			if r.cursor > idx {
				r.cursor--
			}
			r.removeAt(idx)
			continue
		}
		// Full: advance to the next destination without losing msg.
	}
}

// broadcast implements spec.md §4.2: duplicate msg for every destination
// but the last, which receives the original value. A destination whose
// send fails is collected and removed only after the full fan-out
// completes, so one dead peer never prevents delivery to the others.
func (r *Router[T]) broadcast(ctx context.Context, msg T) (T, error) {
	n := len(r.dests)
	if n == 0 {
		return msg, ErrNoDestinations
	}

	dead := make([]int, 0)
	for i := 0; i < n-1; i++ {
		clone := cloneMessage(msg)
		if err := r.dests[i].queue.Send(ctx, clone); err != nil {
			dead = append(dead, i)
		}
	}
	if err := r.dests[n-1].queue.Send(ctx, msg); err != nil {
		dead = append(dead, n-1)
	}

	for i := len(dead) - 1; i >= 0; i-- {
		r.removeAt(dead[i])
	}
	return msg, nil
}

// partition implements spec.md §4.2: look the key up on the consistent
// hash ring, blocking-send to the assigned destination, and on failure
// remove it from both the destination table and the ring, reporting
// NotFound rather than rebalancing and redelivering.
func (r *Router[T]) partition(ctx context.Context, msg T, key string) (T, error) {
	if r.ring == nil || len(r.dests) == 0 {
		return msg, ErrNotFound
	}

	node, ok := r.ring.GetNode(key)
	if !ok {
		return msg, ErrNotFound
	}
	idx := r.indexOfID(node)
	if idx < 0 {
		return msg, ErrNotFound
	}

	if err := r.dests[idx].queue.Send(ctx, msg); err != nil {
		r.removeAt(idx)
		return msg, ErrNotFound
	}
	return msg, nil
}

// cloneMessage duplicates a message for broadcast fan-out (spec.md §3
// invariant 2 — "a broadcast send logically clones the message"). It uses
// Clone when T implements Cloner[T] and otherwise returns the plain Go
// value copy of msg.
func cloneMessage[T any](msg T) T {
	if c, ok := any(msg).(Cloner[T]); ok {
		return c.Clone()
	}
	return msg
}

// Cloner is implemented by message types that need a deep copy under
// Broadcast routing. Types that are safe to share (immutable values,
// plain data with no shared mutable state) do not need to implement it —
// cloneMessage falls back to the shallow Go value copy in that case.
type Cloner[T any] interface {
	Clone() T
}
