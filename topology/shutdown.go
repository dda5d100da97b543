package topology

import "sync"

// Shutdown is the handle returned by the topology builder (spec.md §4.6).
// Firing it delivers the external shutdown signal to every producer worker;
// everything downstream terminates by queue-close propagation alone, per
// spec.md §4.7 and §3 invariant 6 — there is no downward shutdown channel.
type Shutdown struct {
	once sync.Once
	ch   chan struct{}
}

func newShutdown() *Shutdown {
	return &Shutdown{ch: make(chan struct{})}
}

// Fire delivers the shutdown signal. Safe to call more than once or from
// more than one goroutine; only the first call has any effect.
func (s *Shutdown) Fire() {
	s.once.Do(func() { close(s.ch) })
}

// signal returns the receive end every producer worker polls between buffer
// cycles (spec.md §4.3 step 5). A closed channel is read as "done" by every
// receiver that selects on it, which is the broadcast equivalent of "fan one
// signal out to each producer's private shutdown receiver" (§4.7) — closing
// one channel and handing every producer the same receive end reaches all of
// them without a coordinator goroutine or per-producer delivery loop, the
// same trick the teacher's own monitor goroutine uses to cancel every stage
// at once (pipeline.go's wg.Wait(); close(errCh); ctxCancelFn()).
func (s *Shutdown) signal() <-chan struct{} {
	return s.ch
}
