package topology

import (
	"context"
	"sync"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(ProcessorTestSuite))

type ProcessorTestSuite struct{}

// doubleHandler forwards 2*msg downstream, dropping odd inputs.
type doubleHandler struct {
	mu         sync.Mutex
	terminated int
}

func (h *doubleHandler) Init(ctx context.Context) {}

func (h *doubleHandler) HandleMessage(ctx context.Context, msg int) ProcResult[int] {
	if msg%2 != 0 {
		return Continue[int]()
	}
	return Dispatch(msg*2, "")
}

func (h *doubleHandler) Terminate(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.terminated++
}

func (s *ProcessorTestSuite) TestRunForwardsDispatchedResults(c *gc.C) {
	in := NewQueue[int](10)
	out := NewQueue[int](10)
	router, err := NewRouter[int](RoundRobin, []string{"0"}, map[string]*Queue[int]{"0": out}, nil)
	c.Assert(err, gc.IsNil)

	handler := &doubleHandler{}
	w := &processorWorker[int, int]{handler: handler, inbound: in, router: router}

	done := make(chan struct{})
	go func() {
		w.run(context.Background())
		close(done)
	}()

	for _, v := range []int{1, 2, 3, 4} {
		c.Assert(in.Send(context.Background(), v), gc.IsNil)
	}
	in.Close()
	<-done

	out.Close()
	var got []int
	for {
		v, ok := out.Receive()
		if !ok {
			break
		}
		got = append(got, v)
	}
	c.Assert(got, gc.DeepEquals, []int{4, 8})
	c.Assert(handler.terminated, gc.Equals, 1)
}

func (s *ProcessorTestSuite) TestTerminalProcessorHasNoRouter(c *gc.C) {
	in := NewQueue[int](10)
	handler := &doubleHandler{}
	w := &processorWorker[int, int]{handler: handler, inbound: in, router: nil}

	done := make(chan struct{})
	go func() {
		w.run(context.Background())
		close(done)
	}()

	c.Assert(in.Send(context.Background(), 2), gc.IsNil)
	in.Close()
	<-done

	c.Assert(handler.terminated, gc.Equals, 1)
}

func (s *ProcessorTestSuite) TestDispatchErrorsAreSwallowed(c *gc.C) {
	in := NewQueue[int](10)
	out := NewQueue[int](1)
	router, err := NewRouter[int](RoundRobin, []string{"0"}, map[string]*Queue[int]{"0": out}, nil)
	c.Assert(err, gc.IsNil)
	out.Close() // the sole destination is already dead

	handler := &doubleHandler{}
	w := &processorWorker[int, int]{handler: handler, inbound: in, router: router}

	done := make(chan struct{})
	go func() {
		w.run(context.Background())
		close(done)
	}()

	c.Assert(in.Send(context.Background(), 2), gc.IsNil)
	in.Close()
	<-done

	// The processor must not die just because its only downstream is gone.
	c.Assert(handler.terminated, gc.Equals, 1)
}
