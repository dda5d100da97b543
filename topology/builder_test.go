package topology

import (
	"context"
	"fmt"
	"sync"
	"time"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(BuilderTestSuite))

type BuilderTestSuite struct{}

// fixedProducer emits every item in items exactly once, n at a time.
type fixedProducer[T any] struct {
	items []T
	pos   int
}

func (p *fixedProducer[T]) Init(ctx context.Context) {}

func (p *fixedProducer[T]) FillBuffer(ctx context.Context, n int) ([]T, error) {
	if p.pos >= len(p.items) {
		return nil, ErrProducerDone
	}
	end := p.pos + n
	if end > len(p.items) {
		end = len(p.items)
	}
	out := p.items[p.pos:end]
	p.pos = end
	return out, nil
}

func (p *fixedProducer[T]) Drain(ctx context.Context, residual []T) {}
func (p *fixedProducer[T]) Terminate(ctx context.Context)           {}

// collector appends everything it sees (thread-safe) and drops it.
type collector[In, Out any] struct {
	mu   sync.Mutex
	seen []In
}

func (h *collector[In, Out]) Init(ctx context.Context) {}

func (h *collector[In, Out]) HandleMessage(ctx context.Context, msg In) ProcResult[Out] {
	h.mu.Lock()
	h.seen = append(h.seen, msg)
	h.mu.Unlock()
	return Continue[Out]()
}

func (h *collector[In, Out]) Terminate(ctx context.Context) {}

func (h *collector[In, Out]) snapshot() []In {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]In(nil), h.seen...)
}

func (s *BuilderTestSuite) TestSingleProducerSingleProcessor(c *gc.C) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	sink := &collector[int, struct{}]{}
	producer := ProducerConfig[int]{
		Factory:        func() ProducerHandler[int] { return &fixedProducer[int]{items: items} },
		Concurrency:    1,
		Router:         RoundRobin,
		BufferPoolSize: 8,
	}
	terminal := TerminalConfig[int, struct{}]{
		Factory:     func() ProcessorHandler[int, struct{}] { return sink },
		Concurrency: 1,
		BufferSize:  16,
	}

	sd, err := RunTopology1[int, struct{}](producer, terminal)
	c.Assert(err, gc.IsNil)
	c.Assert(sd, gc.NotNil)

	c.Assert(waitFor(func() bool { return len(sink.snapshot()) == len(items) }), gc.Equals, true)
	c.Assert(sink.snapshot(), gc.DeepEquals, items)
}

type producerMsg struct {
	producer int
	seq      int
}

func (s *BuilderTestSuite) TestMultiProducerRoundRobinDeliversEveryItemOnce(c *gc.C) {
	const numProducers = 3
	const perProducer = 30

	var seen sync.Map // producerMsg -> true
	var count int64
	var mu sync.Mutex

	processor := ProcessorConfig[producerMsg, struct{}]{
		Factory: func() ProcessorHandler[producerMsg, struct{}] {
			return procFunc[producerMsg, struct{}](func(ctx context.Context, m producerMsg) ProcResult[struct{}] {
				seen.Store(m, true)
				mu.Lock()
				count++
				mu.Unlock()
				return Continue[struct{}]()
			})
		},
		Concurrency: 3,
		BufferSize:  16,
	}

	// Three producer factories, each emitting a distinct producer id.
	for pid := 0; pid < numProducers; pid++ {
		items := make([]producerMsg, perProducer)
		for i := range items {
			items[i] = producerMsg{producer: pid, seq: i}
		}
		producer := ProducerConfig[producerMsg]{
			Factory:        func() ProducerHandler[producerMsg] { return &fixedProducer[producerMsg]{items: items} },
			Concurrency:    1,
			Router:         RoundRobin,
			BufferPoolSize: 8,
		}
		terminal := TerminalConfig[producerMsg, struct{}]{
			Factory:     processor.Factory,
			Concurrency: 3,
			BufferSize:  16,
		}
		_, err := RunTopology1[producerMsg, struct{}](producer, terminal)
		c.Assert(err, gc.IsNil)
	}

	c.Assert(waitFor(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == numProducers*perProducer
	}), gc.Equals, true)

	for pid := 0; pid < numProducers; pid++ {
		for seq := 0; seq < perProducer; seq++ {
			_, ok := seen.Load(producerMsg{producer: pid, seq: seq})
			c.Assert(ok, gc.Equals, true, gc.Commentf("missing (%d, %d)", pid, seq))
		}
	}
}

// procFunc adapts a function literal to ProcessorHandler for ad-hoc test
// handlers, mirroring the teacher's own ProcessorFunc adapter in
// pipeline/stage.go.
type procFunc[In, Out any] func(ctx context.Context, msg In) ProcResult[Out]

func (f procFunc[In, Out]) Init(ctx context.Context)      {}
func (f procFunc[In, Out]) Terminate(ctx context.Context) {}
func (f procFunc[In, Out]) HandleMessage(ctx context.Context, msg In) ProcResult[Out] {
	return f(ctx, msg)
}

func (s *BuilderTestSuite) TestPartitionRoutingIsSticky(c *gc.C) {
	keys := []string{"admin", "client"}
	items := make([]string, 0, 200)
	for i := 0; i < 100; i++ {
		items = append(items, keys[i%2])
	}

	var mu sync.Mutex
	seenBy := map[string]map[string]struct{}{} // worker id -> set of keys observed

	tier1 := ProcessorConfig[string, string]{
		Factory: func() ProcessorHandler[string, string] {
			return procFunc[string, string](func(ctx context.Context, m string) ProcResult[string] {
				return Dispatch(m, m)
			})
		},
		Concurrency: 1,
		Router:      Partition,
		BufferSize:  16,
	}

	var nextWorkerID int64
	tier2 := TerminalConfig[string, struct{}]{
		Factory: func() ProcessorHandler[string, struct{}] {
			mu.Lock()
			nextWorkerID++
			workerID := fmt.Sprintf("worker-%d", nextWorkerID)
			mu.Unlock()
			return procFunc[string, struct{}](func(ctx context.Context, m string) ProcResult[struct{}] {
				mu.Lock()
				if seenBy[workerID] == nil {
					seenBy[workerID] = map[string]struct{}{}
				}
				seenBy[workerID][m] = struct{}{}
				mu.Unlock()
				return Continue[struct{}]()
			})
		},
		Concurrency: 2,
		BufferSize:  16,
	}

	producer := ProducerConfig[string]{
		Factory:        func() ProducerHandler[string] { return &fixedProducer[string]{items: items} },
		Concurrency:    1,
		Router:         RoundRobin,
		BufferPoolSize: 8,
	}

	sd, err := RunTopology2[string, string, struct{}](producer, tier1, tier2)
	c.Assert(err, gc.IsNil)
	c.Assert(sd, gc.NotNil)

	c.Assert(waitFor(func() bool {
		mu.Lock()
		defer mu.Unlock()
		total := 0
		for _, set := range seenBy {
			total += len(set)
		}
		return total >= 1 && len(seenBy) >= 1
	}), gc.Equals, true)

	time.Sleep(50 * time.Millisecond) // let the tail of the run settle

	mu.Lock()
	defer mu.Unlock()
	for _, set := range seenBy {
		c.Assert(len(set), gc.Equals, 1, gc.Commentf("a single worker should only ever see one partition key"))
	}
}

func (s *BuilderTestSuite) TestProducerRejectsPartitionRoutingWithoutSpawning(c *gc.C) {
	producer := ProducerConfig[int]{
		Factory:     func() ProducerHandler[int] { return &fixedProducer[int]{items: []int{1, 2, 3}} },
		Concurrency: 1,
		Router:      Partition,
	}
	terminal := TerminalConfig[int, struct{}]{
		Factory:     func() ProcessorHandler[int, struct{}] { return &collector[int, struct{}]{} },
		Concurrency: 1,
	}

	sd, err := RunTopology1[int, struct{}](producer, terminal)
	c.Assert(sd, gc.IsNil)
	c.Assert(err, gc.NotNil)
	c.Assert(err, gc.ErrorMatches, "(?s).*partition.*")
}

func (s *BuilderTestSuite) TestBatcherTierFlushesBySize(c *gc.C) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	var mu sync.Mutex
	var batches [][]int

	producer := ProducerConfig[int]{
		Factory:        func() ProducerHandler[int] { return &fixedProducer[int]{items: items} },
		Concurrency:    1,
		Router:         RoundRobin,
		BufferPoolSize: 4,
	}
	tier1 := ProcessorConfig[int, int]{
		Factory: func() ProcessorHandler[int, int] {
			return procFunc[int, int](func(ctx context.Context, m int) ProcResult[int] { return Dispatch(m, "") })
		},
		Concurrency: 1,
		Router:      RoundRobin,
		BufferSize:  16,
	}
	batcher := BatcherConfig[int]{
		Factory: func() BatchHandler[int] {
			return &funcBatcher{onBatch: func(batch []int) error {
				mu.Lock()
				batches = append(batches, append([]int(nil), batch...))
				mu.Unlock()
				return nil
			}}
		},
		Concurrency:  1,
		BufferSize:   16,
		BatchSize:    10,
		BatchTimeout: 50 * time.Millisecond,
	}

	_, err := RunTopology1WithBatcher[int, int](producer, tier1, batcher)
	c.Assert(err, gc.IsNil)

	c.Assert(waitFor(func() bool {
		mu.Lock()
		defer mu.Unlock()
		total := 0
		for _, b := range batches {
			total += len(b)
		}
		return total == len(items)
	}), gc.Equals, true)
}

type funcBatcher struct {
	onBatch func([]int) error
}

func (f *funcBatcher) Init(ctx context.Context) {}
func (f *funcBatcher) HandleBatch(ctx context.Context, batch []int) error {
	return f.onBatch(batch)
}
func (f *funcBatcher) Drain(ctx context.Context, batch []int) {}
func (f *funcBatcher) Terminate(ctx context.Context)           {}
