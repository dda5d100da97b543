package topology

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

// ProducerConfig describes one producer tier, per spec.md §6's construction
// surface: factory, concurrency, outbound router type, buffer-pool size.
type ProducerConfig[T any] struct {
	Factory        func() ProducerHandler[T]
	Concurrency    int
	Router         RoutingPolicy
	BufferPoolSize int
}

// ProcessorConfig describes one non-terminal processor tier: factory,
// concurrency, outbound router type, inbound buffer size.
type ProcessorConfig[In, Out any] struct {
	Factory     func() ProcessorHandler[In, Out]
	Concurrency int
	Router      RoutingPolicy
	BufferSize  int
}

// TerminalConfig describes the last processor tier of a topology built
// without a batcher: no router, per spec.md §6 ("the terminal processor
// tier: factory, concurrency, buffer size (no router)").
type TerminalConfig[In, Out any] struct {
	Factory     func() ProcessorHandler[In, Out]
	Concurrency int
	BufferSize  int
}

// BatcherConfig describes the optional terminal batcher tier.
type BatcherConfig[T any] struct {
	Factory      func() BatchHandler[T]
	Concurrency  int
	BufferSize   int
	BatchSize    int
	BatchTimeout time.Duration
}

// makeQueueSet allocates n inbound queues for a tier along with the shared
// close countdown for each one. upstreamConcurrency is the worker count of
// the tier immediately above — every one of those workers holds a router
// destination entry for every queue here, so each queue's WaitGroup counts
// down once per upstream worker's Router.Close call (see router.go). A
// background goroutine per queue waits on that countdown and then closes the
// queue, which is how shutdown propagates downstream without a fan-in
// (spec.md §4.7, §9 "cooperative shutdown without fan-in").
func makeQueueSet[T any](n, bufferSize, upstreamConcurrency int) (ids []string, queues []*Queue[T], byID map[string]*Queue[T], wgByID map[string]*sync.WaitGroup) {
	bufferSize = orDefaultInt(bufferSize, DefaultBufferSize)

	ids = make([]string, n)
	queues = make([]*Queue[T], n)
	byID = make(map[string]*Queue[T], n)
	wgByID = make(map[string]*sync.WaitGroup, n)

	for i := 0; i < n; i++ {
		id := strconv.Itoa(i)
		q := NewQueue[T](bufferSize)
		wg := &sync.WaitGroup{}
		wg.Add(upstreamConcurrency)

		ids[i] = id
		queues[i] = q
		byID[id] = q
		wgByID[id] = wg

		go func(q *Queue[T], wg *sync.WaitGroup) {
			wg.Wait()
			q.Close()
		}(q, wg)
	}
	return ids, queues, byID, wgByID
}

// validateProducer runs every build-time check on the producer stage before
// a single queue or goroutine is allocated, so a rejected shape (spec.md §8
// S6) never spawns partial work. Checks are aggregated with
// hashicorp/go-multierror, the same library the teacher's Pipeline.Process
// uses to collect per-stage errors, so a future second check slots in
// without changing the error shape callers see.
func validateProducer[T any](cfg ProducerConfig[T]) error {
	var result *multierror.Error
	if cfg.Router == Partition {
		result = multierror.Append(result, configErrorf("producer stage cannot use partition routing"))
	}
	return result.ErrorOrNil()
}

func spawnProducers[T any](cfg ProducerConfig[T], destIDs []string, destQueues map[string]*Queue[T], destWGs map[string]*sync.WaitGroup, sd *Shutdown) error {
	n := orDefaultInt(cfg.Concurrency, DefaultConcurrency)
	bufferPoolSize := orDefaultInt(cfg.BufferPoolSize, DefaultBufferPoolSize)

	for i := 0; i < n; i++ {
		router, err := NewRouter[T](cfg.Router, destIDs, destQueues, destWGs)
		if err != nil {
			return err
		}
		w := &producerWorker[T]{
			handler:        cfg.Factory(),
			router:         router,
			bufferPoolSize: bufferPoolSize,
			shutdown:       sd.signal(),
		}
		go w.run(context.Background())
	}
	return nil
}

func spawnProcessorTier[In, Out any](cfg ProcessorConfig[In, Out], inbound []*Queue[In], destIDs []string, destQueues map[string]*Queue[Out], destWGs map[string]*sync.WaitGroup) error {
	for i := range inbound {
		router, err := NewRouter[Out](cfg.Router, destIDs, destQueues, destWGs)
		if err != nil {
			return err
		}
		w := &processorWorker[In, Out]{
			handler: cfg.Factory(),
			inbound: inbound[i],
			router:  router,
		}
		go w.run(context.Background())
	}
	return nil
}

func spawnTerminalTier[In, Out any](cfg TerminalConfig[In, Out], inbound []*Queue[In]) {
	for i := range inbound {
		w := &processorWorker[In, Out]{
			handler: cfg.Factory(),
			inbound: inbound[i],
			router:  nil,
		}
		go w.run(context.Background())
	}
}

func spawnBatcherTier[T any](cfg BatcherConfig[T], inbound []*Queue[T]) {
	batchSize := orDefaultInt(cfg.BatchSize, DefaultBatchSize)
	batchTimeout := orDefaultDuration(cfg.BatchTimeout, DefaultBatchTimeout)

	for i := range inbound {
		w := &batchWorker[T]{
			handler:      cfg.Factory(),
			inbound:      inbound[i],
			batchSize:    batchSize,
			batchTimeout: batchTimeout,
		}
		go w.run(context.Background())
	}
}

// --- one processor tier, no batcher ---

// RunTopology1 wires a producer into a single terminal processor tier and
// starts every worker. Build order is leaves-first (spec.md §4.6): the
// terminal tier's queues exist before the producer's router is built over
// them.
func RunTopology1[A, B any](producer ProducerConfig[A], tier1 TerminalConfig[A, B]) (*Shutdown, error) {
	if err := validateProducer(producer); err != nil {
		return nil, err
	}

	nP := orDefaultInt(producer.Concurrency, DefaultConcurrency)
	n1 := orDefaultInt(tier1.Concurrency, DefaultConcurrency)

	ids1, queues1, qmap1, wgmap1 := makeQueueSet[A](n1, tier1.BufferSize, nP)
	spawnTerminalTier[A, B](tier1, queues1)

	sd := newShutdown()
	if err := spawnProducers[A](producer, ids1, qmap1, wgmap1, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

// RunTopology1WithBatcher wires a producer, one processor tier, and a
// terminal batcher tier.
func RunTopology1WithBatcher[A, B any](producer ProducerConfig[A], tier1 ProcessorConfig[A, B], batcher BatcherConfig[B]) (*Shutdown, error) {
	if err := validateProducer(producer); err != nil {
		return nil, err
	}

	nP := orDefaultInt(producer.Concurrency, DefaultConcurrency)
	n1 := orDefaultInt(tier1.Concurrency, DefaultConcurrency)
	nB := orDefaultInt(batcher.Concurrency, DefaultConcurrency)

	idsB, queuesB, qmapB, wgmapB := makeQueueSet[B](nB, batcher.BufferSize, n1)
	spawnBatcherTier[B](batcher, queuesB)

	ids1, queues1, qmap1, wgmap1 := makeQueueSet[A](n1, tier1.BufferSize, nP)
	if err := spawnProcessorTier[A, B](tier1, queues1, idsB, qmapB, wgmapB); err != nil {
		return nil, err
	}

	sd := newShutdown()
	if err := spawnProducers[A](producer, ids1, qmap1, wgmap1, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

// --- two processor tiers ---

func RunTopology2[A, B, C any](producer ProducerConfig[A], tier1 ProcessorConfig[A, B], tier2 TerminalConfig[B, C]) (*Shutdown, error) {
	if err := validateProducer(producer); err != nil {
		return nil, err
	}

	nP := orDefaultInt(producer.Concurrency, DefaultConcurrency)
	n1 := orDefaultInt(tier1.Concurrency, DefaultConcurrency)
	n2 := orDefaultInt(tier2.Concurrency, DefaultConcurrency)

	ids2, queues2, qmap2, wgmap2 := makeQueueSet[B](n2, tier2.BufferSize, n1)
	spawnTerminalTier[B, C](tier2, queues2)

	ids1, queues1, qmap1, wgmap1 := makeQueueSet[A](n1, tier1.BufferSize, nP)
	if err := spawnProcessorTier[A, B](tier1, queues1, ids2, qmap2, wgmap2); err != nil {
		return nil, err
	}

	sd := newShutdown()
	if err := spawnProducers[A](producer, ids1, qmap1, wgmap1, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

func RunTopology2WithBatcher[A, B, C any](producer ProducerConfig[A], tier1 ProcessorConfig[A, B], tier2 ProcessorConfig[B, C], batcher BatcherConfig[C]) (*Shutdown, error) {
	if err := validateProducer(producer); err != nil {
		return nil, err
	}

	nP := orDefaultInt(producer.Concurrency, DefaultConcurrency)
	n1 := orDefaultInt(tier1.Concurrency, DefaultConcurrency)
	n2 := orDefaultInt(tier2.Concurrency, DefaultConcurrency)
	nB := orDefaultInt(batcher.Concurrency, DefaultConcurrency)

	idsB, queuesB, qmapB, wgmapB := makeQueueSet[C](nB, batcher.BufferSize, n2)
	spawnBatcherTier[C](batcher, queuesB)

	ids2, queues2, qmap2, wgmap2 := makeQueueSet[B](n2, tier2.BufferSize, n1)
	if err := spawnProcessorTier[B, C](tier2, queues2, idsB, qmapB, wgmapB); err != nil {
		return nil, err
	}

	ids1, queues1, qmap1, wgmap1 := makeQueueSet[A](n1, tier1.BufferSize, nP)
	if err := spawnProcessorTier[A, B](tier1, queues1, ids2, qmap2, wgmap2); err != nil {
		return nil, err
	}

	sd := newShutdown()
	if err := spawnProducers[A](producer, ids1, qmap1, wgmap1, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

// --- three processor tiers ---

func RunTopology3[A, B, C, D any](producer ProducerConfig[A], tier1 ProcessorConfig[A, B], tier2 ProcessorConfig[B, C], tier3 TerminalConfig[C, D]) (*Shutdown, error) {
	if err := validateProducer(producer); err != nil {
		return nil, err
	}

	nP := orDefaultInt(producer.Concurrency, DefaultConcurrency)
	n1 := orDefaultInt(tier1.Concurrency, DefaultConcurrency)
	n2 := orDefaultInt(tier2.Concurrency, DefaultConcurrency)
	n3 := orDefaultInt(tier3.Concurrency, DefaultConcurrency)

	ids3, queues3, qmap3, wgmap3 := makeQueueSet[C](n3, tier3.BufferSize, n2)
	spawnTerminalTier[C, D](tier3, queues3)

	ids2, queues2, qmap2, wgmap2 := makeQueueSet[B](n2, tier2.BufferSize, n1)
	if err := spawnProcessorTier[B, C](tier2, queues2, ids3, qmap3, wgmap3); err != nil {
		return nil, err
	}

	ids1, queues1, qmap1, wgmap1 := makeQueueSet[A](n1, tier1.BufferSize, nP)
	if err := spawnProcessorTier[A, B](tier1, queues1, ids2, qmap2, wgmap2); err != nil {
		return nil, err
	}

	sd := newShutdown()
	if err := spawnProducers[A](producer, ids1, qmap1, wgmap1, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

func RunTopology3WithBatcher[A, B, C, D any](producer ProducerConfig[A], tier1 ProcessorConfig[A, B], tier2 ProcessorConfig[B, C], tier3 ProcessorConfig[C, D], batcher BatcherConfig[D]) (*Shutdown, error) {
	if err := validateProducer(producer); err != nil {
		return nil, err
	}

	nP := orDefaultInt(producer.Concurrency, DefaultConcurrency)
	n1 := orDefaultInt(tier1.Concurrency, DefaultConcurrency)
	n2 := orDefaultInt(tier2.Concurrency, DefaultConcurrency)
	n3 := orDefaultInt(tier3.Concurrency, DefaultConcurrency)
	nB := orDefaultInt(batcher.Concurrency, DefaultConcurrency)

	idsB, queuesB, qmapB, wgmapB := makeQueueSet[D](nB, batcher.BufferSize, n3)
	spawnBatcherTier[D](batcher, queuesB)

	ids3, queues3, qmap3, wgmap3 := makeQueueSet[C](n3, tier3.BufferSize, n2)
	if err := spawnProcessorTier[C, D](tier3, queues3, idsB, qmapB, wgmapB); err != nil {
		return nil, err
	}

	ids2, queues2, qmap2, wgmap2 := makeQueueSet[B](n2, tier2.BufferSize, n1)
	if err := spawnProcessorTier[B, C](tier2, queues2, ids3, qmap3, wgmap3); err != nil {
		return nil, err
	}

	ids1, queues1, qmap1, wgmap1 := makeQueueSet[A](n1, tier1.BufferSize, nP)
	if err := spawnProcessorTier[A, B](tier1, queues1, ids2, qmap2, wgmap2); err != nil {
		return nil, err
	}

	sd := newShutdown()
	if err := spawnProducers[A](producer, ids1, qmap1, wgmap1, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

// --- four processor tiers ---

func RunTopology4[A, B, C, D, E any](producer ProducerConfig[A], tier1 ProcessorConfig[A, B], tier2 ProcessorConfig[B, C], tier3 ProcessorConfig[C, D], tier4 TerminalConfig[D, E]) (*Shutdown, error) {
	if err := validateProducer(producer); err != nil {
		return nil, err
	}

	nP := orDefaultInt(producer.Concurrency, DefaultConcurrency)
	n1 := orDefaultInt(tier1.Concurrency, DefaultConcurrency)
	n2 := orDefaultInt(tier2.Concurrency, DefaultConcurrency)
	n3 := orDefaultInt(tier3.Concurrency, DefaultConcurrency)
	n4 := orDefaultInt(tier4.Concurrency, DefaultConcurrency)

	ids4, queues4, qmap4, wgmap4 := makeQueueSet[D](n4, tier4.BufferSize, n3)
	spawnTerminalTier[D, E](tier4, queues4)

	ids3, queues3, qmap3, wgmap3 := makeQueueSet[C](n3, tier3.BufferSize, n2)
	if err := spawnProcessorTier[C, D](tier3, queues3, ids4, qmap4, wgmap4); err != nil {
		return nil, err
	}

	ids2, queues2, qmap2, wgmap2 := makeQueueSet[B](n2, tier2.BufferSize, n1)
	if err := spawnProcessorTier[B, C](tier2, queues2, ids3, qmap3, wgmap3); err != nil {
		return nil, err
	}

	ids1, queues1, qmap1, wgmap1 := makeQueueSet[A](n1, tier1.BufferSize, nP)
	if err := spawnProcessorTier[A, B](tier1, queues1, ids2, qmap2, wgmap2); err != nil {
		return nil, err
	}

	sd := newShutdown()
	if err := spawnProducers[A](producer, ids1, qmap1, wgmap1, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

func RunTopology4WithBatcher[A, B, C, D, E any](producer ProducerConfig[A], tier1 ProcessorConfig[A, B], tier2 ProcessorConfig[B, C], tier3 ProcessorConfig[C, D], tier4 ProcessorConfig[D, E], batcher BatcherConfig[E]) (*Shutdown, error) {
	if err := validateProducer(producer); err != nil {
		return nil, err
	}

	nP := orDefaultInt(producer.Concurrency, DefaultConcurrency)
	n1 := orDefaultInt(tier1.Concurrency, DefaultConcurrency)
	n2 := orDefaultInt(tier2.Concurrency, DefaultConcurrency)
	n3 := orDefaultInt(tier3.Concurrency, DefaultConcurrency)
	n4 := orDefaultInt(tier4.Concurrency, DefaultConcurrency)
	nB := orDefaultInt(batcher.Concurrency, DefaultConcurrency)

	idsB, queuesB, qmapB, wgmapB := makeQueueSet[E](nB, batcher.BufferSize, n4)
	spawnBatcherTier[E](batcher, queuesB)

	ids4, queues4, qmap4, wgmap4 := makeQueueSet[D](n4, tier4.BufferSize, n3)
	if err := spawnProcessorTier[D, E](tier4, queues4, idsB, qmapB, wgmapB); err != nil {
		return nil, err
	}

	ids3, queues3, qmap3, wgmap3 := makeQueueSet[C](n3, tier3.BufferSize, n2)
	if err := spawnProcessorTier[C, D](tier3, queues3, ids4, qmap4, wgmap4); err != nil {
		return nil, err
	}

	ids2, queues2, qmap2, wgmap2 := makeQueueSet[B](n2, tier2.BufferSize, n1)
	if err := spawnProcessorTier[B, C](tier2, queues2, ids3, qmap3, wgmap3); err != nil {
		return nil, err
	}

	ids1, queues1, qmap1, wgmap1 := makeQueueSet[A](n1, tier1.BufferSize, nP)
	if err := spawnProcessorTier[A, B](tier1, queues1, ids2, qmap2, wgmap2); err != nil {
		return nil, err
	}

	sd := newShutdown()
	if err := spawnProducers[A](producer, ids1, qmap1, wgmap1, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

// --- five processor tiers ---

func RunTopology5[A, B, C, D, E, F any](producer ProducerConfig[A], tier1 ProcessorConfig[A, B], tier2 ProcessorConfig[B, C], tier3 ProcessorConfig[C, D], tier4 ProcessorConfig[D, E], tier5 TerminalConfig[E, F]) (*Shutdown, error) {
	if err := validateProducer(producer); err != nil {
		return nil, err
	}

	nP := orDefaultInt(producer.Concurrency, DefaultConcurrency)
	n1 := orDefaultInt(tier1.Concurrency, DefaultConcurrency)
	n2 := orDefaultInt(tier2.Concurrency, DefaultConcurrency)
	n3 := orDefaultInt(tier3.Concurrency, DefaultConcurrency)
	n4 := orDefaultInt(tier4.Concurrency, DefaultConcurrency)
	n5 := orDefaultInt(tier5.Concurrency, DefaultConcurrency)

	ids5, queues5, qmap5, wgmap5 := makeQueueSet[E](n5, tier5.BufferSize, n4)
	spawnTerminalTier[E, F](tier5, queues5)

	ids4, queues4, qmap4, wgmap4 := makeQueueSet[D](n4, tier4.BufferSize, n3)
	if err := spawnProcessorTier[D, E](tier4, queues4, ids5, qmap5, wgmap5); err != nil {
		return nil, err
	}

	ids3, queues3, qmap3, wgmap3 := makeQueueSet[C](n3, tier3.BufferSize, n2)
	if err := spawnProcessorTier[C, D](tier3, queues3, ids4, qmap4, wgmap4); err != nil {
		return nil, err
	}

	ids2, queues2, qmap2, wgmap2 := makeQueueSet[B](n2, tier2.BufferSize, n1)
	if err := spawnProcessorTier[B, C](tier2, queues2, ids3, qmap3, wgmap3); err != nil {
		return nil, err
	}

	ids1, queues1, qmap1, wgmap1 := makeQueueSet[A](n1, tier1.BufferSize, nP)
	if err := spawnProcessorTier[A, B](tier1, queues1, ids2, qmap2, wgmap2); err != nil {
		return nil, err
	}

	sd := newShutdown()
	if err := spawnProducers[A](producer, ids1, qmap1, wgmap1, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

func RunTopology5WithBatcher[A, B, C, D, E, F any](producer ProducerConfig[A], tier1 ProcessorConfig[A, B], tier2 ProcessorConfig[B, C], tier3 ProcessorConfig[C, D], tier4 ProcessorConfig[D, E], tier5 ProcessorConfig[E, F], batcher BatcherConfig[F]) (*Shutdown, error) {
	if err := validateProducer(producer); err != nil {
		return nil, err
	}

	nP := orDefaultInt(producer.Concurrency, DefaultConcurrency)
	n1 := orDefaultInt(tier1.Concurrency, DefaultConcurrency)
	n2 := orDefaultInt(tier2.Concurrency, DefaultConcurrency)
	n3 := orDefaultInt(tier3.Concurrency, DefaultConcurrency)
	n4 := orDefaultInt(tier4.Concurrency, DefaultConcurrency)
	n5 := orDefaultInt(tier5.Concurrency, DefaultConcurrency)
	nB := orDefaultInt(batcher.Concurrency, DefaultConcurrency)

	idsB, queuesB, qmapB, wgmapB := makeQueueSet[F](nB, batcher.BufferSize, n5)
	spawnBatcherTier[F](batcher, queuesB)

	ids5, queues5, qmap5, wgmap5 := makeQueueSet[E](n5, tier5.BufferSize, n4)
	if err := spawnProcessorTier[E, F](tier5, queues5, idsB, qmapB, wgmapB); err != nil {
		return nil, err
	}

	ids4, queues4, qmap4, wgmap4 := makeQueueSet[D](n4, tier4.BufferSize, n3)
	if err := spawnProcessorTier[D, E](tier4, queues4, ids5, qmap5, wgmap5); err != nil {
		return nil, err
	}

	ids3, queues3, qmap3, wgmap3 := makeQueueSet[C](n3, tier3.BufferSize, n2)
	if err := spawnProcessorTier[C, D](tier3, queues3, ids4, qmap4, wgmap4); err != nil {
		return nil, err
	}

	ids2, queues2, qmap2, wgmap2 := makeQueueSet[B](n2, tier2.BufferSize, n1)
	if err := spawnProcessorTier[B, C](tier2, queues2, ids3, qmap3, wgmap3); err != nil {
		return nil, err
	}

	ids1, queues1, qmap1, wgmap1 := makeQueueSet[A](n1, tier1.BufferSize, nP)
	if err := spawnProcessorTier[A, B](tier1, queues1, ids2, qmap2, wgmap2); err != nil {
		return nil, err
	}

	sd := newShutdown()
	if err := spawnProducers[A](producer, ids1, qmap1, wgmap1, sd); err != nil {
		return nil, err
	}
	return sd, nil
}
