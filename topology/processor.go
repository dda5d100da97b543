package topology

import "context"

// ProcResult is the outcome of ProcessorHandler.HandleMessage: either
// Continue (drop the message, the handler already performed any side
// effects) or a value to forward through the router. PartitionKey must be
// set when (and only meaningfully used when) the outbound router uses
// Partition routing — spec.md §6.
type ProcResult[Out any] struct {
	dispatch     bool
	out          Out
	partitionKey string
}

// Continue reports that the processor handled the message and nothing
// should be forwarded downstream.
func Continue[Out any]() ProcResult[Out] {
	return ProcResult[Out]{}
}

// Dispatched reports whether the result carries a value to forward, and
// if so, the value itself — the comma-ok idiom, for callers (tests, or
// handlers composing another handler's result) that need to inspect a
// ProcResult without a live router to dispatch it through.
func (r ProcResult[Out]) Dispatched() (Out, bool) {
	return r.out, r.dispatch
}

// Dispatch forwards out through the router. partitionKey is ignored unless
// the router uses Partition routing, in which case it must be non-empty.
func Dispatch[Out any](out Out, partitionKey string) ProcResult[Out] {
	return ProcResult[Out]{dispatch: true, out: out, partitionKey: partitionKey}
}

// ProcessorHandler is the processor contract from spec.md §6.
type ProcessorHandler[In, Out any] interface {
	Init(ctx context.Context)
	HandleMessage(ctx context.Context, msg In) ProcResult[Out]
	Terminate(ctx context.Context)
}

// processorWorker runs the event loop described in spec.md §4.4. router is
// nil for a terminal processor tier (no downstream).
type processorWorker[In, Out any] struct {
	handler ProcessorHandler[In, Out]
	inbound *Queue[In]
	router  *Router[Out]
}

func (w *processorWorker[In, Out]) run(ctx context.Context) {
	if w.router != nil {
		defer w.router.Close()
	}

	w.handler.Init(ctx)

	for {
		msg, ok := w.inbound.Receive()
		if !ok {
			break
		}

		result := w.handler.HandleMessage(ctx, msg)
		if !result.dispatch || w.router == nil {
			continue
		}

		// Dispatch errors are swallowed: the router's own policy (drop on
		// closed destination) is the correct behavior for a mid-pipeline
		// stage, per spec.md §4.4 and §7 item 3.
		_, _ = w.router.Dispatch(ctx, result.out, result.partitionKey)
	}

	w.handler.Terminate(ctx)
}
