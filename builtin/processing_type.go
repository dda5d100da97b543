// Package builtin holds concrete topology.ProducerHandler/ProcessorHandler
// implementations for real source/sink systems, starting with Kafka.
package builtin

import "time"

// ProcessingType controls the internal poll timeout that a built-in
// source uses while filling a producer's buffer. It has no effect on the
// topology package itself; only the adapters under builtin/ read it.
type ProcessingType struct {
	timeout time.Duration
}

// Poll timeouts carried over from original_source/src/topology.rs's
// PRODUCER_FILLBUFFER_TIMEOUT_REALTIME / _BATCH constants.
const (
	realTimeFillBufferTimeout = 2 * time.Millisecond
	batchFillBufferTimeout    = 50 * time.Millisecond
)

// RealTime favors latency: a short poll timeout returns whatever is
// already available rather than waiting for a full buffer.
var RealTime = ProcessingType{timeout: realTimeFillBufferTimeout}

// Batch favors throughput: a longer poll timeout lets more messages
// accumulate per fill_buffer call.
var Batch = ProcessingType{timeout: batchFillBufferTimeout}

// Custom sets an arbitrary fill-buffer poll timeout.
func Custom(d time.Duration) ProcessingType {
	return ProcessingType{timeout: d}
}

func (p ProcessingType) Timeout() time.Duration {
	return p.timeout
}
