package topology

import "time"

// Default values applied by the builder whenever a caller passes a
// non-positive value, per spec.md §4.6. Names and magnitudes are carried
// over from original_source/src/topology.rs (CONCURRENCY, BUFFER_SIZE,
// BUFFER_POOL_SIZE, BATCH_SIZE, BATCH_TIMEOUT).
const (
	DefaultConcurrency     = 1
	DefaultBufferSize      = 10
	DefaultBufferPoolSize  = 100
	DefaultBatchSize       = 100
	DefaultBatchTimeout    = 50 * time.Millisecond
)

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
