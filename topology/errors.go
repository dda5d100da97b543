package topology

import "golang.org/x/xerrors"

// ErrNoDestinations is returned by a Router's Dispatch when the tier it
// routes to has no live destinations left. The message that could not be
// delivered is returned to the caller so it can be drained rather than lost.
var ErrNoDestinations = xerrors.New("topology: no destinations available")

// ErrNotFound is returned by a partition Router when the destination a
// message's partition key hashed to has just been removed from the ring.
// The core deliberately does not rebalance and redeliver; the caller drops
// the message for that partition instead.
var ErrNotFound = xerrors.New("topology: partition destination not found")

// ErrDuplicateDestination is returned by NewRouter when the same worker id
// or the same queue handle is registered more than once.
var ErrDuplicateDestination = xerrors.New("topology: duplicate router destination")

// ErrQueueClosed is returned by Queue.Send/TrySend once Close has been
// called on that queue.
var ErrQueueClosed = xerrors.New("topology: queue closed")

// ErrEmptyPartitionKey is returned when Dispatch is called under Partition
// routing without a partition key. Per spec this is a programmer error, not
// a recoverable runtime condition, but it is still reported rather than
// panicking so tests can assert on it.
var ErrEmptyPartitionKey = xerrors.New("topology: partition routing requires a non-empty partition key")

// ConfigError reports a build-time topology misconfiguration (bad shape,
// producer-with-partition routing, etc). Builder validation failures are
// aggregated with hashicorp/go-multierror before being returned, so callers
// can inspect every problem in one pass instead of fixing them one at a
// time.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "topology: " + e.Msg }

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{Msg: xerrors.Errorf(format, args...).Error()}
}
