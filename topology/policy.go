package topology

// RoutingPolicy selects how a Router distributes messages across the
// destinations of the next tier. See spec.md §4.2.
type RoutingPolicy int

const (
	// RoundRobin cycles through destinations with a non-blocking try-send,
	// skipping full peers so a single slow consumer cannot stall dispatch
	// while idle peers exist.
	RoundRobin RoutingPolicy = iota

	// Broadcast clones the message to every destination but the last,
	// which receives the original value, using a blocking send throughout.
	Broadcast

	// Partition routes by a consistent-hash of the caller-supplied
	// partition key, using a blocking send to the single assigned
	// destination.
	Partition
)

func (p RoutingPolicy) String() string {
	switch p {
	case RoundRobin:
		return "round_robin"
	case Broadcast:
		return "broadcast"
	case Partition:
		return "partition"
	default:
		return "unknown"
	}
}
