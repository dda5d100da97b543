package topology

import (
	"context"
	"sync"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(RouterTestSuite))

type RouterTestSuite struct{}

func buildQueueMap(ids []string, capacity int) map[string]*Queue[int] {
	m := make(map[string]*Queue[int], len(ids))
	for _, id := range ids {
		m[id] = NewQueue[int](capacity)
	}
	return m
}

func (s *RouterTestSuite) TestRoundRobinCycles(c *gc.C) {
	ids := []string{"a", "b", "c"}
	queues := buildQueueMap(ids, 10)
	r, err := NewRouter[int](RoundRobin, ids, queues, nil)
	c.Assert(err, gc.IsNil)

	for i := 0; i < 6; i++ {
		_, err := r.Dispatch(context.Background(), i, "")
		c.Assert(err, gc.IsNil)
	}

	for _, id := range ids {
		c.Assert(len(queues[id].ch), gc.Equals, 2)
	}
}

func (s *RouterTestSuite) TestRoundRobinSkipsFullDestination(c *gc.C) {
	ids := []string{"a", "b"}
	queues := map[string]*Queue[int]{"a": NewQueue[int](1), "b": NewQueue[int](2)}
	r, err := NewRouter[int](RoundRobin, ids, queues, nil)
	c.Assert(err, gc.IsNil)

	_, err = r.Dispatch(context.Background(), 1, "") // cursor 0 -> "a" (now full)
	c.Assert(err, gc.IsNil)
	_, err = r.Dispatch(context.Background(), 2, "") // cursor 1 -> "b"
	c.Assert(err, gc.IsNil)
	_, err = r.Dispatch(context.Background(), 3, "") // cursor 0 -> "a" full, skip to "b"
	c.Assert(err, gc.IsNil)

	c.Assert(len(queues["a"].ch), gc.Equals, 1)
	c.Assert(len(queues["b"].ch), gc.Equals, 2)
}

func (s *RouterTestSuite) TestRoundRobinRemovesClosedDestination(c *gc.C) {
	ids := []string{"a", "b"}
	queues := buildQueueMap(ids, 10)
	r, err := NewRouter[int](RoundRobin, ids, queues, nil)
	c.Assert(err, gc.IsNil)

	queues["a"].Close()

	for i := 0; i < 5; i++ {
		_, err := r.Dispatch(context.Background(), i, "")
		c.Assert(err, gc.IsNil)
	}

	c.Assert(r.Len(), gc.Equals, 1)
	c.Assert(len(queues["b"].ch), gc.Equals, 5)
}

func (s *RouterTestSuite) TestRoundRobinSingleDestinationReportsNoDestinationsOnClose(c *gc.C) {
	ids := []string{"a"}
	queues := buildQueueMap(ids, 10)
	r, err := NewRouter[int](RoundRobin, ids, queues, nil)
	c.Assert(err, gc.IsNil)

	queues["a"].Close()

	_, err = r.Dispatch(context.Background(), 1, "")
	c.Assert(err, gc.Equals, ErrNoDestinations)
	c.Assert(r.Len(), gc.Equals, 0)
}

func (s *RouterTestSuite) TestBroadcastClonesToAllButLast(c *gc.C) {
	ids := []string{"a", "b", "c"}
	queues := buildQueueMap(ids, 10)
	r, err := NewRouter[int](Broadcast, ids, queues, nil)
	c.Assert(err, gc.IsNil)

	_, err = r.Dispatch(context.Background(), 42, "")
	c.Assert(err, gc.IsNil)

	for _, id := range ids {
		v, ok := queues[id].Receive()
		c.Assert(ok, gc.Equals, true)
		c.Assert(v, gc.Equals, 42)
	}
}

func (s *RouterTestSuite) TestBroadcastRequiresAtLeastOneDestination(c *gc.C) {
	r, err := NewRouter[int](Broadcast, nil, map[string]*Queue[int]{}, nil)
	c.Assert(err, gc.IsNil)

	_, err = r.Dispatch(context.Background(), 1, "")
	c.Assert(err, gc.Equals, ErrNoDestinations)
}

func (s *RouterTestSuite) TestPartitionStickiness(c *gc.C) {
	ids := []string{"a", "b"}
	queues := buildQueueMap(ids, 10)
	r, err := NewRouter[int](Partition, ids, queues, nil)
	c.Assert(err, gc.IsNil)

	for i := 0; i < 10; i++ {
		_, err := r.Dispatch(context.Background(), i, "admin")
		c.Assert(err, gc.IsNil)
	}

	aCount, bCount := len(queues["a"].ch), len(queues["b"].ch)
	c.Assert(aCount == 10 || bCount == 10, gc.Equals, true, gc.Commentf("all same-key messages should land on one destination"))
}

func (s *RouterTestSuite) TestPartitionRequiresKey(c *gc.C) {
	ids := []string{"a"}
	queues := buildQueueMap(ids, 10)
	r, err := NewRouter[int](Partition, ids, queues, nil)
	c.Assert(err, gc.IsNil)

	_, err = r.Dispatch(context.Background(), 1, "")
	c.Assert(err, gc.Equals, ErrEmptyPartitionKey)
}

func (s *RouterTestSuite) TestPartitionRemovesDeadDestination(c *gc.C) {
	ids := []string{"a"}
	queues := buildQueueMap(ids, 10)
	r, err := NewRouter[int](Partition, ids, queues, nil)
	c.Assert(err, gc.IsNil)

	queues["a"].Close()

	_, err = r.Dispatch(context.Background(), 1, "admin")
	c.Assert(err, gc.Equals, ErrNotFound)
	c.Assert(r.Len(), gc.Equals, 0)
}

// TestPartitionSurvivorsStayReachableAfterRemoval guards against a ring
// keyed by destination position rather than destination id: with three
// destinations, removing the middle one must not silently strand the
// surviving destination that used to sit after it in the slice.
func (s *RouterTestSuite) TestPartitionSurvivorsStayReachableAfterRemoval(c *gc.C) {
	ids := []string{"a", "b", "c"}
	queues := buildQueueMap(ids, 10)
	r, err := NewRouter[int](Partition, ids, queues, nil)
	c.Assert(err, gc.IsNil)

	// Find a key that currently routes to "b" (the destination whose
	// removal would shift "c" down a slot if the ring were index-keyed).
	var keyForB string
	for _, k := range []string{"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7"} {
		node, ok := r.ring.GetNode(k)
		if ok && node == "b" {
			keyForB = k
			break
		}
	}
	c.Assert(keyForB, gc.Not(gc.Equals), "")

	queues["b"].Close()
	_, err = r.Dispatch(context.Background(), 1, keyForB)
	c.Assert(err, gc.Equals, ErrNotFound)
	c.Assert(r.Len(), gc.Equals, 2)

	// Every remaining id must still resolve to a queue actually present in
	// the router's destination table (not a stale position).
	for i := 0; i < 50; i++ {
		key := "probe" + string(rune('a'+i))
		node, ok := r.ring.GetNode(key)
		if !ok {
			continue
		}
		c.Assert(r.indexOfID(node) >= 0, gc.Equals, true, gc.Commentf("ring node %q has no matching destination", node))
	}

	_, err = r.Dispatch(context.Background(), 2, "admin")
	c.Assert(err, gc.IsNil)
}

func (s *RouterTestSuite) TestNewRouterRejectsDuplicateIDs(c *gc.C) {
	q := NewQueue[int](10)
	queues := map[string]*Queue[int]{"a": q}
	_, err := NewRouter[int](RoundRobin, []string{"a", "a"}, queues, nil)
	c.Assert(err, gc.Equals, ErrDuplicateDestination)
}

func (s *RouterTestSuite) TestNewRouterRejectsDuplicateQueueHandles(c *gc.C) {
	q := NewQueue[int](10)
	queues := map[string]*Queue[int]{"a": q, "b": q}
	_, err := NewRouter[int](RoundRobin, []string{"a", "b"}, queues, nil)
	c.Assert(err, gc.Equals, ErrDuplicateDestination)
}

func (s *RouterTestSuite) TestCloseReleasesWaitGroups(c *gc.C) {
	ids := []string{"a", "b"}
	queues := buildQueueMap(ids, 10)
	wgs := map[string]*sync.WaitGroup{}
	var wgA, wgB sync.WaitGroup
	wgA.Add(1)
	wgB.Add(1)
	wgs["a"], wgs["b"] = &wgA, &wgB

	r, err := NewRouter[int](RoundRobin, ids, queues, wgs)
	c.Assert(err, gc.IsNil)

	r.Close()

	// Close calls wg.Done() synchronously for every remaining destination,
	// so both counters are already at zero; Wait returning at all (rather
	// than hanging) is the assertion.
	wgA.Wait()
	wgB.Wait()
	c.Assert(r.Len(), gc.Equals, 0)
}
