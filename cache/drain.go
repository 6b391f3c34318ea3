package cache

import "sync"

// Drain scheduling status. The two processing states exist so a write that
// lands while a drain is running is never forgotten: it flips the status to
// processingToRequired, which forces the final idle transition to fail and
// the drain to be rescheduled.
const (
	// drainIdle: no maintenance needed.
	drainIdle int32 = iota
	// drainRequired: buffered events await a coordinator.
	drainRequired
	// drainProcessingToIdle: a drain is running and expects to go idle.
	drainProcessingToIdle
	// drainProcessingToRequired: a drain is running but more work arrived.
	drainProcessingToRequired
)

// afterRead schedules maintenance after a recency event was offered to a
// stripe. Reads defer as long as they can: only a stripe at its threshold,
// or an already-required drain, makes the reader volunteer.
func (c *cache[K, V]) afterRead(delayable bool) {
	if c.shouldDrainAfterRead(delayable) {
		c.tryDrain()
	}
}

func (c *cache[K, V]) shouldDrainAfterRead(delayable bool) bool {
	switch c.drainStatus.Load() {
	case drainIdle:
		return !delayable
	case drainRequired:
		return true
	default:
		// A drain is in flight; it will observe the buffers.
		return false
	}
}

// afterWrite schedules maintenance after a structural event was queued.
// Writes always demand a drain; the CAS loop folds the demand into whatever
// state the machine is in.
func (c *cache[K, V]) afterWrite() {
	for {
		status := c.drainStatus.Load()
		switch status {
		case drainIdle:
			c.drainStatus.CompareAndSwap(drainIdle, drainRequired)
			c.tryDrain()
			return
		case drainRequired:
			c.tryDrain()
			return
		case drainProcessingToIdle:
			if c.drainStatus.CompareAndSwap(drainProcessingToIdle, drainProcessingToRequired) {
				return
			}
		case drainProcessingToRequired:
			return
		default:
			panic("cache: invalid drain status")
		}
	}
}

// tryDrain makes one opportunistic attempt to become the coordinator.
// Losing the TryLock is the normal, silent outcome: whoever holds the lock
// is already doing the work, and our event is safely buffered. The winner
// repeats until the status no longer demands another pass, so a write that
// slipped in mid-drain is absorbed before the lock goes cold.
func (c *cache[K, V]) tryDrain() {
	for {
		if c.drainStatus.Load() >= drainProcessingToIdle {
			return
		}
		if !c.evictionMu.TryLock() {
			return
		}
		c.maintenance()
		c.evictionMu.Unlock()
		c.notifyListener()
		if c.drainStatus.Load() != drainRequired {
			return
		}
	}
}

// maintenance runs one full drain cycle. The caller must hold evictionMu.
//
// Order matters: read stripes replay before the write queue so that a
// buffered access to an entry precedes the write that might push the deque
// over capacity — otherwise a just-refreshed entry could be chosen as the
// victim its own access should have saved.
func (c *cache[K, V]) maintenance() {
	c.drainStatus.Store(drainProcessingToIdle)

	events := 0
	for _, b := range c.readBuffers {
		events += b.drain(c.applyRead)
	}
	for _, e := range c.writes.swap() {
		c.applyWrite(e)
		events++
	}
	c.evictOverflow()

	if events > 0 {
		c.metrics.RecordDrain(events)
	}
	c.metrics.RecordSize(c.deque.len(), c.weightedSize.Load())

	if !c.drainStatus.CompareAndSwap(drainProcessingToIdle, drainIdle) {
		// A write raced in; leave the demand visible.
		c.drainStatus.Store(drainRequired)
	}
}

// applyRead replays one recency event. An unlinked node means the access
// raced an eviction or removal, or its own add has not been replayed yet;
// either way there is no order to refresh.
func (c *cache[K, V]) applyRead(n *node[K, V]) {
	if c.deque.contains(n) {
		c.deque.moveToTail(n)
	}
}

// applyWrite replays one structural event. Every branch is guarded by node
// and link state, which makes replay idempotent: events for a node that was
// already evicted, or that raced its own removal, degrade to no-ops instead
// of corrupting the weight accounting.
func (c *cache[K, V]) applyWrite(e writeEvent[K, V]) {
	n := e.node
	switch e.kind {
	case writeAdd:
		// A node that was removed before its add replayed must not be
		// linked; its remove event will find it unlinked and both sides
		// skip the weight.
		if n.alive() && !c.deque.contains(n) {
			c.deque.pushTail(n)
			w := n.weight()
			n.accounted = w
			c.weightedSize.Add(w)
		}
	case writeUpdate:
		// Weight adjustment only — an update deliberately does not touch
		// recency order. accounted absorbs the delta even when several
		// updates to one node land in the same batch.
		if c.deque.contains(n) {
			w := n.weight()
			c.weightedSize.Add(w - n.accounted)
			n.accounted = w
		}
	case writeRemove:
		if c.deque.contains(n) {
			c.deque.unlink(n)
			c.weightedSize.Add(-n.accounted)
			n.accounted = 0
		}
		n.makeDead()
	}
}

// evictOverflow pops victims from the cold end until the weighted size fits
// the capacity again. Each iteration strictly shrinks the weighted size, so
// the loop always terminates. The caller must hold evictionMu.
func (c *cache[K, V]) evictOverflow() {
	for c.weightedSize.Load() > c.capacity.Load() {
		victim := c.deque.firstWeighted()
		if victim == nil {
			return
		}
		c.deque.unlink(victim)
		victim.makeRetired()

		// Only a successful conditional removal is an eviction. If an
		// explicit Remove (or a replacing insert) already took the key,
		// the user observed that operation — reporting an eviction too
		// would double-count the entry's demise.
		evicted := c.table.removeIfSame(victim)

		w := victim.accounted
		victim.accounted = 0
		c.weightedSize.Add(-w)
		victim.makeDead()

		if evicted {
			c.metrics.RecordEviction(w)
			if c.onEvict != nil {
				wv := victim.loadValue()
				c.pendingNotifications.push(notification[K, V]{key: victim.key, value: wv.value})
			}
		}
	}
}

// notification is one eviction callback awaiting delivery.
type notification[K comparable, V any] struct {
	key   K
	value V
}

// notifyQueue is the FIFO of eviction notifications produced under the
// eviction lock and delivered after it is released.
type notifyQueue[K comparable, V any] struct {
	mu    sync.Mutex
	head  int
	items []notification[K, V]
}

func (q *notifyQueue[K, V]) push(n notification[K, V]) {
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()
}

func (q *notifyQueue[K, V]) pop() (notification[K, V], bool) {
	q.mu.Lock()
	if q.head == len(q.items) {
		q.mu.Unlock()
		var zero notification[K, V]
		return zero, false
	}
	n := q.items[q.head]
	q.items[q.head] = notification[K, V]{} // release references
	q.head++
	if q.head == len(q.items) {
		q.head = 0
		q.items = q.items[:0]
	}
	q.mu.Unlock()
	return n, true
}

func (q *notifyQueue[K, V]) empty() bool {
	q.mu.Lock()
	empty := q.head == len(q.items)
	q.mu.Unlock()
	return empty
}

// notifyListener delivers pending eviction notifications in FIFO order.
// Call only without holding evictionMu. Delivery is single-flighted through
// the notifying flag so callbacks from overlapping drains never interleave;
// after releasing the flag the deliverer re-checks the queue to cover a
// coordinator that enqueued in the gap.
func (c *cache[K, V]) notifyListener() {
	if c.onEvict == nil {
		return
	}
	for c.notifying.CompareAndSwap(false, true) {
		for {
			n, ok := c.pendingNotifications.pop()
			if !ok {
				break
			}
			c.deliver(n)
		}
		c.notifying.Store(false)
		if c.pendingNotifications.empty() {
			return
		}
	}
}

// deliver invokes the listener for one entry, isolating failures: the state
// the notification describes was fully applied before delivery started, so
// a panicking listener can be reported and skipped.
func (c *cache[K, V]) deliver(n notification[K, V]) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Interface("key", n.key).
				Interface("panic", r).
				Msg("eviction listener panicked")
		}
	}()
	c.onEvict(n.key, n.value)
}
