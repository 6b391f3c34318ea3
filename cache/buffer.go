package cache

import (
	"sync"
	"sync/atomic"

	"github.com/boundedmap/boundedmap/internal/util"
)

// readBufferSize is the slot count of each stripe's ring. Sized at four
// drain thresholds so a stripe survives a few missed drain attempts before
// it starts shedding events.
const (
	readBufferSize = 4 * DefaultDrainThreshold
	readBufferMask = readBufferSize - 1
)

// readBuffer is one stripe of the lossy recency log: a fixed ring of atomic
// slots with monotonically increasing head/tail counters. Any goroutine may
// offer; only the drain coordinator consumes. Overflow and slot races drop
// the event on the floor — by then the read has already happened against the
// table, so the only loss is a little recency staleness.
//
// head and tail are padded onto their own cache lines; stripes are selected
// by key hash, so a hot key hammers one stripe's tail and must not share a
// line with its neighbour's counters.
type readBuffer[K comparable, V any] struct {
	head  util.PaddedAtomicUint64 // next slot to consume
	tail  util.PaddedAtomicUint64 // next slot to reserve
	slots [readBufferSize]atomic.Pointer[node[K, V]]
}

// offer records a read of n. It returns the stripe's pending event count and
// whether the event was actually recorded. A full ring or a lost reservation
// race returns recorded == false; the caller treats that as a silent drop.
func (b *readBuffer[K, V]) offer(n *node[K, V]) (pending int64, recorded bool) {
	head := b.head.Load()
	tail := b.tail.Load()
	size := int64(tail - head)
	if size >= readBufferSize {
		return size, false
	}
	if !b.tail.CompareAndSwap(tail, tail+1) {
		return size, false
	}
	b.slots[tail&readBufferMask].Store(n)
	return size + 1, true
}

// drain consumes published events in FIFO order, invoking fn for each, and
// returns how many were consumed. It stops early at a slot that has been
// reserved but not yet published; the reserving goroutine is between its CAS
// and its store, and the next drain will pick the event up.
//
// Single consumer: only the coordinator, holding the eviction lock, may call
// drain, so head needs no CAS.
func (b *readBuffer[K, V]) drain(fn func(*node[K, V])) int {
	drained := 0
	head := b.head.Load()
	tail := b.tail.Load()
	for head != tail {
		slot := &b.slots[head&readBufferMask]
		n := slot.Load()
		if n == nil {
			break
		}
		slot.Store(nil)
		fn(n)
		head++
		drained++
	}
	if drained > 0 {
		b.head.Store(head)
	}
	return drained
}

// len is the number of pending events (reserved slots count as pending).
func (b *readBuffer[K, V]) len() int64 {
	return int64(b.tail.Load() - b.head.Load())
}

// writeKind discriminates structural events.
type writeKind uint8

const (
	writeAdd writeKind = iota
	writeUpdate
	writeRemove
)

// writeEvent describes a structural change awaiting replay against the
// deque. Events reference nodes, not keys: replay guards on node state and
// link state, so replay stays idempotent under races.
type writeEvent[K comparable, V any] struct {
	kind writeKind
	node *node[K, V]
}

// writeQueue is the lossless FIFO for structural events. Unlike the read
// stripes it may not shed anything: a dropped add or remove would desynchronise
// the table and the deque permanently. It is a plain mutex-guarded slice —
// producers append while holding their table shard lock, which also fixes
// per-key event order, and the coordinator takes the whole batch in one swap.
//
// pending mirrors len(events) so "is anything queued" checks stay lock-free.
type writeQueue[K comparable, V any] struct {
	mu      sync.Mutex
	events  []writeEvent[K, V]
	pending atomic.Int64
}

func (q *writeQueue[K, V]) push(e writeEvent[K, V]) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.pending.Store(int64(len(q.events)))
	q.mu.Unlock()
}

// swap claims every queued event and empties the queue.
func (q *writeQueue[K, V]) swap() []writeEvent[K, V] {
	q.mu.Lock()
	events := q.events
	q.events = nil
	q.pending.Store(0)
	q.mu.Unlock()
	return events
}

func (q *writeQueue[K, V]) len() int64 { return q.pending.Load() }
