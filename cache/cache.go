package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/boundedmap/boundedmap/internal/singleflight"
	"github.com/boundedmap/boundedmap/internal/util"
)

// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
var ErrNoLoader = errors.New("cache: no Loader configured")

// cache is the weight-bounded concurrent map. All methods are safe for
// concurrent use by multiple goroutines.
//
// Reads and writes go straight to the sharded table and then leave an event
// behind — reads in a lossy per-stripe ring, structural writes in the
// lossless write queue. Order bookkeeping, weight accounting, and eviction
// happen in amortized batches under evictionMu, taken with TryLock by
// whichever caller trips a drain.
type cache[K comparable, V any] struct {
	table   *table[K, V]
	hash    func(K) uint64
	weigher Weigher[V]
	onEvict func(key K, value V)
	loader  func(ctx context.Context, key K) (V, error)
	metrics Metrics
	log     zerolog.Logger

	readBuffers    []*readBuffer[K, V]
	writes         writeQueue[K, V]
	drainThreshold int64

	// Coordinator state. The deque and every node's links and accounted
	// weight are guarded by evictionMu. weightedSize and capacity are
	// written only under evictionMu but may be read lock-free.
	evictionMu   sync.Mutex
	deque        deque[K, V]
	_            util.CacheLinePad
	weightedSize util.PaddedAtomicInt64
	capacity     util.PaddedAtomicInt64
	drainStatus  atomic.Int32

	pendingNotifications notifyQueue[K, V]
	notifying            atomic.Bool

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// New constructs a cache with the provided Options. It panics on
// misconfiguration (negative Capacity, out-of-range DrainThreshold).
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	if opt.Capacity < 0 {
		panic("cache: Capacity must be >= 0")
	}
	if opt.DrainThreshold < 0 || opt.DrainThreshold > readBufferSize {
		panic(fmt.Sprintf("cache: DrainThreshold must be in [1, %d]", readBufferSize))
	}

	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	weigher := opt.Weigher
	if weigher == nil {
		weigher = func(V) int64 { return 1 }
	}
	hash := opt.Hasher
	if hash == nil {
		hash = util.DefaultHasher[K]()
	}
	logger := zerolog.Nop()
	if opt.Logger != nil {
		logger = *opt.Logger
	}

	shards := opt.Shards
	if shards <= 0 {
		shards = util.ReasonableShardCount()
	} else {
		shards = int(util.NextPow2(uint64(shards)))
	}
	stripes := opt.Stripes
	if stripes <= 0 {
		stripes = util.ReasonableStripeCount()
	} else {
		stripes = int(util.NextPow2(uint64(stripes)))
	}
	threshold := opt.DrainThreshold
	if threshold == 0 {
		threshold = DefaultDrainThreshold
	}

	c := &cache[K, V]{
		table:          newTable[K, V](shards, hash),
		hash:           hash,
		weigher:        weigher,
		onEvict:        opt.OnEvict,
		loader:         opt.Loader,
		metrics:        opt.Metrics,
		log:            logger,
		readBuffers:    make([]*readBuffer[K, V], stripes),
		drainThreshold: int64(threshold),
	}
	for i := range c.readBuffers {
		c.readBuffers[i] = &readBuffer[K, V]{}
	}
	c.capacity.Store(opt.Capacity)
	return c
}

// ---- Cache[K,V] implementation ----

// Get returns the value for key and a presence flag. A hit leaves a recency
// event in the key's stripe; the event may trigger a drain but Get itself
// never waits for one.
func (c *cache[K, V]) Get(key K) (V, bool) {
	h := c.hash(key)
	n, ok := c.table.get(h, key)
	if !ok {
		c.metrics.RecordMiss()
		var zero V
		return zero, false
	}
	c.metrics.RecordHit()
	wv := n.loadValue()
	c.recordRead(h, n)
	return wv.value, true
}

// Peek returns the value for key without recording recency: the entry's
// position in eviction order is unchanged and no metrics fire.
func (c *cache[K, V]) Peek(key K) (V, bool) {
	n, ok := c.table.get(c.hash(key), key)
	if !ok {
		var zero V
		return zero, false
	}
	return n.loadValue().value, true
}

// Contains reports whether key is resident, without recency side effects.
func (c *cache[K, V]) Contains(key K) bool {
	_, ok := c.table.get(c.hash(key), key)
	return ok
}

// Put inserts or replaces the value for key and returns the previous value,
// if any. The weight is computed here, once, via the Weigher.
func (c *cache[K, V]) Put(key K, value V) (V, bool) {
	return c.put(key, value, false)
}

// PutIfAbsent inserts only when key is not resident. It returns
// (zero, true) on insert, and (existing, false) when the key was already
// present — in which case the existing entry is refreshed as recently used
// and nothing is written.
func (c *cache[K, V]) PutIfAbsent(key K, value V) (V, bool) {
	prev, existed := c.put(key, value, true)
	return prev, !existed
}

// Replace swaps the value for key only if key is resident, returning the
// previous value. Like an update, it adjusts weight without refreshing
// recency.
func (c *cache[K, V]) Replace(key K, value V) (V, bool) {
	h := c.hash(key)
	w := c.weigh(value)
	s := c.table.shard(h)

	s.mu.Lock()
	prior, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		var zero V
		return zero, false
	}
	old := prior.swapValue(value, w)
	c.writes.push(writeEvent[K, V]{kind: writeUpdate, node: prior})
	s.mu.Unlock()

	c.afterWrite()
	return old.value, true
}

// Remove deletes key and returns the removed value, if any. Explicit
// removal is not an eviction: the OnEvict listener is not called.
func (c *cache[K, V]) Remove(key K) (V, bool) {
	h := c.hash(key)
	s := c.table.shard(h)

	s.mu.Lock()
	n, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		var zero V
		return zero, false
	}
	delete(s.items, key)
	n.makeRetired()
	prev := n.loadValue().value
	c.writes.push(writeEvent[K, V]{kind: writeRemove, node: n})
	s.mu.Unlock()

	c.afterWrite()
	return prev, true
}

// GetOrLoad returns the value for key; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// If no Loader is configured, returns ErrNoLoader.
func (c *cache[K, V]) GetOrLoad(ctx context.Context, key K) (V, error) {
	// fast path
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	if c.loader == nil {
		var zero V
		return zero, ErrNoLoader
	}

	return c.sf.Do(ctx, key, func() (V, error) {
		// double-check after flight join
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := c.loader(ctx, key)
		if err == nil {
			c.Put(key, v)
		}
		return v, err
	})
}

// Len returns the number of resident entries. It is exact with respect to
// the table; the deque converges to the same count at the next drain.
func (c *cache[K, V]) Len() int { return c.table.len() }

// WeightedSize returns the tracked total weight. It is authoritative
// immediately after Drain; between drains it can lag buffered writes.
func (c *cache[K, V]) WeightedSize() int64 { return c.weightedSize.Load() }

// Capacity returns the current weight bound.
func (c *cache[K, V]) Capacity() int64 { return c.capacity.Load() }

// SetCapacity updates the weight bound. Shrinking below the current
// weighted size evicts least-recently-used entries down to the new bound
// before returning; listener callbacks for those evictions are delivered
// after the lock is released, as usual. Panics on a negative capacity.
func (c *cache[K, V]) SetCapacity(capacity int64) {
	if capacity < 0 {
		panic("cache: Capacity must be >= 0")
	}
	c.evictionMu.Lock()
	c.capacity.Store(capacity)
	c.maintenance()
	c.evictionMu.Unlock()
	c.notifyListener()
}

// Drain blocks until every buffered event has been applied, pending
// notifications have been delivered, and the drain machine is idle. It is
// the explicit quiescence point: afterwards Len, WeightedSize, and eviction
// order are mutually consistent — until the next operation.
//
// Under continuous concurrent writes Drain chases a moving target and can
// loop; it is meant for shutdown barriers, tests, and capacity audits.
func (c *cache[K, V]) Drain() {
	for {
		c.evictionMu.Lock()
		c.maintenance()
		c.evictionMu.Unlock()
		c.notifyListener()
		if c.drained() {
			return
		}
	}
}

// Clear drains pending events and then discards every entry. Cleared
// entries are not evictions: no listener callbacks fire for them.
func (c *cache[K, V]) Clear() {
	c.evictionMu.Lock()
	c.drainStatus.Store(drainProcessingToIdle)

	// Apply what is queued first so the deque and table agree on
	// membership, then tear everything down.
	for _, b := range c.readBuffers {
		b.drain(c.applyRead)
	}
	for _, e := range c.writes.swap() {
		c.applyWrite(e)
	}
	for {
		n := c.deque.first()
		if n == nil {
			break
		}
		c.deque.unlink(n)
		n.makeRetired()
		c.table.removeIfSame(n)
		c.weightedSize.Add(-n.accounted)
		n.accounted = 0
		n.makeDead()
	}
	c.metrics.RecordSize(c.deque.len(), c.weightedSize.Load())

	if !c.drainStatus.CompareAndSwap(drainProcessingToIdle, drainIdle) {
		c.drainStatus.Store(drainRequired)
	}
	c.evictionMu.Unlock()
	c.notifyListener()
}

// Range calls fn for each resident entry until fn returns false. Iteration
// snapshots one shard at a time, so fn sees each entry at most once, holds
// no locks while it runs, and may call back into the cache freely. Order is
// unspecified; recency is not recorded.
func (c *cache[K, V]) Range(fn func(key K, value V) bool) {
	for i := range c.table.shards {
		for _, n := range c.table.snapshotShard(i) {
			if !fn(n.key, n.loadValue().value) {
				return
			}
		}
	}
}

// OrderedKeys drains and then returns up to limit resident keys in eviction
// order, coldest first. limit <= 0 means all keys. The snapshot is taken
// under the eviction lock, so it is internally consistent — useful for hot
// set export and warm-up dumps.
func (c *cache[K, V]) OrderedKeys(limit int) []K {
	c.evictionMu.Lock()
	c.maintenance()
	size := c.deque.len()
	if limit <= 0 || limit > size {
		limit = size
	}
	keys := make([]K, 0, limit)
	c.deque.walk(func(n *node[K, V]) bool {
		if len(keys) == limit {
			return false
		}
		keys = append(keys, n.key)
		return true
	})
	c.evictionMu.Unlock()
	c.notifyListener()
	return keys
}

// ---- helpers ----

// put is the shared insert/replace path. It returns the previous value and
// whether the key was already resident. The structural event is queued
// while the shard lock is held, which pins per-key event order to per-key
// mutation order; the drain attempt happens only after the lock is gone.
func (c *cache[K, V]) put(key K, value V, onlyIfAbsent bool) (prev V, existed bool) {
	h := c.hash(key)
	w := c.weigh(value)
	s := c.table.shard(h)

	s.mu.Lock()
	prior, ok := s.items[key]
	if ok {
		if onlyIfAbsent {
			wv := prior.loadValue()
			s.mu.Unlock()
			// The losing insert counts as a use of the existing entry.
			c.recordRead(h, prior)
			return wv.value, true
		}
		old := prior.swapValue(value, w)
		c.writes.push(writeEvent[K, V]{kind: writeUpdate, node: prior})
		s.mu.Unlock()
		c.afterWrite()
		return old.value, true
	}
	n := newNode(key, value, w)
	s.items[key] = n
	c.writes.push(writeEvent[K, V]{kind: writeAdd, node: n})
	s.mu.Unlock()
	c.afterWrite()
	return prev, false
}

// recordRead offers a recency event to the key's stripe and schedules a
// drain if the stripe got full enough. Drops are counted, never reported to
// the caller: the read has already happened.
func (c *cache[K, V]) recordRead(h uint64, n *node[K, V]) {
	b := c.readBuffers[util.StripeIndex(h, len(c.readBuffers))]
	pending, recorded := b.offer(n)
	if !recorded {
		c.metrics.RecordDrop()
	}
	c.afterRead(pending < c.drainThreshold)
}

// weigh runs the Weigher, rejecting negative results before any state has
// been touched.
func (c *cache[K, V]) weigh(value V) int64 {
	w := c.weigher(value)
	if w < 0 {
		panic("cache: Weigher returned a negative weight")
	}
	return w
}

// drained reports full quiescence: machine idle, all stripes and the write
// queue empty, no undelivered notifications.
func (c *cache[K, V]) drained() bool {
	if c.drainStatus.Load() != drainIdle {
		return false
	}
	for _, b := range c.readBuffers {
		if b.len() != 0 {
			return false
		}
	}
	return c.writes.len() == 0 && c.pendingNotifications.empty()
}
