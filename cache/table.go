package cache

import (
	"sync"

	"github.com/boundedmap/boundedmap/internal/util"
)

// table is the backing key→node store: a hash map split into independently
// locked shards. It provides per-key atomicity and nothing else — ordering,
// weights, and eviction are the coordinator's business. Both the table and
// the deque reference the same node instances.
type table[K comparable, V any] struct {
	shards []*tableShard[K, V]
	hash   func(K) uint64
}

// tableShard is one partition: a plain map under an RWMutex. Reads take the
// read lock; every structural write holds the write lock while it both
// mutates the map and appends its event to the write queue, pinning per-key
// event order to per-key mutation order.
type tableShard[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]*node[K, V]
}

func newTable[K comparable, V any](shards int, hash func(K) uint64) *table[K, V] {
	t := &table[K, V]{
		shards: make([]*tableShard[K, V], shards),
		hash:   hash,
	}
	for i := range t.shards {
		t.shards[i] = &tableShard[K, V]{items: make(map[K]*node[K, V])}
	}
	return t
}

// shard picks a partition by hashing the key and masking with len-1.
// len(t.shards) is guaranteed to be a power of two.
func (t *table[K, V]) shard(h uint64) *tableShard[K, V] {
	return t.shards[util.ShardIndex(h, len(t.shards))]
}

func (t *table[K, V]) get(h uint64, key K) (*node[K, V], bool) {
	s := t.shard(h)
	s.mu.RLock()
	n, ok := s.items[key]
	s.mu.RUnlock()
	return n, ok
}

// removeIfSame deletes the mapping for n.key only if it still points at this
// exact node. The coordinator uses it while evicting: when a racing explicit
// Remove (or a replacement insert) already won the key, the eviction must
// not clobber the newer mapping — and must not report an eviction either.
func (t *table[K, V]) removeIfSame(n *node[K, V]) bool {
	s := t.shard(t.hash(n.key))
	s.mu.Lock()
	cur, ok := s.items[n.key]
	if !ok || cur != n {
		s.mu.Unlock()
		return false
	}
	delete(s.items, n.key)
	s.mu.Unlock()
	return true
}

// len is the resident entry count summed across shards. Snapshot semantics:
// concurrent writers may move the true count while the sum is taken.
func (t *table[K, V]) len() int {
	total := 0
	for _, s := range t.shards {
		s.mu.RLock()
		total += len(s.items)
		s.mu.RUnlock()
	}
	return total
}

// snapshotShard copies one shard's nodes so callers can iterate without
// holding the shard lock (the visiting function may well call back into the
// cache).
func (t *table[K, V]) snapshotShard(i int) []*node[K, V] {
	s := t.shards[i]
	s.mu.RLock()
	nodes := make([]*node[K, V], 0, len(s.items))
	for _, n := range s.items {
		nodes = append(nodes, n)
	}
	s.mu.RUnlock()
	return nodes
}
