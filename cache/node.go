package cache

import "sync/atomic"

// Node lifecycle. A node is alive while it is resident, retired once it has
// been taken out of either the table or the order deque but not both, and
// dead once it is fully gone.
const (
	stateAlive int32 = iota
	stateRetired
	stateDead
)

// weightedValue is an immutable (value, weight) pair. The weight is computed
// exactly once, by the Weigher, when the pair is created. Readers obtain the
// whole pair through a single atomic pointer load, so a value and a weight
// from different writes can never be observed together.
type weightedValue[V any] struct {
	value  V
	weight int64
}

// node is an entry shared between the backing table and the eviction deque.
//
// Field ownership is strict:
//   - key is immutable.
//   - wv is swapped by writers (under the owning shard's lock) and loaded
//     anywhere.
//   - prev/next/accounted are touched only while holding the eviction lock.
//   - state moves alive -> retired -> dead via atomics.
type node[K comparable, V any] struct {
	key K
	wv  atomic.Pointer[weightedValue[V]]

	// Deque links: head side is least recently used. nil links plus not
	// being the head means "not linked".
	prev *node[K, V]
	next *node[K, V]

	// accounted is the weight this node currently contributes to the
	// cache's weighted size. It can lag wv's weight until the node's
	// update event is replayed.
	accounted int64

	state atomic.Int32
}

func newNode[K comparable, V any](key K, value V, weight int64) *node[K, V] {
	n := &node[K, V]{key: key}
	n.wv.Store(&weightedValue[V]{value: value, weight: weight})
	return n
}

func (n *node[K, V]) loadValue() *weightedValue[V] { return n.wv.Load() }

// swapValue atomically installs a new (value, weight) pair and returns the
// prior one.
func (n *node[K, V]) swapValue(value V, weight int64) *weightedValue[V] {
	return n.wv.Swap(&weightedValue[V]{value: value, weight: weight})
}

// weight reads the current pair's weight.
func (n *node[K, V]) weight() int64 { return n.wv.Load().weight }

func (n *node[K, V]) alive() bool { return n.state.Load() == stateAlive }

// makeRetired transitions alive -> retired. Safe to call twice: the second
// caller (a racing removal and an eviction) simply loses the CAS.
func (n *node[K, V]) makeRetired() { n.state.CompareAndSwap(stateAlive, stateRetired) }

// makeDead marks the node fully removed. Terminal.
func (n *node[K, V]) makeDead() { n.state.Store(stateDead) }
