package cache

import "context"

// Cache is a concurrent, weight-bounded key/value map with approximate
// least-recently-used eviction. All methods are safe for concurrent use by
// multiple goroutines.
//
// Typical complexity is amortized O(1): a map lookup under a shard lock plus
// a buffered policy event; deque maintenance and eviction are batched and
// paid for by whichever caller trips a drain.
type Cache[K comparable, V any] interface {
	// Get returns the value for key and a boolean flag indicating presence.
	// A hit records recency, making the entry the most recently used.
	Get(key K) (V, bool)

	// Peek returns the value for key without recording recency.
	// Hit/miss metrics do not fire.
	Peek(key K) (V, bool)

	// Contains reports whether key is resident, without recency side effects.
	Contains(key K) bool

	// Put inserts or replaces the value for key.
	// Returns the previous value and true if the key was already resident.
	// An insert makes the entry most recently used; a replace keeps the
	// entry's position and only adjusts its weight.
	Put(key K, value V) (V, bool)

	// PutIfAbsent inserts only if key is not resident.
	// Returns (zero, true) on insert. If the key was present, returns the
	// existing value and false; the existing entry is treated as used.
	PutIfAbsent(key K, value V) (V, bool)

	// Replace updates the value only if key is resident.
	// Returns the previous value and true on success.
	Replace(key K, value V) (V, bool)

	// Remove deletes key if present and returns the removed value.
	// Explicit removal does not invoke the OnEvict listener.
	Remove(key K) (V, bool)

	// GetOrLoad returns the value for key, loading it via Options.Loader on
	// miss. Concurrent loads for the same key are coalesced (singleflight).
	// If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, key K) (V, error)

	// Len returns the number of resident entries.
	Len() int

	// WeightedSize returns the combined weight of resident entries as of
	// the last drain. Call Drain first for an exact figure.
	WeightedSize() int64

	// Capacity returns the maximum combined weight before eviction.
	Capacity() int64

	// SetCapacity changes the maximum combined weight. Shrinking evicts
	// least-recently-used entries until the new bound holds. Panics if
	// capacity is negative.
	SetCapacity(capacity int64)

	// Drain applies all buffered events, evicts down to capacity, and
	// delivers pending listener notifications before returning.
	Drain()

	// Clear removes every entry. Cleared entries do not invoke the OnEvict
	// listener.
	Clear()

	// Range calls fn for each entry until fn returns false. Iteration order
	// is unspecified; recency is not recorded. fn may call back into the
	// cache.
	Range(fn func(key K, value V) bool)

	// OrderedKeys returns up to limit resident keys in eviction order,
	// least recently used first. limit <= 0 returns all keys.
	OrderedKeys(limit int) []K
}
