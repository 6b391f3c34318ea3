// Package cache provides a generic, concurrent, in-memory map bounded by a
// configurable total weight, with approximate least-recently-used eviction,
// eviction listener callbacks, optional singleflight loading, and lightweight
// metrics hooks.
//
// Design
//
//   - Storage: a hash table split into power-of-two shards, each an RWMutex
//     around a map[K]*node. The default shard count is chosen by a heuristic
//     and scales with GOMAXPROCS. Lookups touch exactly one shard.
//
//   - Ordering: a single intrusive doubly linked deque spanning all shards,
//     head = least recently used, tail = most recently used. The deque is
//     owned by one lock (the eviction lock) and is never touched on the
//     read or write fast paths.
//
//   - Buffers: operations record policy events instead of taking the
//     eviction lock. Reads go to per-stripe lossy ring buffers — when a
//     stripe is full the event is dropped, trading a little recency
//     precision for zero contention. Structural writes (insert, update,
//     remove) go to a lossless queue and are never dropped.
//
//   - Drain: buffered events are replayed in batches under the eviction
//     lock, acquired with TryLock so at most one goroutine maintains the
//     deque while the rest keep serving. A full stripe or any structural
//     write schedules the next drain. Read replay precedes write replay,
//     so a read that happened before a capacity-breaching insert counts
//     before the victim is chosen.
//
//   - Weights: each value's weight comes from Options.Weigher (default 1
//     per entry). Eviction removes from the head until total weight fits
//     Capacity again. Zero-weight entries occupy no capacity and are never
//     evicted to make room.
//
//   - Listener: Options.OnEvict(k, v) is called once per capacity eviction,
//     in eviction order, outside all locks. A panicking listener is logged
//     and does not break the cache. Explicit Remove and Clear do not
//     notify.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using
//     singleflight. If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives hit/miss/eviction/drain signals.
//     By default NoopMetrics is used; plug a Prometheus adapter to export.
//
// Basic usage
//
//	// A cache holding at most 10k unit-weight entries.
//	c := cache.New[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	c.Put("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Remove("a")
//
// Bounding by memory, not count
//
//	c := cache.New[string, []byte](cache.Options[string, []byte]{
//	    Capacity: 64 << 20, // 64 MiB of values
//	    Weigher:  func(v []byte) int64 { return int64(len(v)) },
//	})
//
// Observing evictions
//
//	c := cache.New[string, string](cache.Options[string, string]{
//	    Capacity: 1024,
//	    OnEvict: func(k, v string) {
//	        log.Printf("evicted %s", k)
//	    },
//	})
//
// With GetOrLoad (singleflight)
//
//	c := cache.New[string, string](cache.Options[string, string]{
//	    Capacity: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        // e.g. fetch from DB
//	        return "v:" + k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(context.Background(), "key")
//
// Exporting metrics (example Prometheus adapter)
//
//	m := prom.New(nil, "boundedmap", "demo", nil)
//	c := cache.New[string, []byte](cache.Options[string, []byte]{
//	    Capacity: 10_000,
//	    Metrics:  m,
//	})
//
// Consistency model
//
// All methods are safe for concurrent use. Get, Put, and Remove are
// linearizable with respect to the table: a Get observes the latest
// completed Put for its key. Recency order, WeightedSize, and eviction are
// eventually consistent — they converge when buffered events drain. Drain()
// forces the convergence point; eviction may run briefly above Capacity
// between drains, never unboundedly (structural events are lossless).
//
// See options.go for all available Options fields.
package cache
