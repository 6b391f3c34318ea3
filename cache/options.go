package cache

import (
	"context"

	"github.com/rs/zerolog"
)

// DefaultDrainThreshold is the number of pending read events in a single
// stripe at which the reading goroutine stops deferring and attempts a
// drain. Options.DrainThreshold overrides it per cache.
const DefaultDrainThreshold = 32

// Weigher computes the weight of a value when it is inserted or replaced.
// Results must be >= 0. A weight of 0 is legal: the entry takes no capacity
// and is never evicted to make room, but behaves normally otherwise.
type Weigher[V any] func(value V) int64

// Metrics exposes cache-level observability hooks. All methods must be safe
// for concurrent use and cheap: Record{Hit,Miss} sit on the read path.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	RecordHit()
	RecordMiss()
	// RecordEviction is called once per capacity eviction with the weight
	// the entry was occupying.
	RecordEviction(weight int64)
	// RecordDrop is called when a read stripe sheds a recency event under
	// pressure. Structural events are never dropped.
	RecordDrop()
	// RecordDrain reports a completed maintenance pass and how many
	// buffered events it applied.
	RecordDrain(events int)
	// RecordSize reports entry count and total weight after a maintenance
	// pass, when both are exact.
	RecordSize(entries int, weighted int64)
}

// Options configures the cache. Zero values are safe; defaults are applied
// in New():
//   - nil Weigher   => every entry weighs 1 (Capacity is an entry count)
//   - Shards <= 0   => auto (≈ 2*GOMAXPROCS, power of two)
//   - Stripes <= 0  => auto (≈ GOMAXPROCS, power of two)
//   - DrainThreshold == 0 => DefaultDrainThreshold
//   - nil Hasher    => maphash-based default
//   - nil Metrics   => NoopMetrics
//   - nil Logger    => logging disabled
//
// Invalid values (negative Capacity, out-of-range DrainThreshold) make
// New panic.
type Options[K comparable, V any] struct {
	// Capacity bounds the total weight of resident entries. With the
	// default Weigher this is simply the maximum number of entries.
	// Capacity 0 is legal and keeps the cache empty of weighted entries.
	Capacity int64

	// Weigher assigns each value its weight at insert/replace time.
	Weigher Weigher[V]

	// OnEvict is invoked once per entry evicted to satisfy Capacity, in
	// eviction (least-recently-used first) order, after the eviction lock
	// has been released. Entries removed explicitly (Remove, Clear) do not
	// trigger it. A panic inside the callback is recovered and logged; it
	// never corrupts the cache or stops later notifications.
	OnEvict func(key K, value V)

	// Shards is the backing table's partition count. 0 picks a default
	// from GOMAXPROCS; values are rounded up to a power of two.
	Shards int

	// Stripes is the number of read-event rings. 0 picks a default from
	// GOMAXPROCS; values are rounded up to a power of two.
	Stripes int

	// DrainThreshold overrides DefaultDrainThreshold. Must be in
	// [1, 4*DefaultDrainThreshold] — past one ring's capacity a read
	// could never trigger maintenance at all.
	DrainThreshold int

	// Hasher overrides key hashing for shard and stripe selection.
	// The default handles every comparable key type; supply
	// util.XXStringHasher for string-keyed caches on hot paths.
	Hasher func(K) uint64

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, key K) (V, error)

	// Metrics receives observability signals; nil => NoopMetrics.
	Metrics Metrics

	// Logger receives listener failure reports. Nil disables logging.
	Logger *zerolog.Logger
}
