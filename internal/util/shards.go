package util

import "runtime"

// ReasonableShardCount picks a practical default shard count for the backing
// table based on CPU parallelism. Heuristic: nextPow2(2*GOMAXPROCS), clamped
// to [1..256]. This sharply reduces lock contention without bloating memory
// overhead.
func ReasonableShardCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	// 2×CPU, round up to power of two, then clamp to 256.
	n := int(NextPow2(uint64(p * 2)))
	if n > 256 {
		n = 256
	}
	return n
}

// ReasonableStripeCount picks a default number of read-event stripes.
// Heuristic: nextPow2(GOMAXPROCS), clamped to [1..64]. One stripe per CPU is
// enough to spread recency traffic; past that the drain pass just gets
// longer for no contention win.
func ReasonableStripeCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	n := int(NextPow2(uint64(p)))
	if n > 64 {
		n = 64
	}
	return n
}

// ShardIndex maps a 64-bit hash to a shard index.
// Assumes shard count is a power of two for the fast mask path,
// but remains correct for arbitrary shard counts (uses modulo).
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	// Fast path if shard count is power of two.
	if IsPowerOfTwo(uint64(shards)) {
		return int(hash & uint64(shards-1))
	}
	return int(hash % uint64(shards))
}

// StripeIndex maps a hash to a read-buffer stripe. It consumes the upper
// half of the hash so stripe selection does not correlate with shard
// selection, which uses the low bits. Stripe counts are always powers of
// two.
func StripeIndex(hash uint64, stripes int) int {
	return int((hash >> 32) & uint64(stripes-1))
}
