// Package util contains internal helpers (hashing, striping, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
)

// hashSeed is the process-global seed for the default hasher. A random seed
// per process keeps shard and stripe selection unpredictable across runs,
// which avoids accidental (or adversarial) hash clustering.
var hashSeed = maphash.MakeSeed()

// DefaultHasher returns a hash function for an arbitrary comparable key type,
// built on hash/maphash. It dispatches through the runtime's hashing of the
// key's memory representation, so it works for strings, integers, arrays, and
// struct keys alike without per-type switches.
func DefaultHasher[K comparable]() func(K) uint64 {
	return func(k K) uint64 { return maphash.Comparable(hashSeed, k) }
}

// XXStringHasher hashes string keys with xxHash. Prefer it over the default
// hasher for string-keyed caches where key hashing shows up in profiles; it
// is the fastest widely-used non-cryptographic string hash.
func XXStringHasher(s string) uint64 { return xxhash.Sum64String(s) }
