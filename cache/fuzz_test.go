package cache

import (
	"strings"
	"testing"
)

// Fuzz basic Put/Get/Remove semantics under arbitrary string inputs.
// Guards against panics and ensures core invariants hold.
// NOTE: We cap key/value lengths to avoid pathological memory usage
// during fuzzing (this does not weaken the invariants we check).
func FuzzCache_PutGetRemove(f *testing.F) {
	// Seed corpus: empty, ASCII, Unicode, long strings.
	f.Add("", "")
	f.Add("a", "1")
	f.Add("b", "2")
	f.Add("αβγ", "δ")
	f.Add("emoji🙂", "🙂🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		// Cap lengths to keep memory bounded during fuzzing.
		const limit = 1 << 12 // 4096
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		c := New[string, string](Options[string, string]{Capacity: 16})

		// Put -> Get must return the same value.
		c.Put(k, v)
		got, ok := c.Get(k)
		if !ok || got != v {
			t.Fatalf("after Put/Get: want %q, got %q ok=%v", v, got, ok)
		}

		// PutIfAbsent on a resident key must not overwrite.
		if _, inserted := c.PutIfAbsent(k, "other"); inserted {
			t.Fatalf("PutIfAbsent on resident key reported an insert")
		}
		if got2, ok := c.Get(k); !ok || got2 != v {
			t.Fatalf("after conflicting PutIfAbsent: want %q, got %q ok=%v", v, got2, ok)
		}

		// Remove must delete and return the value exactly once.
		if removed, ok := c.Remove(k); !ok || removed != v {
			t.Fatalf("Remove = (%q, %v), want (%q, true)", removed, ok, v)
		}
		if _, ok := c.Get(k); ok {
			t.Fatalf("key must be absent after Remove")
		}

		// After removal, PutIfAbsent should succeed again.
		if _, inserted := c.PutIfAbsent(k, v); !inserted {
			t.Fatalf("PutIfAbsent after Remove must insert")
		}

		checkValid(t, c)
	})
}

// Fuzz weighted inserts: arbitrary weights within capacity bounds must keep
// the weight accounting exact.
func FuzzCache_WeightedAccounting(f *testing.F) {
	f.Add("a", uint8(0))
	f.Add("b", uint8(1))
	f.Add("c", uint8(7))
	f.Add("key", uint8(255))

	f.Fuzz(func(t *testing.T, k string, w uint8) {
		const limit = 1 << 10
		if len(k) > limit {
			k = k[:limit]
		}

		c := New[string, uint8](Options[string, uint8]{
			Capacity: 64,
			Weigher:  func(v uint8) int64 { return int64(v % 16) },
		})

		c.Put(k, w)
		c.Put(k+"2", w/2)
		c.Put(k, w/3) // update path
		c.Remove(k + "2")
		c.Put(k+"3", w)

		checkValid(t, c)
	})
}
