package cache

import "testing"

func newTestNode(key string, weight int64) *node[string, int] {
	n := newNode(key, 0, weight)
	n.accounted = weight
	return n
}

func dequeKeys(d *deque[string, int]) []string {
	var keys []string
	d.walk(func(n *node[string, int]) bool {
		keys = append(keys, n.key)
		return true
	})
	return keys
}

func sameKeys(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// pushTail appends in order; first returns the head.
func TestDeque_PushTailOrder(t *testing.T) {
	t.Parallel()

	var d deque[string, int]
	a, b, c := newTestNode("a", 1), newTestNode("b", 1), newTestNode("c", 1)
	d.pushTail(a)
	d.pushTail(b)
	d.pushTail(c)

	if got := dequeKeys(&d); !sameKeys(got, []string{"a", "b", "c"}) {
		t.Fatalf("order = %v, want [a b c]", got)
	}
	if d.first() != a || d.len() != 3 {
		t.Fatalf("first=%v len=%d", d.first().key, d.len())
	}
	for _, n := range []*node[string, int]{a, b, c} {
		if !d.contains(n) {
			t.Fatalf("contains(%s) = false", n.key)
		}
	}
}

// moveToTail refreshes a node's position; moving the tail is a no-op.
func TestDeque_MoveToTail(t *testing.T) {
	t.Parallel()

	var d deque[string, int]
	a, b, c := newTestNode("a", 1), newTestNode("b", 1), newTestNode("c", 1)
	d.pushTail(a)
	d.pushTail(b)
	d.pushTail(c)

	d.moveToTail(a)
	if got := dequeKeys(&d); !sameKeys(got, []string{"b", "c", "a"}) {
		t.Fatalf("after move head: %v, want [b c a]", got)
	}

	d.moveToTail(b)
	if got := dequeKeys(&d); !sameKeys(got, []string{"c", "a", "b"}) {
		t.Fatalf("after move middle: %v, want [c a b]", got)
	}

	d.moveToTail(b) // already the tail
	if got := dequeKeys(&d); !sameKeys(got, []string{"c", "a", "b"}) {
		t.Fatalf("after move tail: %v, want [c a b]", got)
	}
	if d.len() != 3 {
		t.Fatalf("len = %d, want 3", d.len())
	}
}

// unlink detaches head, middle, and tail nodes and clears their links.
func TestDeque_Unlink(t *testing.T) {
	t.Parallel()

	var d deque[string, int]
	a, b, c := newTestNode("a", 1), newTestNode("b", 1), newTestNode("c", 1)
	d.pushTail(a)
	d.pushTail(b)
	d.pushTail(c)

	d.unlink(b) // middle
	if got := dequeKeys(&d); !sameKeys(got, []string{"a", "c"}) {
		t.Fatalf("after unlink middle: %v, want [a c]", got)
	}
	if d.contains(b) || b.prev != nil || b.next != nil {
		t.Fatal("unlinked node must have nil links")
	}

	d.unlink(a) // head
	if d.first() != c {
		t.Fatal("head must be c after unlinking a")
	}

	d.unlink(c) // tail, now sole node
	if d.first() != nil || d.len() != 0 {
		t.Fatalf("deque must be empty, len=%d", d.len())
	}
}

// firstWeighted skips entries that occupy no capacity: they are never
// eviction victims.
func TestDeque_FirstWeightedSkipsZero(t *testing.T) {
	t.Parallel()

	var d deque[string, int]
	z := newTestNode("z", 0)
	a := newTestNode("a", 3)
	d.pushTail(z)
	d.pushTail(a)

	if got := d.firstWeighted(); got != a {
		t.Fatalf("firstWeighted = %v, want a", got.key)
	}

	d.unlink(a)
	if got := d.firstWeighted(); got != nil {
		t.Fatalf("firstWeighted on zero-only deque = %v, want nil", got.key)
	}
}

// walk stops as soon as the callback returns false.
func TestDeque_WalkEarlyStop(t *testing.T) {
	t.Parallel()

	var d deque[string, int]
	for _, k := range []string{"a", "b", "c", "d"} {
		d.pushTail(newTestNode(k, 1))
	}

	var visited []string
	d.walk(func(n *node[string, int]) bool {
		visited = append(visited, n.key)
		return len(visited) < 2
	})
	if !sameKeys(visited, []string{"a", "b"}) {
		t.Fatalf("visited = %v, want [a b]", visited)
	}
}
