package cache

import "testing"

// offer reports the growing pending count and drain replays in FIFO order.
func TestReadBuffer_OfferDrainFIFO(t *testing.T) {
	t.Parallel()

	var b readBuffer[string, int]
	nodes := []*node[string, int]{
		newTestNode("a", 1), newTestNode("b", 1), newTestNode("c", 1),
	}
	for i, n := range nodes {
		pending, recorded := b.offer(n)
		if !recorded {
			t.Fatalf("offer %d dropped on an empty ring", i)
		}
		if pending != int64(i+1) {
			t.Fatalf("pending after offer %d = %d, want %d", i, pending, i+1)
		}
	}
	if b.len() != 3 {
		t.Fatalf("len = %d, want 3", b.len())
	}

	var got []string
	n := b.drain(func(n *node[string, int]) { got = append(got, n.key) })
	if n != 3 {
		t.Fatalf("drain consumed %d, want 3", n)
	}
	if !sameKeys(got, []string{"a", "b", "c"}) {
		t.Fatalf("drain order = %v, want [a b c]", got)
	}
	if b.len() != 0 {
		t.Fatalf("len after drain = %d, want 0", b.len())
	}
}

// A full ring drops further offers instead of blocking or overwriting.
func TestReadBuffer_DropsWhenFull(t *testing.T) {
	t.Parallel()

	var b readBuffer[string, int]
	n := newTestNode("x", 1)
	for i := 0; i < readBufferSize; i++ {
		if _, recorded := b.offer(n); !recorded {
			t.Fatalf("offer %d dropped before the ring was full", i)
		}
	}

	pending, recorded := b.offer(n)
	if recorded {
		t.Fatal("offer on a full ring must be dropped")
	}
	if pending != readBufferSize {
		t.Fatalf("pending = %d, want %d", pending, readBufferSize)
	}

	// Draining frees the slots again.
	if got := b.drain(func(*node[string, int]) {}); got != readBufferSize {
		t.Fatalf("drain consumed %d, want %d", got, readBufferSize)
	}
	if _, recorded := b.offer(n); !recorded {
		t.Fatal("offer after drain must be recorded")
	}
}

// The ring is reusable across many fill/drain cycles (counters are
// monotonic, indices wrap).
func TestReadBuffer_WrapsAround(t *testing.T) {
	t.Parallel()

	var b readBuffer[string, int]
	n := newTestNode("x", 1)
	for cycle := 0; cycle < 5; cycle++ {
		for i := 0; i < readBufferSize; i++ {
			if _, recorded := b.offer(n); !recorded {
				t.Fatalf("cycle %d: offer %d dropped", cycle, i)
			}
		}
		if got := b.drain(func(*node[string, int]) {}); got != readBufferSize {
			t.Fatalf("cycle %d: drained %d, want %d", cycle, got, readBufferSize)
		}
	}
}

// The write queue never drops: every pushed event comes back from swap, in
// order, exactly once.
func TestWriteQueue_Lossless(t *testing.T) {
	t.Parallel()

	var q writeQueue[string, int]
	kinds := []writeKind{writeAdd, writeUpdate, writeRemove, writeAdd}
	for i, k := range kinds {
		q.push(writeEvent[string, int]{kind: k, node: newTestNode("n", 1)})
		if q.len() != int64(i+1) {
			t.Fatalf("len after push %d = %d, want %d", i, q.len(), i+1)
		}
	}

	events := q.swap()
	if len(events) != len(kinds) {
		t.Fatalf("swap returned %d events, want %d", len(events), len(kinds))
	}
	for i, e := range events {
		if e.kind != kinds[i] {
			t.Fatalf("event %d kind = %d, want %d", i, e.kind, kinds[i])
		}
	}
	if q.len() != 0 {
		t.Fatalf("len after swap = %d, want 0", q.len())
	}
	if again := q.swap(); len(again) != 0 {
		t.Fatalf("second swap returned %d events, want 0", len(again))
	}
}
