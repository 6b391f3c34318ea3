package cache

// deque is the intrusive doubly linked eviction order: head is the least
// recently used node, tail the most recently used. It performs no locking of
// its own — every method, and every read of the link fields, requires the
// eviction lock. The drain coordinator is the only writer.
//
// Links live inside the nodes, so link, unlink, and move are O(1) pointer
// fixes with no allocation.
type deque[K comparable, V any] struct {
	head *node[K, V]
	tail *node[K, V]
	size int
}

// contains reports whether n is currently linked. It is derived purely from
// link state: interior and tail nodes have a non-nil prev, the head is
// recognised directly. unlink must therefore nil both links.
func (d *deque[K, V]) contains(n *node[K, V]) bool {
	return n.prev != nil || n.next != nil || d.head == n
}

// pushTail links n as most recently used. n must not be linked.
func (d *deque[K, V]) pushTail(n *node[K, V]) {
	n.prev = d.tail
	n.next = nil
	if d.tail != nil {
		d.tail.next = n
	} else {
		d.head = n
	}
	d.tail = n
	d.size++
}

// unlink detaches n. n must be linked.
func (d *deque[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	n.prev, n.next = nil, nil
	d.size--
}

// moveToTail refreshes a linked node to most recently used.
func (d *deque[K, V]) moveToTail(n *node[K, V]) {
	if d.tail == n {
		return
	}
	d.unlink(n)
	d.pushTail(n)
}

// first returns the least recently used node, or nil when empty.
func (d *deque[K, V]) first() *node[K, V] { return d.head }

// firstWeighted returns the least recently used node that actually counts
// toward capacity. Zero-weight entries are passed over: they occupy no
// capacity, so evicting them would free nothing.
func (d *deque[K, V]) firstWeighted() *node[K, V] {
	for n := d.head; n != nil; n = n.next {
		if n.accounted > 0 {
			return n
		}
	}
	return nil
}

func (d *deque[K, V]) len() int { return d.size }

// walk visits nodes from least to most recently used until fn returns false.
func (d *deque[K, V]) walk(fn func(*node[K, V]) bool) {
	for n := d.head; n != nil; n = n.next {
		if !fn(n) {
			return
		}
	}
}
