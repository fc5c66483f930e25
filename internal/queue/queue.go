// Package queue provides the binary heaps used by graph search.
package queue

// Item is a candidate node and its distance to the query.
type Item struct {
	ID       uint32
	Distance float32
}

// Less orders items by Distance, breaking ties by ID.
func (a Item) Less(b Item) bool {
	return a.Distance < b.Distance || (a.Distance == b.Distance && a.ID < b.ID)
}

// Heap is a value-based binary heap of Items ordered by Item.Less.
// A min-heap yields the closest item first, a max-heap the farthest.
// The zero value is an empty min-heap.
type Heap struct {
	max   bool
	items []Item
}

// NewMin returns a min-heap with the given capacity.
func NewMin(capacity int) *Heap {
	return &Heap{items: make([]Item, 0, capacity)}
}

// NewMax returns a max-heap with the given capacity.
func NewMax(capacity int) *Heap {
	return &Heap{max: true, items: make([]Item, 0, capacity)}
}

// Len returns the number of items.
func (h *Heap) Len() int { return len(h.items) }

// Top returns the root without removing it.
func (h *Heap) Top() (Item, bool) {
	if len(h.items) == 0 {
		return Item{}, false
	}
	return h.items[0], true
}

// Push inserts an item.
func (h *Heap) Push(it Item) {
	h.items = append(h.items, it)
	h.up(len(h.items) - 1)
}

// Pop removes and returns the root.
func (h *Heap) Pop() (Item, bool) {
	n := len(h.items)
	if n == 0 {
		return Item{}, false
	}
	root := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.down(0)
	}
	return root, true
}

// PushBounded inserts it into a max-heap holding at most limit items,
// evicting the farthest item when full. It reports whether it was kept.
func (h *Heap) PushBounded(it Item, limit int) bool {
	if len(h.items) < limit {
		h.Push(it)
		return true
	}
	if limit == 0 || !it.Less(h.items[0]) {
		return false
	}
	h.items[0] = it
	h.down(0)
	return true
}

// Items returns the backing slice in heap order. It is only valid until the
// next mutation.
func (h *Heap) Items() []Item { return h.items }

// Reset empties the heap, keeping its capacity.
func (h *Heap) Reset() { h.items = h.items[:0] }

// Drain pops every item into dst in pop order and returns it.
func (h *Heap) Drain(dst []Item) []Item {
	for h.Len() > 0 {
		it, _ := h.Pop()
		dst = append(dst, it)
	}
	return dst
}

func (h *Heap) less(i, j int) bool {
	if h.max {
		return h.items[j].Less(h.items[i])
	}
	return h.items[i].Less(h.items[j])
}

func (h *Heap) up(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !h.less(i, p) {
			return
		}
		h.items[i], h.items[p] = h.items[p], h.items[i]
		i = p
	}
}

func (h *Heap) down(i int) {
	n := len(h.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && h.less(r, l) {
			best = r
		}
		if !h.less(best, i) {
			return
		}
		h.items[i], h.items[best] = h.items[best], h.items[i]
		i = best
	}
}
