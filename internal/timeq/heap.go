package timeq

import "github.com/garethgeorge/atlaspack/internal/poolutil"

// defaultPoolLimit bounds how many idle node records a heap keeps for reuse.
const defaultPoolLimit = 4096

type heapNode[K any, V comparable] struct {
	key  K
	data V
}

// NodePool recycles heap node records. One pool may be shared by several heaps of
// the same type, provided they are all used from one goroutine.
type NodePool[K any, V comparable] = poolutil.Pool[*heapNode[K, V]]

// NewNodePool returns a pool retaining at most limit idle records.
func NewNodePool[K any, V comparable](limit int) *NodePool[K, V] {
	return poolutil.NewPool(
		func() *heapNode[K, V] { return &heapNode[K, V]{} },
		func(n *heapNode[K, V]) *heapNode[K, V] {
			*n = heapNode[K, V]{}
			return n
		},
		limit,
	)
}

type HeapOption[K any, V comparable] func(*MinHeap[K, V])

// WithPool makes the heap draw node records from a shared pool.
func WithPool[K any, V comparable](pool *NodePool[K, V]) HeapOption[K, V] {
	return func(h *MinHeap[K, V]) {
		if pool != nil {
			h.pool = pool
		}
	}
}

// MinHeap is a binary min-heap of (key, value) pairs ordered by a strict less
// function on keys. Values are identified by equality for Remove.
//
// It is not thread-safe.
type MinHeap[K any, V comparable] struct {
	nodes []*heapNode[K, V]
	less  func(a, b K) bool
	pool  *NodePool[K, V]
}

func NewMinHeap[K any, V comparable](less func(a, b K) bool, opts ...HeapOption[K, V]) *MinHeap[K, V] {
	h := &MinHeap[K, V]{less: less}
	for _, opt := range opts {
		opt(h)
	}
	if h.pool == nil {
		h.pool = NewNodePool[K, V](defaultPoolLimit)
	}
	return h
}

func (h *MinHeap[K, V]) Len() int {
	return len(h.nodes)
}

// Clear empties the heap, returning every node record to the pool.
func (h *MinHeap[K, V]) Clear() {
	for i, n := range h.nodes {
		h.pool.Put(n)
		h.nodes[i] = nil
	}
	h.nodes = h.nodes[:0]
}

func (h *MinHeap[K, V]) Insert(data V, key K) {
	n := h.pool.Get()
	n.key = key
	n.data = data
	h.nodes = append(h.nodes, n)
	h.up(len(h.nodes) - 1)
}

// Peek returns the minimum entry without removing it.
func (h *MinHeap[K, V]) Peek() (data V, key K, ok bool) {
	if len(h.nodes) == 0 {
		return data, key, false
	}
	return h.nodes[0].data, h.nodes[0].key, true
}

// Pop removes and returns the value with the minimum key.
func (h *MinHeap[K, V]) Pop() (V, bool) {
	if len(h.nodes) == 0 {
		var zero V
		return zero, false
	}
	data := h.nodes[0].data
	h.removeAt(0)
	return data, true
}

// Remove deletes the first entry holding data, reporting whether one was found.
func (h *MinHeap[K, V]) Remove(data V) bool {
	for i, n := range h.nodes {
		if n.data == data {
			h.removeAt(i)
			return true
		}
	}
	return false
}

// removeAt moves the last node into slot i and restores heap order from there.
func (h *MinHeap[K, V]) removeAt(i int) {
	last := len(h.nodes) - 1
	removed := h.nodes[i]
	if i != last {
		h.nodes[i] = h.nodes[last]
	}
	h.nodes[last] = nil
	h.nodes = h.nodes[:last]
	h.pool.Put(removed)

	if i < last {
		if i > 0 && h.less(h.nodes[i].key, h.nodes[(i-1)/2].key) {
			h.up(i)
		} else {
			h.down(i)
		}
	}
}

func (h *MinHeap[K, V]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(h.nodes[i].key, h.nodes[parent].key) {
			return
		}
		h.nodes[i], h.nodes[parent] = h.nodes[parent], h.nodes[i]
		i = parent
	}
}

func (h *MinHeap[K, V]) down(i int) {
	n := len(h.nodes)
	for {
		small := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.less(h.nodes[left].key, h.nodes[small].key) {
			small = left
		}
		if right < n && h.less(h.nodes[right].key, h.nodes[small].key) {
			small = right
		}
		if small == i {
			return
		}
		h.nodes[i], h.nodes[small] = h.nodes[small], h.nodes[i]
		i = small
	}
}
