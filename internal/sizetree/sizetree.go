package sizetree

import "math"

// NodeID addresses a node in the tree's arena. Leaf handles returned by Insert stay
// valid until passed to Remove.
type NodeID int32

// Nil is the absent node.
const Nil NodeID = -1

// CostFunc scores a candidate leaf of size (w, h) for a request. Returning exact=true
// ends the search immediately with that leaf.
type CostFunc[T any] func(w, h int, data T) (cost float64, exact bool)

type node[T any] struct {
	w, h   int
	height int
	parent NodeID
	child  [2]NodeID
	data   T
	inUse  bool
}

func (n *node[T]) isLeaf() bool {
	return n.child[0] == Nil
}

// Tree is a 2D AABB tree over box sizes only. It answers "smallest-cost leaf at
// least (w,h)" queries by discarding subtrees whose bounds are too small.
//
// Internal node bounds are the per-axis max of their children and are always tight.
// Sibling heights differ by at most one.
//
// It is not thread-safe.
type Tree[T any] struct {
	nodes  []node[T]
	free   []NodeID
	root   NodeID
	leaves int

	// reused between searches
	stack []NodeID
}

func New[T any]() *Tree[T] {
	return &Tree[T]{root: Nil}
}

func (t *Tree[T]) alloc(data T, w, h int) NodeID {
	n := node[T]{
		w:      w,
		h:      h,
		parent: Nil,
		child:  [2]NodeID{Nil, Nil},
		data:   data,
		inUse:  true,
	}
	if k := len(t.free); k > 0 {
		id := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[id] = n
		return id
	}
	if len(t.nodes) >= math.MaxInt32 {
		panic("sizetree: arena exhausted")
	}
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

func (t *Tree[T]) release(id NodeID) {
	t.nodes[id] = node[T]{parent: Nil, child: [2]NodeID{Nil, Nil}}
	t.free = append(t.free, id)
}

func (t *Tree[T]) at(id NodeID) *node[T] {
	if id < 0 || int(id) >= len(t.nodes) || !t.nodes[id].inUse {
		panic("sizetree: invalid node handle")
	}
	return &t.nodes[id]
}

// Len returns the number of leaves.
func (t *Tree[T]) Len() int {
	return t.leaves
}

// Root returns the root node, or Nil for an empty tree.
func (t *Tree[T]) Root() NodeID {
	return t.root
}

// Height returns the height of the tree, -1 when empty.
func (t *Tree[T]) Height() int {
	if t.root == Nil {
		return -1
	}
	return t.nodes[t.root].height
}

func (t *Tree[T]) Data(id NodeID) T {
	return t.at(id).data
}

func (t *Tree[T]) Size(id NodeID) (w, h int) {
	n := t.at(id)
	return n.w, n.h
}

func (t *Tree[T]) IsLeaf(id NodeID) bool {
	return t.at(id).isLeaf()
}

// Children returns the two children of an internal node, or (Nil, Nil) for a leaf.
func (t *Tree[T]) Children(id NodeID) (NodeID, NodeID) {
	n := t.at(id)
	return n.child[0], n.child[1]
}

// Insert adds a leaf of size (w, h) carrying data. It never fails.
func (t *Tree[T]) Insert(data T, w, h int) NodeID {
	leaf := t.alloc(data, w, h)
	t.leaves++
	if t.root == Nil {
		t.root = leaf
		return leaf
	}

	cur := t.root
	for {
		n := &t.nodes[cur]
		if n.isLeaf() {
			break
		}
		c0 := &t.nodes[n.child[0]]
		c1 := &t.nodes[n.child[1]]

		// cost of a new parent joining this node and the leaf
		ncost := max(n.w, w) + max(n.h, h)
		// extra cost paid by this node if the leaf goes further down
		icost := ncost - (n.w + n.h)
		cost0 := max(c0.w, w) + max(c0.h, h) + icost
		cost1 := max(c1.w, w) + max(c1.h, h) + icost
		if !c0.isLeaf() {
			cost0 -= c0.w + c0.h
		}
		if !c1.isLeaf() {
			cost1 -= c1.w + c1.h
		}

		if ncost < cost0 && ncost < cost1 {
			break
		}
		if cost0 < cost1 {
			cur = n.child[0]
		} else {
			cur = n.child[1]
		}
	}

	sibling := cur
	oldParent := t.nodes[sibling].parent
	var zero T
	parent := t.alloc(zero, max(w, t.nodes[sibling].w), max(h, t.nodes[sibling].h))
	p := &t.nodes[parent]
	p.parent = oldParent
	p.height = t.nodes[sibling].height + 1
	p.child = [2]NodeID{sibling, leaf}
	t.nodes[sibling].parent = parent
	t.nodes[leaf].parent = parent

	if oldParent != Nil {
		t.replaceChild(oldParent, sibling, parent)
	} else {
		t.root = parent
	}

	t.filterUp(parent)
	return leaf
}

// Remove deletes a leaf previously returned by Insert.
func (t *Tree[T]) Remove(leaf NodeID) {
	n := t.at(leaf)
	if !n.isLeaf() {
		panic("sizetree: remove of internal node")
	}
	t.leaves--

	if leaf == t.root {
		t.root = Nil
		t.release(leaf)
		return
	}

	parent := n.parent
	p := &t.nodes[parent]
	grand := p.parent
	sibling := p.child[0]
	if sibling == leaf {
		sibling = p.child[1]
	}

	if grand != Nil {
		t.replaceChild(grand, parent, sibling)
		t.nodes[sibling].parent = grand
		t.release(parent)
		t.release(leaf)
		t.filterUp(grand)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = Nil
		t.release(parent)
		t.release(leaf)
	}
}

func (t *Tree[T]) replaceChild(parent, old, repl NodeID) {
	p := &t.nodes[parent]
	if p.child[0] == old {
		p.child[0] = repl
	} else {
		p.child[1] = repl
	}
}

func (t *Tree[T]) filterUp(id NodeID) {
	for id != Nil {
		id = t.balance(id)

		n := &t.nodes[id]
		c0 := &t.nodes[n.child[0]]
		c1 := &t.nodes[n.child[1]]
		n.height = 1 + max(c0.height, c1.height)
		n.w = max(c0.w, c1.w)
		n.h = max(c0.h, c1.h)

		id = n.parent
	}
}

// balance rotates the subtree at id when its children's heights differ by more
// than one, returning the new subtree root.
func (t *Tree[T]) balance(id NodeID) NodeID {
	n := &t.nodes[id]
	if n.isLeaf() || n.height < 2 {
		return id
	}
	c0, c1 := n.child[0], n.child[1]
	diff := t.nodes[c1].height - t.nodes[c0].height
	if diff >= -1 && diff <= 1 {
		return id
	}

	var rotate, other NodeID
	var side int
	if diff > 0 {
		rotate, other, side = c1, c0, 1
	} else {
		rotate, other, side = c0, c1, 0
	}

	r := &t.nodes[rotate]
	g0, g1 := r.child[0], r.child[1]

	// rotate takes id's place
	r.child[1-side] = id
	r.parent = n.parent
	n.parent = rotate
	if r.parent != Nil {
		t.replaceChild(r.parent, id, rotate)
	} else {
		t.root = rotate
	}

	// the taller grandchild stays under rotate, the other swings across
	pivot, swing := g1, g0
	if t.nodes[g0].height > t.nodes[g1].height {
		pivot, swing = g0, g1
	}
	r.child[side] = pivot
	n.child[side] = swing
	t.nodes[swing].parent = id

	o, s, pv := &t.nodes[other], &t.nodes[swing], &t.nodes[pivot]
	n.w = max(o.w, s.w)
	n.h = max(o.h, s.h)
	n.height = 1 + max(o.height, s.height)
	r.w = max(n.w, pv.w)
	r.h = max(n.h, pv.h)
	r.height = 1 + max(n.height, pv.height)

	return rotate
}

// Traverse visits nodes depth first, descending into a node's children only while
// fn returns true for it. fn may search the tree but must not modify it.
func (t *Tree[T]) Traverse(fn func(id NodeID) bool) {
	if t.root == Nil {
		return
	}
	stack := []NodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if fn(id) && !t.nodes[id].isLeaf() {
			stack = append(stack, t.nodes[id].child[0], t.nodes[id].child[1])
		}
	}
}

// SearchBestFit returns the minimum-cost leaf at least (w, h) in size.
func (t *Tree[T]) SearchBestFit(w, h int, cost CostFunc[T]) (NodeID, bool) {
	if t.root == Nil {
		return Nil, false
	}

	best := Nil
	bestCost := math.Inf(1)

	stack := append(t.stack[:0], t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[id]
		if n.w < w || n.h < h {
			continue
		}
		if !n.isLeaf() {
			stack = append(stack, n.child[0], n.child[1])
			continue
		}
		c, exact := cost(w, h, n.data)
		if exact {
			best = id
			break
		}
		if c < bestCost {
			bestCost = c
			best = id
		}
	}
	t.stack = stack[:0]

	return best, best != Nil
}
