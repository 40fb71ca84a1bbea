// Public domain.

// Package qtree is a 4-ary partition of a sphere.Rect.
//
// Nodes live in a single slice and refer to each other by index, so the
// parent links need no special handling when a tree is written out.  The
// payload type L is carried only by leaves.
package qtree

import (
	"github.com/zeebo/errs"

	"github.com/soniakeys/apass/internal/sphere"
)

var (
	// Error is the class of errors from this package.
	Error = errs.Class("qtree")

	// ErrOutside means a point is not inside the root rect.
	ErrOutside = Error.New("point outside tree")
)

// Node is one quadrant.  Children is empty for a leaf and otherwise holds
// the tl, tr, bl, br quadrants of Rect.
type Node[L any] struct {
	Rect     sphere.Rect
	Depth    int
	Parent   int // -1 at the root
	Children []int
	Leaf     L
}

// IsLeaf reports whether the node has no children.
func (n *Node[L]) IsLeaf() bool { return len(n.Children) == 0 }

// Tree is the node arena.  Nodes[0] is the root.
type Tree[L any] struct {
	Nodes []Node[L]
}

// New returns a tree of a single leaf with the zero payload.
func New[L any](root sphere.Rect) *Tree[L] {
	return &Tree[L]{Nodes: []Node[L]{{Rect: root, Parent: -1}}}
}

// Node returns node n.
func (t *Tree[L]) Node(n int) *Node[L] { return &t.Nodes[n] }

// Root returns the root rect.
func (t *Tree[L]) Root() sphere.Rect { return t.Nodes[0].Rect }

// SplitUntil quadrisects every leaf down to the given depth.  Only nodes at
// that depth get a payload, from newLeaf.  Payloads on nodes that get split
// are cleared.
func (t *Tree[L]) SplitUntil(depth int, newLeaf func(r sphere.Rect, depth int) L) {
	var split func(n int)
	split = func(n int) {
		nd := &t.Nodes[n]
		if nd.Depth >= depth {
			if nd.IsLeaf() {
				nd.Leaf = newLeaf(nd.Rect, nd.Depth)
			}
			return
		}
		if nd.IsLeaf() {
			var zero L
			nd.Leaf = zero
			t.addChildren(n)
		}
		for _, c := range t.Nodes[n].Children {
			split(c)
		}
	}
	split(0)
}

func (t *Tree[L]) addChildren(n int) {
	q := t.Nodes[n].Rect.SplitIntoQuads()
	d := t.Nodes[n].Depth + 1
	first := len(t.Nodes)
	for _, r := range q {
		t.Nodes = append(t.Nodes, Node[L]{Rect: r, Depth: d, Parent: n})
	}
	t.Nodes[n].Children = []int{first, first + 1, first + 2, first + 3}
}

// FindLeaf returns the leaf containing (x, y).
func (t *Tree[L]) FindLeaf(x, y float64) (int, error) {
	if !t.Nodes[0].Rect.Contains(x, y) {
		return -1, ErrOutside
	}
	return t.descend(0, x, y)
}

// descend walks down from n, which must contain the point.
func (t *Tree[L]) descend(n int, x, y float64) (int, error) {
	for !t.Nodes[n].IsLeaf() {
		next := -1
		for _, c := range t.Nodes[n].Children {
			if t.Nodes[c].Rect.Contains(x, y) {
				next = c
				break
			}
		}
		if next < 0 {
			return -1, Error.New("node %d %v: no child contains (%v, %v)",
				n, t.Nodes[n].Rect, x, y)
		}
		n = next
	}
	return n, nil
}

// FindNodeContaining finds the leaf containing (x, y) starting from node
// from.  It climbs to the nearest ancestor containing the point and then
// descends.  It returns false when no ancestor contains the point.
func (t *Tree[L]) FindNodeContaining(from int, x, y float64) (int, bool) {
	n := from
	for n >= 0 && !t.Nodes[n].Rect.Contains(x, y) {
		n = t.Nodes[n].Parent
	}
	if n < 0 {
		return -1, false
	}
	leaf, err := t.descend(n, x, y)
	return leaf, err == nil
}

// Leaves returns leaf indexes in pre-order.
func (t *Tree[L]) Leaves() []int {
	var ls []int
	t.Walk(func(n int) {
		if t.Nodes[n].IsLeaf() {
			ls = append(ls, n)
		}
	})
	return ls
}

// Walk calls f on every node in pre-order.
func (t *Tree[L]) Walk(f func(n int)) {
	var walk func(n int)
	walk = func(n int) {
		f(n)
		for _, c := range t.Nodes[n].Children {
			walk(c)
		}
	}
	walk(0)
}

// link sets every parent index from the child lists.
func (t *Tree[L]) link() {
	t.Nodes[0].Parent = -1
	var fix func(n int)
	fix = func(n int) {
		for _, c := range t.Nodes[n].Children {
			fix(c)
			t.Nodes[c].Parent = n
		}
	}
	fix(0)
}
