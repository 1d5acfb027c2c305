// Package octree implements the adaptive octree of spec §4.6: an
// arena-indexed tree of cubic nodes, each either an internal node with
// eight children or a leaf carrying a LeafData aggregate, that grows by
// doubling its root and shrinks by merging equal-valued leaf children.
package octree

import (
	"math"

	"github.com/elturner/carve/internal/carveerr"
	"gonum.org/v1/gonum/spatial/r3"
)

const noChild = -1

// node is one cube in the arena. A node is either internal (children[i]
// >= 0 for all i, data == nil) or a leaf (all children == noChild). The
// tree never stores parent back-pointers; all traversal is top-down from
// the root, per spec §4.6 "Representation".
type node struct {
	center    r3.Vec
	halfwidth float64
	children  [8]int32
	data      *LeafData
}

func (n *node) isLeaf() bool {
	return n.children[0] == noChild
}

func newLeafNode(center r3.Vec, halfwidth float64) node {
	n := node{center: center, halfwidth: halfwidth}
	for i := range n.children {
		n.children[i] = noChild
	}
	return n
}

// Tree is the adaptive octree. The zero value is not usable; construct
// with NewTree.
type Tree struct {
	nodes    []node
	root     int32
	maxDepth int

	// mergeEpsilon is the tolerance simplifyRecur uses when comparing
	// eight children's aggregated probability for a merge (spec §4.6).
	mergeEpsilon float64
}

// NewTree constructs a tree whose root is a single unobserved leaf
// centered at center with the given halfwidth, subdividing at most
// maxDepth times below the root (so the finest leaf halfwidth is
// halfwidth / 2^maxDepth).
func NewTree(center r3.Vec, halfwidth float64, maxDepth int) (*Tree, error) {
	if halfwidth <= 0 || math.IsNaN(halfwidth) || math.IsInf(halfwidth, 0) {
		return nil, &carveerr.InvalidInput{Reason: "root halfwidth must be positive and finite"}
	}
	if maxDepth < 0 {
		return nil, &carveerr.InvalidInput{Reason: "max depth must be non-negative"}
	}
	t := &Tree{
		nodes:        []node{newLeafNode(center, halfwidth)},
		root:         0,
		maxDepth:     maxDepth,
		mergeEpsilon: 1e-6,
	}
	return t, nil
}

// RootCenter and RootHalfwidth expose the current root cube, which can
// grow via ensureContains.
func (t *Tree) RootCenter() r3.Vec      { return t.nodes[t.root].center }
func (t *Tree) RootHalfwidth() float64  { return t.nodes[t.root].halfwidth }
func (t *Tree) MaxDepth() int           { return t.maxDepth }
func (t *Tree) NumNodes() int           { return len(t.nodes) }

// Bounds returns the current root cube.
func (t *Tree) Bounds() Bounds {
	n := &t.nodes[t.root]
	return Bounds{Center: n.center, Halfwidth: n.halfwidth}
}

// octantOffset returns the offset from a parent center to the center of
// child i, given the parent's halfwidth. Bit 2 of i selects the x sign,
// bit 1 the y sign, bit 0 the z sign (1 => positive, 0 => negative); this
// fixed corner convention is what lets carved wedge vertices and chunk
// boundaries agree on which child owns which corner (spec §4.6).
func octantOffset(i int, parentHalfwidth float64) r3.Vec {
	q := parentHalfwidth / 2
	sign := func(bit int) float64 {
		if bit != 0 {
			return q
		}
		return -q
	}
	return r3.Vec{
		X: sign((i >> 2) & 1),
		Y: sign((i >> 1) & 1),
		Z: sign(i & 1),
	}
}

// octantOf returns the child index of the octant of center containing p.
func octantOf(center r3.Vec, p r3.Vec) int {
	i := 0
	if p.X >= center.X {
		i |= 4
	}
	if p.Y >= center.Y {
		i |= 2
	}
	if p.Z >= center.Z {
		i |= 1
	}
	return i
}

// split converts the leaf at index idx into an internal node with eight
// newly allocated leaf children. If the leaf carried aggregated data, that
// data is copied to all eight children so the tree's total aggregate is
// unchanged by the split (spec §4.6 invariant (ii), applied in reverse of
// a merge).
func (t *Tree) split(idx int32) {
	n := &t.nodes[idx]
	childHW := n.halfwidth / 2
	inherited := n.data
	var childIdx [8]int32
	for i := 0; i < 8; i++ {
		childCenter := r3.Add(n.center, octantOffset(i, n.halfwidth))
		childNode := newLeafNode(childCenter, childHW)
		childNode.data = inherited.clone()
		t.nodes = append(t.nodes, childNode)
		childIdx[i] = int32(len(t.nodes) - 1)
	}
	// Re-fetch n: append may have reallocated the backing array.
	n = &t.nodes[idx]
	n.children = childIdx
	n.data = nil
}

// ensureContains grows the root (spec §4.6 "Growth") until its cube
// contains p, by repeatedly wrapping the current root as one child of a
// new, double-sized root.
func (t *Tree) ensureContains(p r3.Vec) {
	for !t.contains(t.root, p) {
		old := t.nodes[t.root]
		newHW := old.halfwidth * 2
		// The old root becomes the child of the new root on the side
		// facing away from p, so the new root's center sits between the
		// old root and the point that forced the expansion.
		dir := r3.Vec{
			X: math.Copysign(1, p.X-old.center.X),
			Y: math.Copysign(1, p.Y-old.center.Y),
			Z: math.Copysign(1, p.Z-old.center.Z),
		}
		newCenter := r3.Add(old.center, r3.Scale(old.halfwidth, dir))
		newRoot := newLeafNode(newCenter, newHW)
		var children [8]int32
		for i := 0; i < 8; i++ {
			octantCenter := r3.Add(newCenter, octantOffset(i, newHW))
			if i == octantOf(newCenter, old.center) {
				continue
			}
			leaf := newLeafNode(octantCenter, newHW/2)
			t.nodes = append(t.nodes, leaf)
			children[i] = int32(len(t.nodes) - 1)
		}
		oldIdx := t.root
		t.nodes = append(t.nodes, old)
		oldNewIdx := int32(len(t.nodes) - 1)
		children[octantOf(newCenter, old.center)] = oldNewIdx
		newRoot.children = children
		t.nodes = append(t.nodes, newRoot)
		t.root = int32(len(t.nodes) - 1)
		t.maxDepth++
		_ = oldIdx
	}
}

func (t *Tree) contains(idx int32, p r3.Vec) bool {
	n := &t.nodes[idx]
	return math.Abs(p.X-n.center.X) <= n.halfwidth &&
		math.Abs(p.Y-n.center.Y) <= n.halfwidth &&
		math.Abs(p.Z-n.center.Z) <= n.halfwidth
}

// InsertSample marks a single point occupancy observation at p with
// probability prob, growing the root if necessary and descending to
// maxDepth (spec §4.6 "on sample insertion").
func (t *Tree) InsertSample(p r3.Vec, prob float64) error {
	if math.IsNaN(prob) || math.IsInf(prob, 0) {
		return &carveerr.NumericalNonfinite{Context: "InsertSample probability"}
	}
	t.ensureContains(p)
	idx := t.root
	for depth := 0; ; depth++ {
		n := &t.nodes[idx]
		if depth >= t.maxDepth {
			if n.data == nil {
				n.data = &LeafData{}
			}
			n.data.AddSample(prob)
			return nil
		}
		if n.isLeaf() {
			t.split(idx)
		}
		child := octantOf(t.nodes[idx].center, p)
		idx = t.nodes[idx].children[child]
	}
}

// Carve applies shape to every node the tree descends into down to
// targetDepth (measured from the current root), splitting leaves as
// needed. targetDepth lets callers trade resolution for cost: wedge
// carving uses the tree's full maxDepth, while coarser consumers such as
// the chunk exporter pass a shallower depth (spec §4.6 "on sample
// insertion": split only while the node is larger than twice the
// caller's query size; targetDepth is how that rule is expressed here).
func (t *Tree) Carve(shape Shape, targetDepth int) error {
	if targetDepth > t.maxDepth {
		targetDepth = t.maxDepth
	}
	for i := 0; i < shape.NumVerts(); i++ {
		t.ensureContains(shape.Vertex(i))
	}
	t.carveRecur(t.root, 0, targetDepth, shape)
	return nil
}

func (t *Tree) carveRecur(idx int32, depth, targetDepth int, shape Shape) {
	n := &t.nodes[idx]
	if !shape.Intersects(n.center, n.halfwidth) {
		return
	}
	if depth >= targetDepth {
		n.data = shape.ApplyToLeaf(n.center, n.halfwidth, n.data)
		return
	}
	if n.isLeaf() {
		t.split(idx)
	}
	children := t.nodes[idx].children
	for _, c := range children {
		t.carveRecur(c, depth+1, targetDepth, shape)
	}
}

// Find visits every leaf that shape intersects and calls ApplyToLeaf on
// it without forcing splits past the tree's existing resolution (spec
// §4.6, §4.7 query use).
func (t *Tree) Find(shape Shape) {
	t.findRecur(t.root, shape)
}

func (t *Tree) findRecur(idx int32, shape Shape) {
	n := &t.nodes[idx]
	if !shape.Intersects(n.center, n.halfwidth) {
		return
	}
	if n.isLeaf() {
		n.data = shape.ApplyToLeaf(n.center, n.halfwidth, n.data)
		return
	}
	for _, c := range n.children {
		t.findRecur(c, shape)
	}
}

// Walk calls visit once for every leaf node in the tree, in depth-first
// order.
func (t *Tree) Walk(visit func(center r3.Vec, halfwidth float64, data *LeafData)) {
	t.walkRecur(t.root, visit)
}

func (t *Tree) walkRecur(idx int32, visit func(r3.Vec, float64, *LeafData)) {
	n := &t.nodes[idx]
	if n.isLeaf() {
		visit(n.center, n.halfwidth, n.data)
		return
	}
	for _, c := range n.children {
		t.walkRecur(c, visit)
	}
}

// WalkStructured calls visit once for every node in the tree, internal
// and leaf alike, in depth-first fixed-child-order, exposing the true
// internal-vs-leaf shape (unlike Walk, which only visits leaves). This is
// what the SOF/SOG exporters need to emit the correct tag-0/tag-1 node
// stream.
func (t *Tree) WalkStructured(visit func(isLeaf bool, center r3.Vec, halfwidth float64, data *LeafData)) {
	t.walkStructuredRecur(t.root, visit)
}

func (t *Tree) walkStructuredRecur(idx int32, visit func(bool, r3.Vec, float64, *LeafData)) {
	n := &t.nodes[idx]
	if n.isLeaf() {
		visit(true, n.center, n.halfwidth, n.data)
		return
	}
	visit(false, n.center, n.halfwidth, nil)
	for _, c := range n.children {
		t.walkStructuredRecur(c, visit)
	}
}

// pointProbe is a private Shape that locates the leaf containing a
// single point without ever mutating it, used by LeafAt and by
// internal/boundary's neighbor resolution (spec §4.10). It goes through
// the same find(shape) protocol as every other query (spec §4.6/§4.7)
// rather than special-casing point lookup with separate tree-walking
// code.
type pointProbe struct {
	p          r3.Vec
	found      bool
	center     r3.Vec
	halfwidth  float64
	data       *LeafData
}

func (p *pointProbe) NumVerts() int       { return 1 }
func (p *pointProbe) Vertex(int) r3.Vec   { return p.p }
func (p *pointProbe) Intersects(c r3.Vec, hw float64) bool {
	return math.Abs(p.p.X-c.X) <= hw && math.Abs(p.p.Y-c.Y) <= hw && math.Abs(p.p.Z-c.Z) <= hw
}
func (p *pointProbe) ApplyToLeaf(c r3.Vec, hw float64, data *LeafData) *LeafData {
	p.found = true
	p.center = c
	p.halfwidth = hw
	p.data = data
	return data
}

// LeafAt returns the leaf whose cube contains p, if any (e.g. p outside
// the tree's current root cube reports found=false).
func (t *Tree) LeafAt(p r3.Vec) (bounds Bounds, data *LeafData, found bool) {
	probe := &pointProbe{p: p}
	t.Find(probe)
	if !probe.found {
		return Bounds{}, nil, false
	}
	return Bounds{Center: probe.center, Halfwidth: probe.halfwidth}, probe.data, true
}

// Simplify collapses any internal node whose eight children are all
// leaves with equal aggregated data back into a single leaf (spec §4.6
// "Simplification"). It returns the number of nodes merged.
func (t *Tree) Simplify() int {
	merged := 0
	t.simplifyRecur(t.root, &merged)
	return merged
}

func (t *Tree) simplifyRecur(idx int32, merged *int) {
	n := &t.nodes[idx]
	if n.isLeaf() {
		return
	}
	children := n.children
	for _, c := range children {
		t.simplifyRecur(c, merged)
	}
	var first *LeafData
	allLeaves := true
	for i, c := range children {
		cn := &t.nodes[c]
		if !cn.isLeaf() {
			allLeaves = false
			break
		}
		if i == 0 {
			first = cn.data
			continue
		}
		if !equalAggregate(first, cn.data, t.mergeEpsilon) {
			allLeaves = false
			break
		}
	}
	if !allLeaves {
		return
	}
	n = &t.nodes[idx]
	n.data = first.clone()
	for i := range n.children {
		n.children[i] = noChild
	}
	*merged++
}
