package octree

import "gonum.org/v1/gonum/spatial/r3"

// Bounds is an axis-aligned cube, the shape every octree node has.
type Bounds struct {
	Center    r3.Vec
	Halfwidth float64
}

// Contains reports whether p lies within b (inclusive of the boundary).
func (b Bounds) Contains(p r3.Vec) bool {
	return absf(p.X-b.Center.X) <= b.Halfwidth &&
		absf(p.Y-b.Center.Y) <= b.Halfwidth &&
		absf(p.Z-b.Center.Z) <= b.Halfwidth
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Shape is the query/carve visitor protocol of spec §4.7: any volumetric
// primitive the tree can be carved or queried with implements it. The
// tree calls Intersects to decide whether to recurse into a node, and
// ApplyToLeaf once it reaches a node at the target depth.
type Shape interface {
	// NumVerts returns the number of vertices Vertex can index.
	NumVerts() int

	// Vertex returns the i'th vertex of the shape, 0 <= i < NumVerts().
	Vertex(i int) r3.Vec

	// Intersects reports whether the shape overlaps the axis-aligned
	// cube centered at c with halfwidth hw.
	Intersects(c r3.Vec, hw float64) bool

	// ApplyToLeaf folds the shape's contribution into data (which may be
	// nil, meaning the leaf is being visited for the first time) and
	// returns the updated leaf data to store.
	ApplyToLeaf(c r3.Vec, hw float64, data *LeafData) *LeafData
}
