// Package boundary implements spec §4.10 (the boundary and corner
// graph) and §4.12 (the region grower): it scans a carved octree for
// interior/exterior transitions, builds the canonical-corner adjacency
// graph dual meshing depends on, and flood-fills planar regions over
// that graph.
package boundary

import (
	"fmt"
	"math"

	"github.com/elturner/carve/internal/octree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Direction is one of the 6 axis-aligned face normals a leaf can expose.
type Direction int

const (
	DirPosX Direction = iota
	DirNegX
	DirPosY
	DirNegY
	DirPosZ
	DirNegZ
)

var directionVectors = [6]r3.Vec{
	{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1},
}

// Vector returns the unit outward normal for d.
func (d Direction) Vector() r3.Vec { return directionVectors[d] }

// CornerID canonically identifies one octree node corner (spec §3): the
// corner's quantized world position, so every leaf sharing that
// geometric corner — regardless of leaf size — resolves to the same ID.
type CornerID string

// cornerID quantizes a corner position onto the finest lattice the tree
// resolves (root halfwidth / 2^maxDepth), avoiding float round-trip
// drift from leaves of different sizes that share an exact corner.
func cornerID(p r3.Vec, lattice float64) CornerID {
	q := func(v float64) int64 {
		return int64(math.Round(v / lattice))
	}
	return CornerID(fmt.Sprintf("%d,%d,%d", q(p.X), q(p.Y), q(p.Z)))
}

// Face is one boundary face: an interior leaf with an exterior (or
// absent) neighbor in direction Dir, or a transition between two
// differently room-labeled interior leaves (spec §4.10).
type Face struct {
	InteriorCenter    r3.Vec
	InteriorHalfwidth float64
	InteriorData      *octree.LeafData

	// ExteriorData is nil when the neighbor is outside the tree's root or
	// genuinely unobserved/exterior space; it is non-nil only when the
	// transition is between two differently labeled interior leaves.
	ExteriorData *octree.LeafData

	Dir Direction

	// Corners are the 4 canonical corner IDs of this face, in the order
	// faceCorners produces.
	Corners [4]CornerID
}

// Boundary is the full set of boundary faces extracted from a tree.
type Boundary struct {
	Faces  []Face
	lattice float64
}

// BuildBoundary scans every carved (non-nil-data) leaf of t and emits a
// Face for each of its 6 axis directions that transitions to exterior,
// unobserved, or a differently room-labeled interior neighbor (spec
// §4.10).
func BuildBoundary(t *octree.Tree) *Boundary {
	lattice := t.RootHalfwidth() / math.Pow(2, float64(t.MaxDepth()))
	if lattice <= 0 {
		lattice = 1e-9
	}
	b := &Boundary{lattice: lattice}

	t.Walk(func(c r3.Vec, hw float64, data *octree.LeafData) {
		if data == nil || !data.Interior() {
			return
		}
		for dir := Direction(0); dir < 6; dir++ {
			neighborCenter := r3.Add(c, r3.Scale(2*hw, dir.Vector()))
			_, neighborData, found := t.LeafAt(neighborCenter)

			transition := !found || neighborData == nil || !neighborData.Interior() ||
				neighborData.RoomLabel != data.RoomLabel
			if !transition {
				continue
			}

			face := Face{
				InteriorCenter:    c,
				InteriorHalfwidth: hw,
				InteriorData:      data,
				Dir:               dir,
			}
			if found && neighborData != nil && neighborData.Interior() {
				face.ExteriorData = neighborData
			}
			face.Corners = b.faceCorners(c, hw, dir)
			b.Faces = append(b.Faces, face)
		}
	})
	return b
}

// faceCorners returns the 4 canonical corner IDs of the face of a cube
// (c, hw) in direction dir, ordered counter-clockwise about the positive
// axis of dir. Opposite directions (+d and -d) use the same order, so the
// winding faces outward for the positive directions and inward for the
// negative ones.
func (b *Boundary) faceCorners(c r3.Vec, hw float64, dir Direction) [4]CornerID {
	axis := dir.Vector()
	var normalAxis, uAxis, vAxis r3.Vec
	switch dir {
	case DirPosX, DirNegX:
		normalAxis, uAxis, vAxis = axis, r3.Vec{Y: 1}, r3.Vec{Z: 1}
	case DirPosY, DirNegY:
		normalAxis, uAxis, vAxis = axis, r3.Vec{Z: 1}, r3.Vec{X: 1}
	default:
		normalAxis, uAxis, vAxis = axis, r3.Vec{X: 1}, r3.Vec{Y: 1}
	}
	face := r3.Add(c, r3.Scale(hw, normalAxis))
	var corners [4]CornerID
	offsets := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for i, o := range offsets {
		p := r3.Add(face, r3.Add(r3.Scale(hw*o[0], uAxis), r3.Scale(hw*o[1], vAxis)))
		corners[i] = cornerID(p, b.lattice)
	}
	return corners
}
