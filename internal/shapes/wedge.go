// Package shapes provides the concrete Shape implementations of spec
// §4.7: the carved wedge, finite planar patches, buffered floorplan
// polygons, the chunk exporter, and the 2D histogram projector.
package shapes

import (
	"math"

	"github.com/elturner/carve/internal/carve"
	"github.com/elturner/carve/internal/octree"
	"github.com/elturner/carve/internal/progress"
	"gonum.org/v1/gonum/spatial/r3"
)

// WedgeShape adapts a carve.Wedge to octree.Shape, carving the average
// probability of its four contributing carve maps into every leaf its
// hexahedron overlaps.
type WedgeShape struct {
	W        *carve.Wedge
	Reporter progress.Reporter

	lo, hi r3.Vec
}

// NewWedgeShape precomputes w's axis-aligned bounding box, which
// Intersects uses as a cheap first rejection before its per-triangle
// tests.
func NewWedgeShape(w *carve.Wedge, reporter progress.Reporter) *WedgeShape {
	lo, hi := w.Vertices[0], w.Vertices[0]
	for _, v := range w.Vertices[1:] {
		lo = r3.Vec{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
		hi = r3.Vec{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
	}
	return &WedgeShape{W: w, Reporter: reporter, lo: lo, hi: hi}
}

func (s *WedgeShape) NumVerts() int       { return len(s.W.Vertices) }
func (s *WedgeShape) Vertex(i int) r3.Vec { return s.W.Vertices[i] }

// Intersects first rejects cubes outside the wedge's cached bounding
// box, then runs a separating-axis triangle-vs-cube test against each
// surface triangle from triangles(). It reports true only when some
// surface triangle overlaps the cube; there is no separate edge test, and
// a cube lying wholly inside the wedge without touching any surface
// triangle is reported as not intersecting.
func (s *WedgeShape) Intersects(c r3.Vec, hw float64) bool {
	if c.X+hw < s.lo.X || c.X-hw > s.hi.X ||
		c.Y+hw < s.lo.Y || c.Y-hw > s.hi.Y ||
		c.Z+hw < s.lo.Z || c.Z-hw > s.hi.Z {
		return false
	}
	for _, tri := range s.triangles() {
		if triangleAABBOverlap(tri, c, hw) {
			return true
		}
	}
	return false
}

// triangles decomposes the wedge's six vertices (sensor@j, hit@j[0],
// hit@j[1], sensor@j+1, hit@j+1[0], hit@j+1[1]) into ten triangles: the
// two end caps, the three side quads each cut along one diagonal, and the
// two end caps again as the last two entries.
func (s *WedgeShape) triangles() [10][3]r3.Vec {
	v := s.W.Vertices
	return [10][3]r3.Vec{
		{v[0], v[1], v[2]}, // end cap j
		{v[3], v[4], v[5]}, // end cap j+1
		{v[0], v[1], v[3]}, {v[1], v[3], v[4]}, // side: sensor-hit0
		{v[0], v[2], v[3]}, {v[2], v[3], v[5]}, // side: sensor-hit1
		{v[1], v[2], v[4]}, {v[2], v[4], v[5]}, // side: hit0-hit1
		{v[0], v[1], v[2]}, {v[3], v[4], v[5]}, // end caps repeated
	}
}

// triangleAABBOverlap is the standard separating-axis test for a
// triangle against an axis-aligned box (13 candidate axes: 3 box face
// normals, 1 triangle normal, 9 edge cross products).
func triangleAABBOverlap(tri [3]r3.Vec, c r3.Vec, hw float64) bool {
	v0 := r3.Sub(tri[0], c)
	v1 := r3.Sub(tri[1], c)
	v2 := r3.Sub(tri[2], c)

	boxMin := r3.Vec{X: -hw, Y: -hw, Z: -hw}
	boxMax := r3.Vec{X: hw, Y: hw, Z: hw}
	triMin := r3.Vec{X: min3(v0.X, v1.X, v2.X), Y: min3(v0.Y, v1.Y, v2.Y), Z: min3(v0.Z, v1.Z, v2.Z)}
	triMax := r3.Vec{X: max3(v0.X, v1.X, v2.X), Y: max3(v0.Y, v1.Y, v2.Y), Z: max3(v0.Z, v1.Z, v2.Z)}
	if triMax.X < boxMin.X || triMin.X > boxMax.X ||
		triMax.Y < boxMin.Y || triMin.Y > boxMax.Y ||
		triMax.Z < boxMin.Z || triMin.Z > boxMax.Z {
		return false
	}

	n := r3.Cross(r3.Sub(v1, v0), r3.Sub(v2, v0))
	if r3.Norm(n) == 0 {
		return true // degenerate triangle (collapsed hit pair): box overlap already established above
	}
	d := r3.Dot(n, v0)
	radius := hw * (absf(n.X) + absf(n.Y) + absf(n.Z))
	if d > radius || d < -radius {
		return false
	}

	edges := [3]r3.Vec{r3.Sub(v1, v0), r3.Sub(v2, v1), r3.Sub(v0, v2)}
	verts := [3]r3.Vec{v0, v1, v2}
	axes := [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
	for _, e := range edges {
		for _, a := range axes {
			axis := r3.Cross(e, a)
			if r3.Norm(axis) == 0 {
				continue
			}
			p0 := r3.Dot(axis, verts[0])
			p1 := r3.Dot(axis, verts[1])
			p2 := r3.Dot(axis, verts[2])
			pmin := min3(p0, p1, p2)
			pmax := max3(p0, p1, p2)
			r := hw * (absf(axis.X) + absf(axis.Y) + absf(axis.Z))
			if pmin > r || pmax < -r {
				return false
			}
		}
	}
	return true
}

// ApplyToLeaf folds the wedge's carved probability into data via
// LeafData.AddSample, exactly as spec §4.4/§4.6 describe leaf
// aggregation on insertion.
func (s *WedgeShape) ApplyToLeaf(c r3.Vec, hw float64, data *octree.LeafData) *octree.LeafData {
	if data == nil {
		data = &octree.LeafData{}
	}
	p := s.W.CarveAt(c, hw, s.Reporter)
	data.AddSample(p)
	return data
}

func min3(a, b, c float64) float64 { return math.Min(a, math.Min(b, c)) }
func max3(a, b, c float64) float64 { return math.Max(a, math.Max(b, c)) }
func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
