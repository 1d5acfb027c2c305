package shapes

import (
	"math"

	"github.com/elturner/carve/internal/octree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Plane is a finite rectangular patch used to carve or query one flat
// surface (floors, ceilings, cut-planes for debugging): everything
// strictly on the interior side is assigned InteriorProb, everything on
// the exterior side ExteriorProb, and leaves straddling the plane get a
// linear blend, matching the style of the carve map's own step-5 blend.
type Plane struct {
	Point        r3.Vec // a point on the plane
	Normal       r3.Vec // unit normal, positive side is "interior"
	HalfExtentU  float64
	HalfExtentV  float64
	U, V         r3.Vec // unit tangent axes spanning the patch
	InteriorProb float64
	ExteriorProb float64
}

// NewPlane builds a Plane from a point, unit normal, and patch
// half-extents, deriving an arbitrary pair of orthonormal tangents.
func NewPlane(point, normal r3.Vec, halfExtentU, halfExtentV, interiorProb, exteriorProb float64) Plane {
	normal = r3.Scale(1/r3.Norm(normal), normal)
	ref := r3.Vec{X: 1}
	if math.Abs(normal.X) > 0.9 {
		ref = r3.Vec{Y: 1}
	}
	u := r3.Cross(normal, ref)
	u = r3.Scale(1/r3.Norm(u), u)
	v := r3.Cross(normal, u)
	return Plane{
		Point: point, Normal: normal,
		HalfExtentU: halfExtentU, HalfExtentV: halfExtentV,
		U: u, V: v,
		InteriorProb: interiorProb, ExteriorProb: exteriorProb,
	}
}

func (p Plane) NumVerts() int { return 4 }

func (p Plane) Vertex(i int) r3.Vec {
	su := p.HalfExtentU
	sv := p.HalfExtentV
	switch i {
	case 0:
		return r3.Add(p.Point, r3.Add(r3.Scale(-su, p.U), r3.Scale(-sv, p.V)))
	case 1:
		return r3.Add(p.Point, r3.Add(r3.Scale(su, p.U), r3.Scale(-sv, p.V)))
	case 2:
		return r3.Add(p.Point, r3.Add(r3.Scale(su, p.U), r3.Scale(sv, p.V)))
	default:
		return r3.Add(p.Point, r3.Add(r3.Scale(-su, p.U), r3.Scale(sv, p.V)))
	}
}

func (p Plane) signedDist(c r3.Vec) float64 {
	return r3.Dot(p.Normal, r3.Sub(c, p.Point))
}

// Intersects reports whether the cube at (c, hw) comes within hw of the
// plane's infinite extension and also projects inside the patch's
// rectangular footprint (expanded by hw, since a cube corner can reach
// past the patch edge while the cube still overlaps it).
func (p Plane) Intersects(c r3.Vec, hw float64) bool {
	dist := p.signedDist(c)
	boxRadius := hw * (absf(p.Normal.X) + absf(p.Normal.Y) + absf(p.Normal.Z))
	if math.Abs(dist) > boxRadius {
		return false
	}
	rel := r3.Sub(c, p.Point)
	u := r3.Dot(rel, p.U)
	v := r3.Dot(rel, p.V)
	return math.Abs(u) <= p.HalfExtentU+hw && math.Abs(v) <= p.HalfExtentV+hw
}

// ApplyToLeaf blends interior/exterior probability by the same
// transition-fraction idea as carve.Map.Compute step 5.
func (p Plane) ApplyToLeaf(c r3.Vec, hw float64, data *octree.LeafData) *octree.LeafData {
	if data == nil {
		data = &octree.LeafData{}
	}
	dist := p.signedDist(c)
	f := clamp01(0.5 + dist/(2*hw))
	prob := f*p.InteriorProb + (1-f)*p.ExteriorProb
	data.AddSample(prob)
	return data
}

// Polygon2D is a simple planar polygon in the XY plane, vertices in
// order (not necessarily convex), used as the footprint for
// BloatedFloorplanPolygon and ExtrudedRoomPolygon.
type Polygon2D struct {
	Vertices []r3.Vec // Z components ignored
}

// contains reports whether (x,y) lies inside the polygon via the
// standard ray-casting parity test (mirrors the teacher's
// pointInPolygon in pkg/s57/cellset.go).
func (poly Polygon2D) contains(x, y float64) bool {
	in := false
	n := len(poly.Vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := poly.Vertices[i], poly.Vertices[j]
		if (vi.Y > y) != (vj.Y > y) {
			xint := (vj.X-vi.X)*(y-vi.Y)/(vj.Y-vi.Y) + vi.X
			if x < xint {
				in = !in
			}
		}
	}
	return in
}

func (poly Polygon2D) bounds() (lo, hi r3.Vec) {
	lo, hi = poly.Vertices[0], poly.Vertices[0]
	for _, v := range poly.Vertices[1:] {
		lo = r3.Vec{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y)}
		hi = r3.Vec{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y)}
	}
	return
}

// BloatedFloorplanPolygon extrudes a 2D floorplan footprint between
// [MinZ, MaxZ] and buffers its boundary outward by Buffer, so wedges
// that fall just outside a noisy floorplan trace are still carved as
// exterior rather than left unknown (spec's "2D floorplan reasoning" is
// an external collaborator; this shape only consumes an already-derived
// footprint polygon, it does not compute one).
type BloatedFloorplanPolygon struct {
	Footprint    Polygon2D
	MinZ, MaxZ   float64
	Buffer       float64
	ExteriorProb float64
}

func (b BloatedFloorplanPolygon) NumVerts() int { return len(b.Footprint.Vertices) * 2 }

func (b BloatedFloorplanPolygon) Vertex(i int) r3.Vec {
	n := len(b.Footprint.Vertices)
	v := b.Footprint.Vertices[i%n]
	z := b.MinZ
	if i >= n {
		z = b.MaxZ
	}
	return r3.Vec{X: v.X, Y: v.Y, Z: z}
}

func (b BloatedFloorplanPolygon) Intersects(c r3.Vec, hw float64) bool {
	if c.Z+hw < b.MinZ || c.Z-hw > b.MaxZ {
		return false
	}
	lo, hi := b.Footprint.bounds()
	return c.X+hw >= lo.X-b.Buffer && c.X-hw <= hi.X+b.Buffer &&
		c.Y+hw >= lo.Y-b.Buffer && c.Y-hw <= hi.Y+b.Buffer
}

// ApplyToLeaf marks leaves whose center falls outside the footprint
// polygon itself (Buffer only widens Intersects) as exterior, leaving
// interior leaves untouched (returned as-is) since the floorplan only
// carves away known-exterior space.
func (b BloatedFloorplanPolygon) ApplyToLeaf(c r3.Vec, hw float64, data *octree.LeafData) *octree.LeafData {
	if b.Footprint.contains(c.X, c.Y) {
		return data
	}
	if data == nil {
		data = &octree.LeafData{}
	}
	data.AddSample(b.ExteriorProb)
	return data
}

// ExtrudedRoomPolygon is one room's footprint extruded between floor and
// ceiling, used to stamp a RoomLabel onto every leaf inside it (spec §3
// "leaf data" room label field).
type ExtrudedRoomPolygon struct {
	Footprint  Polygon2D
	MinZ, MaxZ float64
	RoomLabel  string
}

func (r ExtrudedRoomPolygon) NumVerts() int { return len(r.Footprint.Vertices) * 2 }

func (r ExtrudedRoomPolygon) Vertex(i int) r3.Vec {
	n := len(r.Footprint.Vertices)
	v := r.Footprint.Vertices[i%n]
	z := r.MinZ
	if i >= n {
		z = r.MaxZ
	}
	return r3.Vec{X: v.X, Y: v.Y, Z: z}
}

func (r ExtrudedRoomPolygon) Intersects(c r3.Vec, hw float64) bool {
	if c.Z+hw < r.MinZ || c.Z-hw > r.MaxZ {
		return false
	}
	lo, hi := r.Footprint.bounds()
	return c.X+hw >= lo.X && c.X-hw <= hi.X && c.Y+hw >= lo.Y && c.Y-hw <= hi.Y
}

// ApplyToLeaf stamps the room label on leaves whose center lies inside
// the footprint, leaving leaf probability untouched.
func (r ExtrudedRoomPolygon) ApplyToLeaf(c r3.Vec, hw float64, data *octree.LeafData) *octree.LeafData {
	if !r.Footprint.contains(c.X, c.Y) {
		return data
	}
	if data == nil {
		data = &octree.LeafData{}
	}
	data.RoomLabel = r.RoomLabel
	return data
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
