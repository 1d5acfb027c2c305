// Package mesh implements the dual surface extractor of spec §4.11: one
// vertex per boundary face at its isosurface position, one polygon per
// canonical corner with vertices wound so the polygon normal faces
// interior.
package mesh

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/elturner/carve/internal/boundary"
)

// Mesh is a polygon soup: one Polygons entry per canonical corner touched
// by at least three faces, no explicit edge list (spec §4.11).
type Mesh struct {
	Vertices []r3.Vec
	Polygons [][]int // indices into Vertices, one per emitted corner
}

// faceVertex places a boundary face's mesh vertex at its isosurface
// position: the linear interpolant between the interior leaf's center
// and the exterior side's center (or, when the exterior side is
// unobserved, the face plane itself), weighted by each side's
// probability distance from 0.5 (spec §3 "Boundary face").
func faceVertex(f boundary.Face) r3.Vec {
	interior := f.InteriorCenter
	wInt := math.Abs(f.InteriorData.Probability() - 0.5)

	var exterior r3.Vec
	var wExt float64
	if f.ExteriorData != nil {
		exterior = r3.Add(interior, r3.Scale(2*f.InteriorHalfwidth, f.Dir.Vector()))
		wExt = math.Abs(f.ExteriorData.Probability() - 0.5)
	} else {
		exterior = r3.Add(interior, r3.Scale(f.InteriorHalfwidth, f.Dir.Vector()))
		wExt = 0
	}

	total := wInt + wExt
	if total == 0 {
		return exterior
	}
	t := wInt / total
	return r3.Add(interior, r3.Scale(t, r3.Sub(exterior, interior)))
}

// Build runs the dual mesher over cg: every face contributes one vertex,
// every canonical corner touched by at least three faces (and with a
// non-zero average normal) contributes one polygon whose vertices are its
// touching faces, angle-sorted around the corner's area-weighted average
// normal and wound to face interior. Other corners emit no polygon.
func Build(cg *boundary.CornerGraph) *Mesh {
	m := &Mesh{}

	faceVertexIndex := make([]int, len(cg.Faces))
	for i, f := range cg.Faces {
		m.Vertices = append(m.Vertices, faceVertex(f))
		faceVertexIndex[i] = i
	}

	for id := range cg.Graph.VerticesMap() {
		cid := boundary.CornerID(id)
		faceIdx := cg.FacesAt(cid)
		if len(faceIdx) < 3 {
			continue
		}
		pivot, ok := cg.Position(cid)
		if !ok {
			continue
		}

		var avgNormal r3.Vec
		for _, fi := range faceIdx {
			f := cg.Faces[fi]
			weight := 4 * f.InteriorHalfwidth * f.InteriorHalfwidth
			avgNormal = r3.Add(avgNormal, r3.Scale(weight, f.Dir.Vector()))
		}
		if r3.Norm(avgNormal) == 0 {
			continue
		}
		avgNormal = r3.Scale(1/r3.Norm(avgNormal), avgNormal)

		uAxis, vAxis := tangentAxes(avgNormal)
		type faceAngle struct {
			idx   int
			angle float64
		}
		angles := make([]faceAngle, 0, len(faceIdx))
		for _, fi := range faceIdx {
			rel := r3.Sub(m.Vertices[faceVertexIndex[fi]], pivot)
			u := r3.Dot(rel, uAxis)
			v := r3.Dot(rel, vAxis)
			angles = append(angles, faceAngle{idx: fi, angle: math.Atan2(v, u)})
		}
		sort.Slice(angles, func(i, j int) bool { return angles[i].angle < angles[j].angle })

		poly := make([]int, len(angles))
		for i, a := range angles {
			poly[i] = faceVertexIndex[a.idx]
		}
		// angles is sorted counter-clockwise around avgNormal, which
		// points interior->exterior; reverse so the polygon winds with
		// its normal facing interior (spec §4.11).
		for i, j := 0, len(poly)-1; i < j; i, j = i+1, j-1 {
			poly[i], poly[j] = poly[j], poly[i]
		}
		m.Polygons = append(m.Polygons, poly)
	}
	return m
}

// tangentAxes returns two unit vectors orthogonal to n and each other,
// forming a basis for the plane perpendicular to n.
func tangentAxes(n r3.Vec) (u, v r3.Vec) {
	ref := r3.Vec{X: 1}
	if math.Abs(n.X) > 0.9 {
		ref = r3.Vec{Y: 1}
	}
	u = r3.Sub(ref, r3.Scale(r3.Dot(ref, n), n))
	u = r3.Scale(1/r3.Norm(u), u)
	v = r3.Cross(n, u)
	return u, v
}
