package boundary

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Thresholds configures the region grower's acceptance predicate (spec
// §4.12).
type Thresholds struct {
	// MinPlanarProb is the minimum leaf planar_probability a face must
	// carry to ever join a region (below it the face stays a region of
	// one).
	MinPlanarProb float64
	// MaxResidual is the maximum mean-squared distance (in the units of
	// face-center coordinates) a refit plane may have to the growing
	// region's faces, or a candidate face is rejected.
	MaxResidual float64
}

// Region is a planar group of boundary faces (spec §3 "planar region").
type Region struct {
	FaceIndices []int
	Point       r3.Vec
	Normal      r3.Vec
}

func faceArea(f Face) float64 {
	s := 2 * f.InteriorHalfwidth
	return s * s
}

// fitPlane computes the area-weighted PCA plane through the given
// faces' interior-cube centers (spec §4.12: "PCA over face centers
// weighted by area"), returning the point (weighted centroid), unit
// normal, and the weighted mean-squared residual of every face center
// to that plane.
func fitPlane(cg *CornerGraph, indices []int) (point, normal r3.Vec, residual float64) {
	var totalWeight float64
	var centroid r3.Vec
	for _, i := range indices {
		f := cg.Faces[i]
		w := faceArea(f)
		centroid = r3.Add(centroid, r3.Scale(w, f.InteriorCenter))
		totalWeight += w
	}
	if totalWeight == 0 {
		return r3.Vec{}, r3.Vec{Z: 1}, 0
	}
	centroid = r3.Scale(1/totalWeight, centroid)

	cov := mat.NewSymDense(3, nil)
	for _, i := range indices {
		f := cg.Faces[i]
		w := faceArea(f)
		d := r3.Sub(f.InteriorCenter, centroid)
		dv := [3]float64{d.X, d.Y, d.Z}
		for a := 0; a < 3; a++ {
			for bIdx := a; bIdx < 3; bIdx++ {
				cov.SetSym(a, bIdx, cov.At(a, bIdx)+w*dv[a]*dv[bIdx])
			}
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return centroid, r3.Vec{Z: 1}, 0
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	minIdx := 0
	for i := 1; i < 3; i++ {
		if values[i] < values[minIdx] {
			minIdx = i
		}
	}
	n := r3.Vec{X: vectors.At(0, minIdx), Y: vectors.At(1, minIdx), Z: vectors.At(2, minIdx)}
	if r3.Norm(n) == 0 {
		n = r3.Vec{Z: 1}
	} else {
		n = r3.Scale(1/r3.Norm(n), n)
	}

	// Orient by area-weighted vote against each face's own outward
	// direction (spec §4.12: "oriented by weighted vote").
	var vote float64
	for _, i := range indices {
		f := cg.Faces[i]
		vote += faceArea(f) * r3.Dot(n, f.Dir.Vector())
	}
	if vote < 0 {
		n = r3.Scale(-1, n)
	}

	var residSum float64
	for _, i := range indices {
		f := cg.Faces[i]
		w := faceArea(f)
		d := r3.Dot(n, r3.Sub(f.InteriorCenter, centroid))
		residSum += w * d * d
	}
	residual = residSum / totalWeight

	return centroid, n, residual
}

// GrowRegions performs the seeded flood-fill of spec §4.12 over cg's
// face adjacency (faces sharing a corner are "adjacent" for this
// purpose). The frontier walk is hand-written against
// CornerGraph.Graph.NeighborIDs rather than reused wholesale from
// lvlath/bfs.BFS: BFS alone has no hook for the per-step acceptance
// predicate (direction match, planar-probability floor, residual
// budget) this algorithm needs at every candidate edge.
func GrowRegions(cg *CornerGraph, t Thresholds) []*Region {
	assigned := make([]bool, len(cg.Faces))
	var regions []*Region

	for seedIdx, seed := range cg.Faces {
		if assigned[seedIdx] {
			continue
		}
		if seed.InteriorData == nil || seed.InteriorData.PlanarProb < t.MinPlanarProb {
			assigned[seedIdx] = true
			regions = append(regions, &Region{FaceIndices: []int{seedIdx}})
			continue
		}

		members := []int{seedIdx}
		memberSet := map[int]bool{seedIdx: true}
		frontierCorners := append([]CornerID{}, seed.Corners[:]...)
		localRejected := map[int]bool{}

		for len(frontierCorners) > 0 {
			var nextCorners []CornerID
			for _, corner := range frontierCorners {
				neighborIDs, err := cg.Graph.NeighborIDs(string(corner))
				if err != nil {
					continue
				}
				for _, nid := range neighborIDs {
					for _, fi := range cg.FacesAt(CornerID(nid)) {
						if assigned[fi] || memberSet[fi] || localRejected[fi] {
							continue
						}
						cand := cg.Faces[fi]
						if cand.Dir != seed.Dir {
							localRejected[fi] = true
							continue
						}
						if cand.InteriorData == nil || cand.InteriorData.PlanarProb < t.MinPlanarProb {
							localRejected[fi] = true
							continue
						}
						trial := append(append([]int{}, members...), fi)
						_, _, residual := fitPlane(cg, trial)
						if residual > t.MaxResidual {
							localRejected[fi] = true
							continue
						}
						members = trial
						memberSet[fi] = true
						nextCorners = append(nextCorners, cand.Corners[:]...)
					}
				}
			}
			frontierCorners = nextCorners
		}

		point, normal, _ := fitPlane(cg, members)
		for _, fi := range members {
			assigned[fi] = true
		}
		regions = append(regions, &Region{FaceIndices: members, Point: point, Normal: normal})
	}

	return regions
}
