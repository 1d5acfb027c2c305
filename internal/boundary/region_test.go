package boundary

import (
	"testing"

	"github.com/elturner/carve/internal/octree"
	"gonum.org/v1/gonum/spatial/r3"
)

type planarFloorShape struct {
	planarProb float64
}

func (s planarFloorShape) NumVerts() int     { return 1 }
func (s planarFloorShape) Vertex(int) r3.Vec { return r3.Vec{} }
func (s planarFloorShape) Intersects(c r3.Vec, hw float64) bool {
	return c.Z+hw > -2 && c.Z-hw < 2
}
func (s planarFloorShape) ApplyToLeaf(c r3.Vec, hw float64, d *octree.LeafData) *octree.LeafData {
	if d == nil {
		d = &octree.LeafData{}
	}
	d.AddSample(0.9)
	d.RoomLabel = "A"
	d.PlanarProb = s.planarProb
	return d
}

// buildFlatFloor carves a slab of interior leaves (the two leaf layers
// centered at z=-2 and z=2) spanning the full X/Y extent of the root, so
// the top face of every upper-layer leaf is coplanar: the region grower
// should merge them into one region (spec scenario S6).
func buildFlatFloor(t *testing.T, planarProb float64) *CornerGraph {
	t.Helper()
	tr, err := octree.NewTree(r3.Vec{}, 8, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Carve(planarFloorShape{planarProb: planarProb}, tr.MaxDepth()); err != nil {
		t.Fatal(err)
	}
	b := BuildBoundary(tr)
	cg, err := BuildCornerGraph(b)
	if err != nil {
		t.Fatal(err)
	}
	return cg
}

func TestGrowRegionsMergesCoplanarFaces(t *testing.T) {
	cg := buildFlatFloor(t, 0.95)
	regions := GrowRegions(cg, Thresholds{MinPlanarProb: 0.5, MaxResidual: 1e-6})

	var topRegions []*Region
	for _, r := range regions {
		if len(r.FaceIndices) == 0 {
			continue
		}
		f := cg.Faces[r.FaceIndices[0]]
		if f.Dir == DirPosZ {
			topRegions = append(topRegions, r)
		}
	}
	if len(topRegions) != 1 {
		t.Fatalf("expected the coplanar top faces to merge into one region, got %d", len(topRegions))
	}
	if len(topRegions[0].FaceIndices) < 2 {
		t.Fatalf("expected the merged region to span multiple faces, got %d", len(topRegions[0].FaceIndices))
	}
	// Scenario S6: fitted normal within ~1 degree of the true +Z normal.
	if got := r3.Dot(topRegions[0].Normal, r3.Vec{Z: 1}); got < 0.9998 {
		t.Errorf("region normal %v deviates too far from +Z (dot=%v)", topRegions[0].Normal, got)
	}
}

func TestGrowRegionsKeepsLowPlanarFacesIsolated(t *testing.T) {
	cg := buildFlatFloor(t, 0.1)
	regions := GrowRegions(cg, Thresholds{MinPlanarProb: 0.5, MaxResidual: 1e-6})
	for _, r := range regions {
		if len(r.FaceIndices) != 1 {
			t.Fatalf("expected low planar-probability faces to stay singleton regions, got size %d", len(r.FaceIndices))
		}
	}
}

func TestGrowRegionsAssignsEveryFaceExactlyOnce(t *testing.T) {
	cg := buildFlatFloor(t, 0.95)
	regions := GrowRegions(cg, Thresholds{MinPlanarProb: 0.5, MaxResidual: 1e-6})
	seen := map[int]bool{}
	for _, r := range regions {
		for _, fi := range r.FaceIndices {
			if seen[fi] {
				t.Fatalf("face %d assigned to more than one region", fi)
			}
			seen[fi] = true
		}
	}
	if len(seen) != len(cg.Faces) {
		t.Fatalf("expected all %d faces assigned, got %d", len(cg.Faces), len(seen))
	}
}
