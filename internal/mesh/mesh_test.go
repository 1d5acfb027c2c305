package mesh

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/elturner/carve/internal/boundary"
	"github.com/elturner/carve/internal/octree"
)

func singleRoomGraph(t *testing.T) *boundary.CornerGraph {
	t.Helper()
	tr, err := octree.NewTree(r3.Vec{}, 8, 2)
	if err != nil {
		t.Fatal(err)
	}
	shape := roomShape{}
	if err := tr.Carve(shape, tr.MaxDepth()); err != nil {
		t.Fatal(err)
	}
	b := boundary.BuildBoundary(tr)
	cg, err := boundary.BuildCornerGraph(b)
	if err != nil {
		t.Fatal(err)
	}
	return cg
}

type roomShape struct{}

func (roomShape) NumVerts() int     { return 1 }
func (roomShape) Vertex(int) r3.Vec { return r3.Vec{} }
func (roomShape) Intersects(c r3.Vec, hw float64) bool {
	return c.X+hw > -2 && c.X-hw < 2 && c.Y+hw > -2 && c.Y-hw < 2 && c.Z+hw > -2 && c.Z-hw < 2
}
func (roomShape) ApplyToLeaf(c r3.Vec, hw float64, d *octree.LeafData) *octree.LeafData {
	if d == nil {
		d = &octree.LeafData{}
	}
	d.AddSample(0.9)
	return d
}

func TestBuildProducesOneVertexPerFace(t *testing.T) {
	cg := singleRoomGraph(t)
	m := Build(cg)
	if len(m.Vertices) != len(cg.Faces) {
		t.Fatalf("got %d vertices, want %d (one per face)", len(m.Vertices), len(cg.Faces))
	}
}

func TestBuildProducesClosedPolygonsAtEveryCorner(t *testing.T) {
	cg := singleRoomGraph(t)
	m := Build(cg)
	if len(m.Polygons) == 0 {
		t.Fatal("expected at least one polygon")
	}
	for i, poly := range m.Polygons {
		if len(poly) < 3 {
			t.Errorf("polygon %d has fewer than 3 vertices: %v", i, poly)
		}
		for _, vi := range poly {
			if vi < 0 || vi >= len(m.Vertices) {
				t.Errorf("polygon %d references out-of-range vertex %d", i, vi)
			}
		}
	}
}

func TestFaceVertexLiesBetweenInteriorAndExterior(t *testing.T) {
	cg := singleRoomGraph(t)
	for _, f := range cg.Faces {
		v := faceVertex(f)
		d := r3.Dot(r3.Sub(v, f.InteriorCenter), f.Dir.Vector())
		if d < -1e-9 || d > 2*f.InteriorHalfwidth+1e-9 {
			t.Errorf("face vertex %v not between interior center and exterior side along %v", v, f.Dir)
		}
	}
}
