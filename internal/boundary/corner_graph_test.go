package boundary

import (
	"testing"

	"github.com/elturner/carve/internal/octree"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestBuildCornerGraphConnectsFaceEdges(t *testing.T) {
	tr, err := octree.NewTree(r3.Vec{}, 8, 2)
	if err != nil {
		t.Fatal(err)
	}
	carveInteriorCube(t, tr, r3.Vec{}, 2, "A")

	b := BuildBoundary(tr)
	cg, err := BuildCornerGraph(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(cg.Graph.VerticesMap()) == 0 {
		t.Fatal("expected corner vertices to be registered")
	}

	for _, f := range b.Faces {
		for i := 0; i < 4; i++ {
			j := (i + 1) % 4
			if f.Corners[i] == f.Corners[j] {
				continue
			}
			if !cg.Graph.HasEdge(string(f.Corners[i]), string(f.Corners[j])) {
				t.Errorf("missing edge between face corners %v and %v", f.Corners[i], f.Corners[j])
			}
		}
	}
}

func TestFacesAtReturnsOwningFaces(t *testing.T) {
	tr, err := octree.NewTree(r3.Vec{}, 8, 2)
	if err != nil {
		t.Fatal(err)
	}
	carveInteriorCube(t, tr, r3.Vec{}, 2, "A")

	b := BuildBoundary(tr)
	cg, err := BuildCornerGraph(b)
	if err != nil {
		t.Fatal(err)
	}

	for _, f := range b.Faces {
		for _, c := range f.Corners {
			faces := cg.FacesAt(c)
			if len(faces) == 0 {
				t.Fatalf("corner %v reports no owning faces", c)
			}
		}
	}
}

func TestPositionRoundTripsCornerCoordinates(t *testing.T) {
	tr, err := octree.NewTree(r3.Vec{}, 8, 2)
	if err != nil {
		t.Fatal(err)
	}
	carveInteriorCube(t, tr, r3.Vec{}, 2, "A")

	b := BuildBoundary(tr)
	cg, err := BuildCornerGraph(b)
	if err != nil {
		t.Fatal(err)
	}

	for _, f := range b.Faces {
		positions := faceCornerPositions(f)
		for i, c := range f.Corners {
			pos, ok := cg.Position(c)
			if !ok {
				t.Fatalf("no position recorded for corner %v", c)
			}
			if r3.Norm(r3.Sub(pos, positions[i])) > 1e-9 {
				t.Errorf("corner %v position = %v, want %v", c, pos, positions[i])
			}
		}
	}
}
