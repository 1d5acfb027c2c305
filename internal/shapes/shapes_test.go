package shapes

import (
	"testing"

	"github.com/elturner/carve/internal/octree"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestPlaneBlendsAcrossTransition(t *testing.T) {
	p := NewPlane(r3.Vec{}, r3.Vec{Z: 1}, 10, 10, 1.0, 0.0)

	onPlane := p.ApplyToLeaf(r3.Vec{}, 1, nil)
	if got := onPlane.Probability(); got < 0.4 || got > 0.6 {
		t.Fatalf("center of transition blend = %v, want close to 0.5", got)
	}

	interior := p.ApplyToLeaf(r3.Vec{Z: 5}, 1, nil)
	if got := interior.Probability(); got < 0.9 {
		t.Fatalf("deep interior probability = %v, want near 1", got)
	}

	exterior := p.ApplyToLeaf(r3.Vec{Z: -5}, 1, nil)
	if got := exterior.Probability(); got > 0.1 {
		t.Fatalf("deep exterior probability = %v, want near 0", got)
	}
}

func TestPlaneIntersectsRespectsExtent(t *testing.T) {
	p := NewPlane(r3.Vec{}, r3.Vec{Z: 1}, 2, 2, 1, 0)
	if !p.Intersects(r3.Vec{X: 1, Y: 1, Z: 0}, 0.5) {
		t.Fatal("expected cube within patch extent to intersect")
	}
	if p.Intersects(r3.Vec{X: 10, Y: 10, Z: 0}, 0.5) {
		t.Fatal("expected cube far outside patch extent not to intersect")
	}
}

func square(halfSide float64) Polygon2D {
	return Polygon2D{Vertices: []r3.Vec{
		{X: -halfSide, Y: -halfSide},
		{X: halfSide, Y: -halfSide},
		{X: halfSide, Y: halfSide},
		{X: -halfSide, Y: halfSide},
	}}
}

func TestExtrudedRoomPolygonStampsLabel(t *testing.T) {
	room := ExtrudedRoomPolygon{Footprint: square(5), MinZ: 0, MaxZ: 3, RoomLabel: "kitchen"}
	inside := room.ApplyToLeaf(r3.Vec{X: 1, Y: 1, Z: 1}, 0.1, nil)
	if inside.RoomLabel != "kitchen" {
		t.Fatalf("room label = %q, want kitchen", inside.RoomLabel)
	}
	outside := room.ApplyToLeaf(r3.Vec{X: 100, Y: 100, Z: 1}, 0.1, &octree.LeafData{RoomLabel: "hallway"})
	if outside.RoomLabel != "hallway" {
		t.Fatalf("leaf outside footprint should be untouched, got %q", outside.RoomLabel)
	}
}

func TestBloatedFloorplanMarksExterior(t *testing.T) {
	b := BloatedFloorplanPolygon{Footprint: square(5), MinZ: 0, MaxZ: 3, Buffer: 1, ExteriorProb: 0.1}
	outside := b.ApplyToLeaf(r3.Vec{X: 50, Y: 50, Z: 1}, 0.1, nil)
	if outside == nil || outside.Probability() != 0.1 {
		t.Fatalf("expected exterior leaf stamped at 0.1, got %+v", outside)
	}
	inside := b.ApplyToLeaf(r3.Vec{X: 0, Y: 0, Z: 1}, 0.1, nil)
	if inside != nil {
		t.Fatalf("expected interior leaf untouched, got %+v", inside)
	}
}

func TestHistogramProjectorAccumulatesArea(t *testing.T) {
	h := NewHistogramProjector(0, 0, 1, 4, 4, 0, 10)
	d := &octree.LeafData{}
	d.AddSample(0.8)
	h.ApplyToLeaf(r3.Vec{X: 1.5, Y: 1.5, Z: 1}, 0.5, d)
	if got := h.CellProbability(1, 1); got != 0.8 {
		t.Fatalf("cell probability = %v, want 0.8", got)
	}
	if got := h.CellProbability(3, 3); got != 0.5 {
		t.Fatalf("untouched cell probability = %v, want 0.5 (no information)", got)
	}
}
