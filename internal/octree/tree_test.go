package octree

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewTreeRejectsBadHalfwidth(t *testing.T) {
	if _, err := NewTree(r3.Vec{}, 0, 4); err == nil {
		t.Fatal("expected error for zero halfwidth")
	}
	if _, err := NewTree(r3.Vec{}, -1, 4); err == nil {
		t.Fatal("expected error for negative halfwidth")
	}
}

func TestInsertSampleSingleLeaf(t *testing.T) {
	tr, err := NewTree(r3.Vec{}, 8, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.InsertSample(r3.Vec{X: 1, Y: 1, Z: 1}, 0.9); err != nil {
		t.Fatal(err)
	}
	var got *LeafData
	tr.Walk(func(c r3.Vec, hw float64, d *LeafData) {
		got = d
	})
	if got == nil || got.Count != 1 {
		t.Fatalf("expected one sample recorded, got %+v", got)
	}
}

func TestInsertSampleDescendsToMaxDepth(t *testing.T) {
	tr, err := NewTree(r3.Vec{}, 8, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.InsertSample(r3.Vec{X: 3, Y: 3, Z: 3}, 1.0); err != nil {
		t.Fatal(err)
	}
	leaves := 0
	tr.Walk(func(c r3.Vec, hw float64, d *LeafData) {
		leaves++
		if d != nil {
			wantHW := tr.RootHalfwidth() / 8 // 2^3
			if hw != wantHW {
				t.Errorf("sampled leaf halfwidth = %v, want %v", hw, wantHW)
			}
		}
	})
	// Only the nodes on the path to the sample split: 8 leaves from the
	// root split, then 7 more for each of the two deeper splits.
	if want := 8 + 7*2; leaves != want {
		t.Fatalf("expected only the sample's path to be split (%d leaves), got %d", want, leaves)
	}
}

// TestRootExpansionContainsOutlier exercises spec scenario S3: a point
// outside the initial root must force ensureContains to grow the root until it is contained,
// without disturbing previously inserted samples.
func TestRootExpansionContainsOutlier(t *testing.T) {
	tr, err := NewTree(r3.Vec{}, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.InsertSample(r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, 0.8); err != nil {
		t.Fatal(err)
	}
	far := r3.Vec{X: 50, Y: -50, Z: 50}
	if err := tr.InsertSample(far, 0.3); err != nil {
		t.Fatal(err)
	}
	if tr.RootHalfwidth() < 50 {
		t.Fatalf("root halfwidth %v did not grow to contain %v", tr.RootHalfwidth(), far)
	}
	if !tr.contains(tr.root, far) {
		t.Fatalf("expanded root does not contain %v", far)
	}
	if !tr.contains(tr.root, r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}) {
		t.Fatal("expanded root lost the original sample's location")
	}

	found := false
	tr.Walk(func(c r3.Vec, hw float64, d *LeafData) {
		if d != nil && d.Count == 1 && d.Probability() > 0.79 && d.Probability() < 0.81 {
			found = true
		}
	})
	if !found {
		t.Fatal("original sample not recoverable after root expansion")
	}
}

func TestSimplifyMergesUniformChildren(t *testing.T) {
	tr, err := NewTree(r3.Vec{}, 8, 1)
	if err != nil {
		t.Fatal(err)
	}
	corners := []r3.Vec{
		{X: 2, Y: 2, Z: 2}, {X: 2, Y: 2, Z: -2}, {X: 2, Y: -2, Z: 2}, {X: 2, Y: -2, Z: -2},
		{X: -2, Y: 2, Z: 2}, {X: -2, Y: 2, Z: -2}, {X: -2, Y: -2, Z: 2}, {X: -2, Y: -2, Z: -2},
	}
	for _, c := range corners {
		if err := tr.InsertSample(c, 0.5); err != nil {
			t.Fatal(err)
		}
	}
	before := tr.NumNodes()
	merged := tr.Simplify()
	if merged != 1 {
		t.Fatalf("expected exactly one merge, got %d (nodes before=%d after=%d)", merged, before, tr.NumNodes())
	}
	leaves := 0
	tr.Walk(func(r3.Vec, float64, *LeafData) { leaves++ })
	if leaves != 1 {
		t.Fatalf("expected root to have collapsed to a single leaf, got %d leaves", leaves)
	}
}

type constShape struct {
	contains func(c r3.Vec, hw float64) bool
	value    float64
}

func (s constShape) NumVerts() int         { return 1 }
func (s constShape) Vertex(i int) r3.Vec   { return r3.Vec{} }
func (s constShape) Intersects(c r3.Vec, hw float64) bool {
	return s.contains(c, hw)
}
func (s constShape) ApplyToLeaf(c r3.Vec, hw float64, d *LeafData) *LeafData {
	if d == nil {
		d = &LeafData{}
	}
	d.AddSample(s.value)
	return d
}

func TestCarveSplitsToTargetDepthOnly(t *testing.T) {
	tr, err := NewTree(r3.Vec{}, 8, 4)
	if err != nil {
		t.Fatal(err)
	}
	everything := constShape{contains: func(r3.Vec, float64) bool { return true }, value: 0.7}
	if err := tr.Carve(everything, 2); err != nil {
		t.Fatal(err)
	}
	leaves := 0
	tr.Walk(func(c r3.Vec, hw float64, d *LeafData) {
		leaves++
		if d == nil || d.Count != 1 {
			t.Errorf("leaf at %v not carved exactly once: %+v", c, d)
		}
	})
	if want := 1 << (3 * 2); leaves != want {
		t.Fatalf("expected %d leaves at target depth 2, got %d", want, leaves)
	}
}
