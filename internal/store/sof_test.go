package store

import (
	"bytes"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/elturner/carve/internal/octree"
)

func carvedTestTree(t *testing.T) *octree.Tree {
	t.Helper()
	tr, err := octree.NewTree(r3.Vec{}, 8, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.InsertSample(r3.Vec{X: 1, Y: 1, Z: 1}, 0.9); err != nil {
		t.Fatal(err)
	}
	if err := tr.InsertSample(r3.Vec{X: -3, Y: -3, Z: -3}, 0.1); err != nil {
		t.Fatal(err)
	}
	return tr
}

func countLeaves(tr *octree.Tree) int {
	n := 0
	tr.Walk(func(r3.Vec, float64, *octree.LeafData) { n++ })
	return n
}

func TestSOFRoundTripPreservesLeafCountAndSide(t *testing.T) {
	tr := carvedTestTree(t)
	var buf bytes.Buffer
	if err := WriteSOF(&buf, tr); err != nil {
		t.Fatal(err)
	}
	side, leaves, err := ReadSOF(&buf)
	if err != nil {
		t.Fatal(err)
	}
	wantSide := uint32(1) << uint32(tr.MaxDepth())
	if side != wantSide {
		t.Errorf("side = %d, want %d", side, wantSide)
	}
	if len(leaves) != countLeaves(tr) {
		t.Errorf("decoded %d leaves, want %d", len(leaves), countLeaves(tr))
	}
}

func TestSOFRoundTripPreservesInsideOutsideFlags(t *testing.T) {
	tr := carvedTestTree(t)
	var buf bytes.Buffer
	if err := WriteSOF(&buf, tr); err != nil {
		t.Fatal(err)
	}
	_, leaves, err := ReadSOF(&buf)
	if err != nil {
		t.Fatal(err)
	}
	var want []bool
	tr.Walk(func(c r3.Vec, hw float64, d *octree.LeafData) {
		want = append(want, d != nil && d.Interior())
	})
	if len(want) != len(leaves) {
		t.Fatalf("leaf count mismatch: %d vs %d", len(want), len(leaves))
	}
	for i := range want {
		if want[i] != leaves[i] {
			t.Errorf("leaf %d inside flag = %v, want %v", i, leaves[i], want[i])
		}
	}
}

func TestReadSOFRejectsTruncatedStream(t *testing.T) {
	tr := carvedTestTree(t)
	var buf bytes.Buffer
	if err := WriteSOF(&buf, tr); err != nil {
		t.Fatal(err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-1])
	if _, _, err := ReadSOF(truncated); err == nil {
		t.Fatal("expected an error reading a truncated SOF stream")
	}
}

func TestWriteSOGEmitsExpectedHeaderSize(t *testing.T) {
	tr := carvedTestTree(t)
	var buf bytes.Buffer
	if err := WriteSOG(&buf, tr, 0.5); err != nil {
		t.Fatal(err)
	}
	if buf.Len() < 132 {
		t.Fatalf("SOG stream too short for its 128-byte header + dimension: %d bytes", buf.Len())
	}
	magic := buf.Bytes()[:16]
	for i := range sogMagic {
		if magic[i] != sogMagic[i] {
			t.Fatalf("SOG magic mismatch at byte %d: got %v, want %v", i, magic, sogMagic)
		}
	}
}
