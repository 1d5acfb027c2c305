package chunk

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/elturner/carve/internal/octree"
)

func TestPartitionCoversRootVolume(t *testing.T) {
	root := octree.Bounds{Center: r3.Vec{}, Halfwidth: 8}
	c := Partition(root, 2)
	if got, want := len(c.Chunks()), 1<<(3*2); got != want {
		t.Fatalf("got %d chunks, want %d", got, want)
	}
	for _, ch := range c.Chunks() {
		if !root.Contains(ch.Bounds.Center) {
			t.Errorf("chunk center %v not inside root bounds", ch.Bounds.Center)
		}
	}
}

func TestChunkAtAndOverlappingAgree(t *testing.T) {
	root := octree.Bounds{Center: r3.Vec{}, Halfwidth: 8}
	c := Partition(root, 2)

	p := r3.Vec{X: 3, Y: 3, Z: 3}
	found := c.chunkAt(p)
	if found == nil {
		t.Fatal("expected a chunk to contain p")
	}

	overlap := c.Overlapping(octree.Bounds{Center: p, Halfwidth: 1e-6})
	matched := false
	for _, ch := range overlap {
		if ch.ID == found.ID {
			matched = true
		}
	}
	if !matched {
		t.Fatalf("Overlapping() did not include the chunk chunkAt found for %v", p)
	}
}

func TestExportRecordsWedgeIndices(t *testing.T) {
	root := octree.Bounds{Center: r3.Vec{}, Halfwidth: 8}
	c := Partition(root, 1)

	visited := []octree.Bounds{{Center: r3.Vec{X: 2, Y: 2, Z: 2}, Halfwidth: 1}}
	c.Export(visited, 42)

	ch := c.chunkAt(r3.Vec{X: 2, Y: 2, Z: 2})
	if ch == nil {
		t.Fatal("expected a chunk at the exported location")
	}
	found := false
	for _, idx := range ch.WedgeIndices() {
		if idx == 42 {
			found = true
		}
	}
	if !found {
		t.Fatalf("wedge index 42 not recorded, got %v", ch.WedgeIndices())
	}
}

func TestCloseWritesChunklistAndChunkFiles(t *testing.T) {
	dir := t.TempDir()
	root := octree.Bounds{Center: r3.Vec{}, Halfwidth: 4}
	c := Partition(root, 1)
	c.Export([]octree.Bounds{{Center: r3.Vec{X: 1, Y: 1, Z: 1}, Halfwidth: 1}}, 7)

	chunkDir := filepath.Join(dir, "chunks")
	listPath := filepath.Join(dir, "chunklist.txt")
	if err := c.Close(listPath, chunkDir, []string{"sensor0", "sensor1"}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("chunklist file is empty")
	}
	if string(data[:9]) != "chunklist" {
		t.Fatalf("missing chunklist magic, got %q", string(data[:9]))
	}

	for _, ch := range c.Chunks() {
		path := filepath.Join(chunkDir, ch.ID.String()+".chunk")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected chunk file %s to exist: %v", path, err)
		}
	}
}
