package store

import (
	"bytes"
	"testing"

	"github.com/elturner/carve/internal/shapes"
)

func TestHIARoundTrip(t *testing.T) {
	p := shapes.NewHistogramProjector(-1, -1, 0.5, 4, 4, 0, 2)
	var buf bytes.Buffer
	if err := WriteHIA(&buf, p); err != nil {
		t.Fatal(err)
	}
	originX, originY, cellSize, minZ, maxZ, cols, rows, cells, err := ReadHIA(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if originX != -1 || originY != -1 || cellSize != 0.5 || minZ != 0 || maxZ != 2 {
		t.Errorf("header mismatch: origin=(%v,%v) cellSize=%v z=[%v,%v]", originX, originY, cellSize, minZ, maxZ)
	}
	if cols != 4 || rows != 4 {
		t.Errorf("grid size = %dx%d, want 4x4", cols, rows)
	}
	if len(cells) != cols*rows {
		t.Errorf("got %d cells, want %d", len(cells), cols*rows)
	}
}
