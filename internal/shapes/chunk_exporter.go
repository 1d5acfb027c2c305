package shapes

import (
	"github.com/elturner/carve/internal/octree"
	"gonum.org/v1/gonum/spatial/r3"
)

// ChunkExporter drives the bucketing traversal `internal/chunk` uses to
// discover which fixed-depth chunk cubes a wedge overlaps. It never
// mutates leaf data (spec §4.9): ApplyToLeaf only records the visited
// chunk's bounds for the caller to read back afterward.
type ChunkExporter struct {
	inner   *WedgeShape
	Visited []octree.Bounds
}

// NewChunkExporter wraps w's geometry for use against a chunk-bucketing
// tree whose depth is independent of the main carve tree's resolution.
func NewChunkExporter(w *WedgeShape) *ChunkExporter {
	return &ChunkExporter{inner: w}
}

func (c *ChunkExporter) NumVerts() int                        { return c.inner.NumVerts() }
func (c *ChunkExporter) Vertex(i int) r3.Vec                  { return c.inner.Vertex(i) }
func (c *ChunkExporter) Intersects(ctr r3.Vec, hw float64) bool { return c.inner.Intersects(ctr, hw) }

// ApplyToLeaf records the chunk cube and returns data unchanged.
func (c *ChunkExporter) ApplyToLeaf(ctr r3.Vec, hw float64, data *octree.LeafData) *octree.LeafData {
	c.Visited = append(c.Visited, octree.Bounds{Center: ctr, Halfwidth: hw})
	return data
}

// HistogramProjector accumulates carved leaves into a top-down 2D
// occupancy histogram (spec §6 HIA / supplemented `octhist_2d`): each
// leaf's footprint contributes its interior probability, weighted by
// footprint area, to the grid cells it overlaps. Read-only: ApplyToLeaf
// never changes leaf data.
type HistogramProjector struct {
	OriginX, OriginY float64
	CellSize         float64
	Cols, Rows        int
	MinZ, MaxZ       float64

	Sum    []float64 // len Cols*Rows, area-weighted probability sum
	Weight []float64 // len Cols*Rows, total area weight
}

// NewHistogramProjector builds a projector over a Cols x Rows grid of
// CellSize-sided cells anchored at (originX, originY), accumulating only
// leaves whose Z range overlaps [minZ, maxZ].
func NewHistogramProjector(originX, originY, cellSize float64, cols, rows int, minZ, maxZ float64) *HistogramProjector {
	return &HistogramProjector{
		OriginX: originX, OriginY: originY, CellSize: cellSize,
		Cols: cols, Rows: rows, MinZ: minZ, MaxZ: maxZ,
		Sum:    make([]float64, cols*rows),
		Weight: make([]float64, cols*rows),
	}
}

func (h *HistogramProjector) NumVerts() int { return 0 }
func (h *HistogramProjector) Vertex(i int) r3.Vec { return r3.Vec{} }

func (h *HistogramProjector) Intersects(c r3.Vec, hw float64) bool {
	if c.Z+hw < h.MinZ || c.Z-hw > h.MaxZ {
		return false
	}
	maxX := h.OriginX + float64(h.Cols)*h.CellSize
	maxY := h.OriginY + float64(h.Rows)*h.CellSize
	return c.X+hw >= h.OriginX && c.X-hw <= maxX && c.Y+hw >= h.OriginY && c.Y-hw <= maxY
}

// ApplyToLeaf accumulates data's interior probability, weighted by the
// leaf's footprint area, into every grid cell the leaf overlaps. Data is
// returned unchanged.
func (h *HistogramProjector) ApplyToLeaf(c r3.Vec, hw float64, data *octree.LeafData) *octree.LeafData {
	if data == nil {
		return data
	}
	area := (2 * hw) * (2 * hw)
	prob := data.Probability()

	col0 := h.colFor(c.X - hw)
	col1 := h.colFor(c.X + hw)
	row0 := h.rowFor(c.Y - hw)
	row1 := h.rowFor(c.Y + hw)
	for col := col0; col <= col1; col++ {
		if col < 0 || col >= h.Cols {
			continue
		}
		for row := row0; row <= row1; row++ {
			if row < 0 || row >= h.Rows {
				continue
			}
			idx := row*h.Cols + col
			h.Sum[idx] += area * prob
			h.Weight[idx] += area
		}
	}
	return data
}

func (h *HistogramProjector) colFor(x float64) int {
	return int((x - h.OriginX) / h.CellSize)
}
func (h *HistogramProjector) rowFor(y float64) int {
	return int((y - h.OriginY) / h.CellSize)
}

// CellProbability returns the area-weighted average probability in cell
// (col, row), or 0.5 if no leaf ever overlapped it.
func (h *HistogramProjector) CellProbability(col, row int) float64 {
	idx := row*h.Cols + col
	if h.Weight[idx] == 0 {
		return 0.5
	}
	return h.Sum[idx] / h.Weight[idx]
}
