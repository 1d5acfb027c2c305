// Package chunk implements the out-of-core chunker of spec §4.9: it
// partitions the carving volume into fixed-depth cubes, records which
// wedges touch which chunk, and writes the chunklist file that indexes
// them for later parallel refinement passes.
package chunk

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhconnelly/rtreego"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/elturner/carve/internal/carveerr"
	"github.com/elturner/carve/internal/octree"
)

// Level is a per-floor boundary (supplemented from original_source/'s
// building_levels_io): attached to a Chunker's partition metadata so the
// region grower can seed per-floor flood fills without re-deriving floor
// extents from scratch. It carries only the floor's Z-extent and a label,
// not a floor-segmentation algorithm — original_source leaves that to a
// separate executable.
type Level struct {
	MinZ, MaxZ float64
	Label      string
}

// Chunk is one fixed-depth cube of the partition, keyed by a random UUID
// so chunk files can be created and merged without a central counter.
type Chunk struct {
	ID     uuid.UUID
	Bounds octree.Bounds

	wedgeIndices []int
}

// rtreeBounds returns c's cube as the rtreego.Rect that rtreeEntry
// reports to the chunker's AABB index
// (teacher's pkg/s57/index.go ChartIndex pattern, generalized from 2D
// geographic rectangles to 3D cubes).
func (c *Chunk) rtreeBounds() rtreego.Rect {
	lo := rtreego.Point{
		c.Bounds.Center.X - c.Bounds.Halfwidth,
		c.Bounds.Center.Y - c.Bounds.Halfwidth,
		c.Bounds.Center.Z - c.Bounds.Halfwidth,
	}
	side := c.Bounds.Halfwidth * 2
	rect, _ := rtreego.NewRect(lo, []float64{side, side, side})
	return rect
}

// rtreeEntry is the rtreego.Spatial adapter stored in the tree; rtreego
// requires Bounds() with no receiver-identity requirements, so a thin
// wrapper keeps *Chunk itself free of an rtreego import leak into its
// exported surface.
type rtreeEntry struct{ c *Chunk }

func (e rtreeEntry) Bounds() rtreego.Rect { return e.c.rtreeBounds() }

// Chunker partitions a root volume into a grid of chunks at a fixed
// depth below it and indexes their bounds in an R-tree for O(log N)
// "which chunks overlap this AABB" queries (spec §4.9).
type Chunker struct {
	root  octree.Bounds
	depth int

	chunks []*Chunk
	byID   map[uuid.UUID]*Chunk
	rtree  *rtreego.Rtree

	// Levels is the Chunker's per-floor metadata, set by the caller via
	// SetLevels before Close; it is written nowhere in the chunklist
	// format (spec §6 names no field for it) but is available to callers
	// building a region grower's per-floor seed set from the same
	// Chunker a run already constructed.
	Levels []Level
}

// SetLevels attaches per-floor boundary metadata to c.
func (c *Chunker) SetLevels(levels []Level) { c.Levels = levels }

// Partition builds a Chunker over root, subdivided depth levels deep
// (so each chunk has halfwidth root.Halfwidth / 2^depth).
func Partition(root octree.Bounds, depth int) *Chunker {
	c := &Chunker{
		root:  root,
		depth: depth,
		byID:  make(map[uuid.UUID]*Chunk),
		rtree: rtreego.NewTree(3, 25, 50),
	}
	n := 1 << depth
	chunkHW := root.Halfwidth / float64(n)
	lo := r3.Sub(root.Center, r3.Vec{X: root.Halfwidth, Y: root.Halfwidth, Z: root.Halfwidth})
	for ix := 0; ix < n; ix++ {
		for iy := 0; iy < n; iy++ {
			for iz := 0; iz < n; iz++ {
				center := r3.Add(lo, r3.Vec{
					X: chunkHW * (2*float64(ix) + 1),
					Y: chunkHW * (2*float64(iy) + 1),
					Z: chunkHW * (2*float64(iz) + 1),
				})
				ch := &Chunk{ID: uuid.New(), Bounds: octree.Bounds{Center: center, Halfwidth: chunkHW}}
				c.chunks = append(c.chunks, ch)
				c.byID[ch.ID] = ch
				c.rtree.Insert(rtreeEntry{ch})
			}
		}
	}
	return c
}

// Export records that wedgeIndex touches every chunk the exporter
// visited (spec §4.9: ChunkExporter drives the bucketing traversal
// against a read-only tree over c's partition; this method consumes its
// recorded visits).
func (c *Chunker) Export(visited []octree.Bounds, wedgeIndex int) {
	for _, b := range visited {
		if ch := c.chunkAt(b.Center); ch != nil {
			ch.wedgeIndices = append(ch.wedgeIndices, wedgeIndex)
		}
	}
}

// chunkAt returns the chunk containing p, or nil if p falls outside the
// partitioned root volume.
func (c *Chunker) chunkAt(p r3.Vec) *Chunk {
	if !c.root.Contains(p) {
		return nil
	}
	point := rtreego.Point{p.X, p.Y, p.Z}
	rect, _ := rtreego.NewRect(point, []float64{1e-9, 1e-9, 1e-9})
	for _, s := range c.rtree.SearchIntersect(rect) {
		entry := s.(rtreeEntry)
		if entry.c.Bounds.Contains(p) {
			return entry.c
		}
	}
	return nil
}

// Overlapping returns every chunk whose AABB overlaps the given bounds,
// via the R-tree index rather than a linear scan (spec §4.9).
func (c *Chunker) Overlapping(b octree.Bounds) []*Chunk {
	lo := rtreego.Point{b.Center.X - b.Halfwidth, b.Center.Y - b.Halfwidth, b.Center.Z - b.Halfwidth}
	side := b.Halfwidth * 2
	rect, _ := rtreego.NewRect(lo, []float64{side, side, side})
	var out []*Chunk
	for _, s := range c.rtree.SearchIntersect(rect) {
		out = append(out, s.(rtreeEntry).c)
	}
	return out
}

// Chunks returns every chunk in the partition, in creation order.
func (c *Chunker) Chunks() []*Chunk { return c.chunks }

// WedgeIndices returns the wedge indices recorded against ch.
func (ch *Chunk) WedgeIndices() []int { return ch.wedgeIndices }

// chunkFileMagic identifies a per-chunk binary file (spec §6: "chunk
// files ... binary, keyed on point/wedge indices").
var chunkFileMagic = [8]byte{'c', 'h', 'u', 'n', 'k', '0', '1', 0}

// writeChunkFile writes ch's recorded wedge indices to
// <chunkDir>/<uuid>.chunk.
func writeChunkFile(chunkDir string, ch *Chunk) error {
	path := filepath.Join(chunkDir, ch.ID.String()+".chunk")
	f, err := os.Create(path)
	if err != nil {
		return &carveerr.IoError{Path: path, Err: err}
	}
	defer f.Close()

	buf := make([]byte, 0, 8+4+4*len(ch.wedgeIndices))
	buf = append(buf, chunkFileMagic[:]...)
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(ch.wedgeIndices)))
	buf = append(buf, countBuf[:]...)
	for _, idx := range ch.wedgeIndices {
		var idxBuf [4]byte
		binary.LittleEndian.PutUint32(idxBuf[:], uint32(idx))
		buf = append(buf, idxBuf[:]...)
	}
	if _, err := f.Write(buf); err != nil {
		return &carveerr.IoError{Path: path, Err: err}
	}
	return nil
}

// Close flushes every chunk's wedge-index file under chunkDir and writes
// the chunklist file at chunklistPath: a text header ("chunklist" magic,
// center, halfwidth, num_chunks, chunk_dir, sensor list) followed by one
// chunk UUID per line alongside its bounding box (spec §6).
func (c *Chunker) Close(chunklistPath, chunkDir string, sensors []string) error {
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return &carveerr.IoError{Path: chunkDir, Err: err}
	}
	for _, ch := range c.chunks {
		if err := writeChunkFile(chunkDir, ch); err != nil {
			return err
		}
	}

	f, err := os.Create(chunklistPath)
	if err != nil {
		return &carveerr.IoError{Path: chunklistPath, Err: err}
	}
	defer f.Close()

	fmt.Fprintln(f, "chunklist")
	fmt.Fprintf(f, "%g %g %g\n", c.root.Center.X, c.root.Center.Y, c.root.Center.Z)
	fmt.Fprintf(f, "%g\n", c.root.Halfwidth)
	fmt.Fprintf(f, "%d\n", len(c.chunks))
	fmt.Fprintln(f, chunkDir)
	for i, s := range sensors {
		if i > 0 {
			fmt.Fprint(f, " ")
		}
		fmt.Fprint(f, s)
	}
	fmt.Fprintln(f)
	for _, ch := range c.chunks {
		fmt.Fprintf(f, "%s %g %g %g %g\n",
			ch.ID.String(), ch.Bounds.Center.X, ch.Bounds.Center.Y, ch.Bounds.Center.Z, ch.Bounds.Halfwidth)
	}
	return nil
}
