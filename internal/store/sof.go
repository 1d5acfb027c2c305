package store

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/elturner/carve/internal/carveerr"
	"github.com/elturner/carve/internal/octree"
	"gonum.org/v1/gonum/spatial/r3"
)

// SOF node tags (spec §6 "Signed-octree formats"). octree.Tree's own
// child index already uses the fixed (x,y,z) bit layout the format
// requires (bit2=x, bit1=y, bit0=z), so WalkStructured's child order
// needs no reordering to match SOF's (0,0,0)...(1,1,1) sequence.
const (
	sofTagInternal byte = 0
	sofTagLeaf     byte = 1
	sofTagCorners  byte = 2
)

// WriteSOF serializes t into the SOF interop format: a u32 side = 2^depth
// header followed by the node stream. Every tree leaf is written as a
// tag-1 inside/outside byte; the tag-2 per-corner-sign encoding is never
// emitted by this writer (it exists in the format for producers whose
// leaves don't already carry a single aggregated boolean) but is still
// understood on read.
func WriteSOF(w io.Writer, t *octree.Tree) error {
	side := uint32(1) << uint32(t.MaxDepth())
	var sideBuf [4]byte
	binary.LittleEndian.PutUint32(sideBuf[:], side)
	if _, err := w.Write(sideBuf[:]); err != nil {
		return &carveerr.IoError{Path: "SOF", Err: err}
	}

	var writeErr error
	t.WalkStructured(func(isLeaf bool, c r3.Vec, hw float64, d *octree.LeafData) {
		if writeErr != nil {
			return
		}
		if !isLeaf {
			if _, err := w.Write([]byte{sofTagInternal}); err != nil {
				writeErr = &carveerr.IoError{Path: "SOF", Err: err}
			}
			return
		}
		inside := byte(0)
		if d != nil && d.Interior() {
			inside = 1
		}
		if _, err := w.Write([]byte{sofTagLeaf, inside}); err != nil {
			writeErr = &carveerr.IoError{Path: "SOF", Err: err}
		}
	})
	return writeErr
}

// ReadSOF parses an SOF stream into a flat list of leaf inside/outside
// flags in depth-first, fixed-child-order traversal, along with the
// declared side length. It does not reconstruct node geometry (spec
// only requires round-tripping interior/exterior labels at every leaf,
// §8 "SOF round-trip").
func ReadSOF(r io.Reader) (side uint32, leaves []bool, err error) {
	var sideBuf [4]byte
	if _, err := io.ReadFull(r, sideBuf[:]); err != nil {
		return 0, nil, &carveerr.BadFormat{Reason: "truncated SOF header"}
	}
	side = binary.LittleEndian.Uint32(sideBuf[:])

	var readNode func() error
	readNode = func() error {
		var tagBuf [1]byte
		if _, err := io.ReadFull(r, tagBuf[:]); err != nil {
			return &carveerr.BadFormat{Reason: "truncated SOF node stream"}
		}
		switch tagBuf[0] {
		case sofTagInternal:
			for i := 0; i < 8; i++ {
				if err := readNode(); err != nil {
					return err
				}
			}
			return nil
		case sofTagLeaf:
			var v [1]byte
			if _, err := io.ReadFull(r, v[:]); err != nil {
				return &carveerr.BadFormat{Reason: "truncated SOF leaf"}
			}
			leaves = append(leaves, v[0] != 0)
			return nil
		case sofTagCorners:
			var v [1]byte
			if _, err := io.ReadFull(r, v[:]); err != nil {
				return &carveerr.BadFormat{Reason: "truncated SOF corner byte"}
			}
			set := 0
			for b := 0; b < 8; b++ {
				if v[0]&(1<<uint(b)) != 0 {
					set++
				}
			}
			leaves = append(leaves, set >= 4)
			return nil
		default:
			return &carveerr.BadFormat{Reason: "unrecognized SOF node tag"}
		}
	}

	if err := readNode(); err != nil {
		return 0, nil, err
	}
	return side, leaves, nil
}

// sogMagic is the fixed 16-byte SOG format identifier.
var sogMagic = [16]byte{'S', 'O', 'G', '.', 'F', 'o', 'r', 'm', 'a', 't', ' ', '1', '.', '0', 0, 0}

// WriteSOG writes t in the SOG interop format: the 16-byte magic, the
// lower-left-near corner and side length (in voxel units) padded to
// 128 bytes, the i32 dimension, then the same node stream as SOF with
// every leaf additionally followed by a 3×f32 vertex position (the
// isosurface-crossing point, approximated here as the leaf center since
// true isosurface placement is the surface extractor's job, not the
// octree format's).
func WriteSOG(w io.Writer, t *octree.Tree, voxelSide float32) error {
	bounds := t.Bounds()
	header := make([]byte, 0, 132)
	header = append(header, sogMagic[:]...)
	header = appendFloat32(header, float32(bounds.Center.X-bounds.Halfwidth))
	header = appendFloat32(header, float32(bounds.Center.Y-bounds.Halfwidth))
	header = appendFloat32(header, float32(bounds.Center.Z-bounds.Halfwidth))
	header = appendFloat32(header, voxelSide)
	for len(header) < 128 {
		header = append(header, 0)
	}
	dim := int32(1) << int32(t.MaxDepth())
	var dimBuf [4]byte
	binary.LittleEndian.PutUint32(dimBuf[:], uint32(dim))
	header = append(header, dimBuf[:]...)

	if _, err := w.Write(header); err != nil {
		return &carveerr.IoError{Path: "SOG", Err: err}
	}

	var writeErr error
	t.WalkStructured(func(isLeaf bool, c r3.Vec, hw float64, d *octree.LeafData) {
		if writeErr != nil {
			return
		}
		if !isLeaf {
			if _, err := w.Write([]byte{sofTagInternal}); err != nil {
				writeErr = &carveerr.IoError{Path: "SOG", Err: err}
			}
			return
		}
		inside := byte(0)
		if d != nil && d.Interior() {
			inside = 1
		}
		rec := []byte{sofTagLeaf, inside}
		rec = appendFloat32(rec, float32(c.X))
		rec = appendFloat32(rec, float32(c.Y))
		rec = appendFloat32(rec, float32(c.Z))
		if _, err := w.Write(rec); err != nil {
			writeErr = &carveerr.IoError{Path: "SOG", Err: err}
		}
	})
	return writeErr
}

func appendFloat32(buf []byte, v float32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
	return append(buf, tmp[:]...)
}
