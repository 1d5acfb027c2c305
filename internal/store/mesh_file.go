package store

import (
	"bufio"
	"fmt"
	"io"

	"github.com/elturner/carve/internal/carveerr"
	"github.com/elturner/carve/internal/mesh"
)

// WriteMeshFile writes m in a minimal OBJ-adjacent ASCII format: one "v
// x y z" line per vertex, one "f i1 i2 i3..." line per polygon (1-based
// indices, as OBJ requires), matching spec §6's "implementation-defined
// but OBJ-adjacent" mesh format.
func WriteMeshFile(w io.Writer, m *mesh.Mesh) error {
	bw := bufio.NewWriter(w)
	for _, v := range m.Vertices {
		if _, err := fmt.Fprintf(bw, "v %g %g %g\n", v.X, v.Y, v.Z); err != nil {
			return &carveerr.IoError{Path: "mesh", Err: err}
		}
	}
	for _, poly := range m.Polygons {
		if _, err := bw.WriteString("f"); err != nil {
			return &carveerr.IoError{Path: "mesh", Err: err}
		}
		for _, vi := range poly {
			if _, err := fmt.Fprintf(bw, " %d", vi+1); err != nil {
				return &carveerr.IoError{Path: "mesh", Err: err}
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return &carveerr.IoError{Path: "mesh", Err: err}
		}
	}
	if err := bw.Flush(); err != nil {
		return &carveerr.IoError{Path: "mesh", Err: err}
	}
	return nil
}
