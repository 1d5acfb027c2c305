package store

import (
	"encoding/binary"
	"io"

	"github.com/elturner/carve/internal/carveerr"
	"github.com/elturner/carve/internal/lebytes"
	"github.com/elturner/carve/internal/shapes"
)

// hiaMagic identifies the HIA (top-down histogram) format (spec §6,
// supplemented from original_source/'s hia_analyzer / octhist_2d).
var hiaMagic = [3]byte{'H', 'I', 'A'}

// WriteHIA writes p's accumulated grid as a fixed header (magic, origin,
// cell size, z-range, column/row counts) followed by one little-endian
// float64 cell probability per grid cell, row-major.
func WriteHIA(w io.Writer, p *shapes.HistogramProjector) error {
	header := make([]byte, 0, 3+4+8*6)
	header = append(header, hiaMagic[:]...)
	header = lebytes.PutFloat64(header, p.OriginX)
	header = lebytes.PutFloat64(header, p.OriginY)
	header = lebytes.PutFloat64(header, p.CellSize)
	header = lebytes.PutFloat64(header, p.MinZ)
	header = lebytes.PutFloat64(header, p.MaxZ)
	var colsBuf, rowsBuf [4]byte
	binary.LittleEndian.PutUint32(colsBuf[:], uint32(p.Cols))
	binary.LittleEndian.PutUint32(rowsBuf[:], uint32(p.Rows))
	header = append(header, colsBuf[:]...)
	header = append(header, rowsBuf[:]...)
	if err := lebytes.WriteAll(w, header); err != nil {
		return &carveerr.IoError{Path: "HIA", Err: err}
	}

	cells := make([]byte, 0, 8*p.Cols*p.Rows)
	for row := 0; row < p.Rows; row++ {
		for col := 0; col < p.Cols; col++ {
			cells = lebytes.PutFloat64(cells, p.CellProbability(col, row))
		}
	}
	if err := lebytes.WriteAll(w, cells); err != nil {
		return &carveerr.IoError{Path: "HIA", Err: err}
	}
	return nil
}

// ReadHIA parses a WriteHIA stream back into origin/cell-size/extent
// metadata and the row-major probability grid.
func ReadHIA(r io.Reader) (originX, originY, cellSize, minZ, maxZ float64, cols, rows int, cells []float64, err error) {
	header := make([]byte, 3+8*5+8)
	if _, ierr := io.ReadFull(r, header); ierr != nil {
		return 0, 0, 0, 0, 0, 0, 0, nil, &carveerr.BadFormat{Reason: "truncated HIA header"}
	}
	if header[0] != hiaMagic[0] || header[1] != hiaMagic[1] || header[2] != hiaMagic[2] {
		return 0, 0, 0, 0, 0, 0, 0, nil, &carveerr.BadFormat{Reason: "bad HIA magic"}
	}
	buf := header[3:]
	originX, buf = lebytes.GetFloat64(buf)
	originY, buf = lebytes.GetFloat64(buf)
	cellSize, buf = lebytes.GetFloat64(buf)
	minZ, buf = lebytes.GetFloat64(buf)
	maxZ, buf = lebytes.GetFloat64(buf)
	cols = int(binary.LittleEndian.Uint32(buf[:4]))
	rows = int(binary.LittleEndian.Uint32(buf[4:8]))

	cellBytes := make([]byte, 8*cols*rows)
	if _, ierr := io.ReadFull(r, cellBytes); ierr != nil {
		return 0, 0, 0, 0, 0, 0, 0, nil, &carveerr.BadFormat{Reason: "truncated HIA cell grid"}
	}
	cells = make([]float64, cols*rows)
	for i := range cells {
		cells[i], cellBytes = lebytes.GetFloat64(cellBytes)
	}
	return originX, originY, cellSize, minZ, maxZ, cols, rows, cells, nil
}
