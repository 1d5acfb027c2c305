// Package store implements the binary file formats of spec §6: the
// wedge store, the carve-map file, the SOF/SOG octree interop formats,
// the mesh file, HIA, and the Noisypath/MAD pose-stream formats. The
// float64, vector and covariance fields are built from the shared
// little-endian primitives in internal/lebytes (spec §9 Design Notes), the
// same way the teacher's internal/parser decodes ISO 8211 fields
// byte-by-byte; SOF and SOG encode their integers and float32 fields with
// encoding/binary directly.
package store

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/elturner/carve/internal/carve"
	"github.com/elturner/carve/internal/carveerr"
	"github.com/elturner/carve/internal/gaussian"
	"github.com/elturner/carve/internal/lebytes"
	"gonum.org/v1/gonum/spatial/r3"
)

// wedgeMagic is the 6-byte magic prefix ("wedge" + NUL) of both the
// wedge file and the carve-map file (spec §6).
var wedgeMagic = [6]byte{'w', 'e', 'd', 'g', 'e', 0}

const (
	// HeaderSize is the on-disk size of the wedge file header: 6-byte
	// magic + u64 wedge count (spec §6).
	HeaderSize = 14

	mapMeanSize   = lebytes.Vec3Size  // 24
	mapCovSize    = 9 * lebytes.Float64Size // 72
	mapRecordSize = 2 * (mapMeanSize + mapCovSize) // one carve map: sensor + hit

	// WedgeSize is the on-disk stride of one wedge record: 6 vertices
	// (24B each) plus 4 carve maps (mapRecordSize each) = 912 bytes.
	WedgeSize = 6*mapMeanSize + 4*mapRecordSize
)

// putMap appends one carve map's sensor and hit Gaussians.
func putMap(buf []byte, m *carve.Map) []byte {
	buf = lebytes.PutVec3(buf, m.Sensor.Mean)
	buf = lebytes.PutSym3(buf, m.Sensor.Cov)
	buf = lebytes.PutVec3(buf, m.Hit.Mean)
	buf = lebytes.PutSym3(buf, m.Hit.Cov)
	return buf
}

// getMap decodes one carve map, reconstructing it via carve.NewMap so
// its cached derived fields are valid.
func getMap(buf []byte) (*carve.Map, []byte) {
	var sensorMean, hitMean r3.Vec
	sensorMean, buf = lebytes.GetVec3(buf)
	sensorCov, rest := lebytes.GetSym3(buf)
	buf = rest
	hitMean, buf = lebytes.GetVec3(buf)
	hitCov, rest2 := lebytes.GetSym3(buf)
	buf = rest2
	m := carve.NewMap(
		gaussian.Gaussian3{Mean: sensorMean, Cov: sensorCov},
		gaussian.Gaussian3{Mean: hitMean, Cov: hitCov},
	)
	return m, buf
}

// encodeWedge serializes w into exactly WedgeSize bytes.
func encodeWedge(w *carve.Wedge) []byte {
	buf := make([]byte, 0, WedgeSize)
	for _, v := range w.Vertices {
		buf = lebytes.PutVec3(buf, v)
	}
	for _, m := range [4]*carve.Map{w.A1, w.A2, w.B1, w.B2} {
		buf = putMap(buf, m)
	}
	return buf
}

// decodeWedge deserializes exactly WedgeSize bytes into a wedge.
func decodeWedge(buf []byte) *carve.Wedge {
	w := &carve.Wedge{}
	for i := range w.Vertices {
		w.Vertices[i], buf = lebytes.GetVec3(buf)
	}
	w.A1, buf = getMap(buf)
	w.A2, buf = getMap(buf)
	w.B1, buf = getMap(buf)
	w.B2, buf = getMap(buf)
	return w
}

// WedgeWriter appends fixed-stride wedge records to a file and rewrites
// the header's wedge_count on every Close, so a crash leaves wedge_count
// equal to the last fully committed record (spec §5 crash-safety).
type WedgeWriter struct {
	f     *os.File
	count uint64
}

// CreateWedgeWriter creates (or truncates) path and writes a zeroed
// header, ready to append wedges.
func CreateWedgeWriter(path string) (*WedgeWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &carveerr.IoError{Path: path, Err: err}
	}
	w := &WedgeWriter{f: f}
	if err := w.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *WedgeWriter) writeHeader() error {
	buf := make([]byte, 0, HeaderSize)
	buf = append(buf, wedgeMagic[:]...)
	var countBytes [8]byte
	putUint64LE(countBytes[:], w.count)
	buf = append(buf, countBytes[:]...)
	if _, err := w.f.WriteAt(buf, 0); err != nil {
		return &carveerr.IoError{Path: w.f.Name(), Err: err}
	}
	return nil
}

// Append writes one wedge record and returns its index.
func (w *WedgeWriter) Append(wedge *carve.Wedge) (int, error) {
	buf := encodeWedge(wedge)
	if _, err := w.f.WriteAt(buf, int64(HeaderSize)+int64(w.count)*int64(WedgeSize)); err != nil {
		return 0, &carveerr.IoError{Path: w.f.Name(), Err: err}
	}
	idx := int(w.count)
	w.count++
	return idx, nil
}

// Count returns the number of wedges appended so far.
func (w *WedgeWriter) Count() int { return int(w.count) }

// Close rewrites the header with the final wedge count and closes the
// file. Safe to call multiple times.
func (w *WedgeWriter) Close() error {
	if w.f == nil {
		return nil
	}
	err := w.writeHeader()
	cerr := w.f.Close()
	w.f = nil
	if err != nil {
		return err
	}
	if cerr != nil {
		return &carveerr.IoError{Path: "wedge store", Err: cerr}
	}
	return nil
}

// WedgeReader provides random access to a wedge file by index, guarded
// by one mutex shared among all readers (spec §5, mirroring the
// teacher's single-mutex file-handle guard for its parser's file
// handles).
type WedgeReader struct {
	mu    sync.Mutex
	f     *os.File
	count uint64
}

// OpenWedgeReader opens path for random-access reads, validating the
// magic and the declared wedge count against the file size.
func OpenWedgeReader(path string) (*WedgeReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &carveerr.IoError{Path: path, Err: err}
	}
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		f.Close()
		return nil, &carveerr.BadFormat{Path: path, Reason: "truncated header"}
	}
	for i := 0; i < 6; i++ {
		if header[i] != wedgeMagic[i] {
			f.Close()
			return nil, &carveerr.BadFormat{Path: path, Reason: "bad magic"}
		}
	}
	count := getUint64LE(header[6:14])

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &carveerr.IoError{Path: path, Err: err}
	}
	wantSize := int64(HeaderSize) + int64(count)*int64(WedgeSize)
	if info.Size() < wantSize {
		f.Close()
		return nil, &carveerr.BadFormat{Path: path, Reason: "truncated record stream"}
	}

	return &WedgeReader{f: f, count: count}, nil
}

// Count returns the wedge_count recorded in the header at open time.
func (r *WedgeReader) Count() int { return int(r.count) }

// FetchAt reads and decodes the wedge at index idx.
func (r *WedgeReader) FetchAt(idx int) (*carve.Wedge, error) {
	if idx < 0 || uint64(idx) >= r.count {
		return nil, &carveerr.InvalidInput{Reason: fmt.Sprintf("wedge index %d out of range [0, %d)", idx, r.count)}
	}
	buf := make([]byte, WedgeSize)
	r.mu.Lock()
	_, err := r.f.ReadAt(buf, int64(HeaderSize)+int64(idx)*int64(WedgeSize))
	r.mu.Unlock()
	if err != nil {
		return nil, &carveerr.BadFormat{Path: r.f.Name(), Reason: "short read at index " + fmt.Sprint(idx)}
	}
	return decodeWedge(buf), nil
}

// Close closes the underlying file handle.
func (r *WedgeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	if err != nil {
		return &carveerr.IoError{Path: "wedge store", Err: err}
	}
	return nil
}

func putUint64LE(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

func getUint64LE(buf []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(buf[i]) << (8 * i)
	}
	return v
}
