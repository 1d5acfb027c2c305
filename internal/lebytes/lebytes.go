// Package lebytes centralizes the little-endian IEEE-754 byte layout
// shared by every binary format the carving pipeline reads or writes
// (wedge store, carve-map file, SOF, SOG, HIA) so the layout is defined
// exactly once, per spec §9 Design Notes ("Float serialization").
package lebytes

import (
	"encoding/binary"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Float64Size is the on-disk size of one float64 field.
const Float64Size = 8

// Vec3Size is the on-disk size of one r3.Vec (3 consecutive float64s).
const Vec3Size = 3 * Float64Size

// PutFloat64 appends the little-endian IEEE-754 encoding of v to buf.
func PutFloat64(buf []byte, v float64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}

// GetFloat64 decodes one little-endian IEEE-754 float64 from the front of
// buf, returning the value and the remaining bytes.
func GetFloat64(buf []byte) (float64, []byte) {
	bits := binary.LittleEndian.Uint64(buf[:8])
	return math.Float64frombits(bits), buf[8:]
}

// PutVec3 appends v's three components in x, y, z order.
func PutVec3(buf []byte, v r3.Vec) []byte {
	buf = PutFloat64(buf, v.X)
	buf = PutFloat64(buf, v.Y)
	buf = PutFloat64(buf, v.Z)
	return buf
}

// GetVec3 decodes one r3.Vec from the front of buf.
func GetVec3(buf []byte) (r3.Vec, []byte) {
	var v r3.Vec
	v.X, buf = GetFloat64(buf)
	v.Y, buf = GetFloat64(buf)
	v.Z, buf = GetFloat64(buf)
	return v, buf
}

// PutSym3 appends all 9 entries of a symmetric 3x3 covariance matrix in
// row-major order. This keeps every on-disk covariance at a fixed 72
// bytes (6 float64 upper triangle values would be 48B; the wedge-store
// record size in spec §6 assumes a full 3x3, i.e. 9 float64 = 72B, so we
// round-trip the full matrix instead of the compressed 6-entry form, to
// match WEDGE_SIZE exactly).
func PutSym3(buf []byte, cov *mat.SymDense) []byte {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			buf = PutFloat64(buf, cov.At(i, j))
		}
	}
	return buf
}

// GetSym3 decodes a full 3x3 matrix (9 float64 = 72 bytes) and returns it
// as a symmetric matrix, averaging any asymmetry introduced by float
// round-trip so the result is always a valid SymDense.
func GetSym3(buf []byte) (*mat.SymDense, []byte) {
	var vals [9]float64
	for i := range vals {
		vals[i], buf = GetFloat64(buf)
	}
	sym := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			a := vals[i*3+j]
			b := vals[j*3+i]
			sym.SetSym(i, j, (a+b)/2)
		}
	}
	return sym, buf
}

// WriteAll writes buf to w, returning any short-write error wrapped the
// same way for every caller.
func WriteAll(w io.Writer, buf []byte) error {
	n, err := w.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}
