package store

import (
	"io"
	"os"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/elturner/carve/internal/carveerr"
	"github.com/elturner/carve/internal/lebytes"
	"github.com/elturner/carve/internal/trajectory"
)

// noisypathMagic identifies a noisypath pose-stream file (spec §6
// "Noisypath/MAD").
var noisypathMagic = [8]byte{'n', 'o', 'i', 's', 'y', '0', '1', 0}

// Zupt is one zero-velocity-update interval: the localization process
// that produced the poses a NoisypathWriter exports considered the
// platform stationary between Start and End.
type Zupt struct {
	Start, End float64
}

// NoisypathPose is one exported pose record: a timestamp, a position
// mean and covariance, and an orientation mean (roll/pitch/yaw) and
// covariance. This is the format generate_noisypath's mad2noisy
// conversion writes, generalized here to round-trip any
// trajectory.Sample rather than only ones derived from a MAD file.
type NoisypathPose struct {
	Time        float64
	Position    r3.Vec
	PositionCov *mat.SymDense // 3x3
	Roll        float64
	Pitch       float64
	Yaw         float64
	RotationCov *mat.SymDense // 3x3
}

// noisypathRecordSize is one NoisypathPose: timestamp + position mean +
// position cov + rpy mean + rotation cov.
const noisypathRecordSize = lebytes.Float64Size + lebytes.Vec3Size + 72 + lebytes.Vec3Size + 72

// NoisypathWriter appends pose records after a header recording the
// platform's zero-velocity-update intervals (spec §6).
type NoisypathWriter struct {
	f *os.File
}

// CreateNoisypath creates path, writing the magic header, the zupt
// count, and every zupt interval.
func CreateNoisypath(path string, zupts []Zupt) (*NoisypathWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &carveerr.IoError{Path: path, Err: err}
	}
	buf := append([]byte(nil), noisypathMagic[:]...)
	buf = lebytes.PutFloat64(buf, float64(len(zupts)))
	for _, z := range zupts {
		buf = lebytes.PutFloat64(buf, z.Start)
		buf = lebytes.PutFloat64(buf, z.End)
	}
	if err := lebytes.WriteAll(f, buf); err != nil {
		f.Close()
		return nil, &carveerr.IoError{Path: path, Err: err}
	}
	return &NoisypathWriter{f: f}, nil
}

// Append writes one pose record.
func (w *NoisypathWriter) Append(p NoisypathPose) error {
	buf := make([]byte, 0, noisypathRecordSize)
	buf = lebytes.PutFloat64(buf, p.Time)
	buf = lebytes.PutVec3(buf, p.Position)
	buf = lebytes.PutSym3(buf, p.PositionCov)
	buf = lebytes.PutVec3(buf, r3.Vec{X: p.Roll, Y: p.Pitch, Z: p.Yaw})
	buf = lebytes.PutSym3(buf, p.RotationCov)
	if err := lebytes.WriteAll(w.f, buf); err != nil {
		return &carveerr.IoError{Path: w.f.Name(), Err: err}
	}
	return nil
}

// Close closes the underlying file.
func (w *NoisypathWriter) Close() error {
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	if err != nil {
		return &carveerr.IoError{Path: "noisypath file", Err: err}
	}
	return nil
}

// ReadNoisypath reads a noisypath file's zupt list and pose records.
func ReadNoisypath(path string) (zupts []Zupt, poses []NoisypathPose, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &carveerr.IoError{Path: path, Err: err}
	}
	defer f.Close()

	header := make([]byte, len(noisypathMagic)+lebytes.Float64Size)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, nil, &carveerr.BadFormat{Path: path, Reason: "truncated header"}
	}
	for i := range noisypathMagic {
		if header[i] != noisypathMagic[i] {
			return nil, nil, &carveerr.BadFormat{Path: path, Reason: "bad noisypath magic"}
		}
	}
	count, _ := lebytes.GetFloat64(header[len(noisypathMagic):])
	n := int(count)

	zuptBuf := make([]byte, n*2*lebytes.Float64Size)
	if _, err := io.ReadFull(f, zuptBuf); err != nil {
		return nil, nil, &carveerr.BadFormat{Path: path, Reason: "truncated zupt list"}
	}
	zupts = make([]Zupt, n)
	rest := zuptBuf
	for i := 0; i < n; i++ {
		zupts[i].Start, rest = lebytes.GetFloat64(rest)
		zupts[i].End, rest = lebytes.GetFloat64(rest)
	}

	record := make([]byte, noisypathRecordSize)
	for {
		_, err := io.ReadFull(f, record)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &carveerr.BadFormat{Path: path, Reason: "truncated pose record"}
		}
		var p NoisypathPose
		rest := record
		p.Time, rest = lebytes.GetFloat64(rest)
		p.Position, rest = lebytes.GetVec3(rest)
		p.PositionCov, rest = lebytes.GetSym3(rest)
		var rpy r3.Vec
		rpy, rest = lebytes.GetVec3(rest)
		p.Roll, p.Pitch, p.Yaw = rpy.X, rpy.Y, rpy.Z
		p.RotationCov, _ = lebytes.GetSym3(rest)
		poses = append(poses, p)
	}
	return zupts, poses, nil
}

// FromSample converts a trajectory.Sample to the pose record a
// noisypath export writes, matching generate_noisypath's mad2noisy
// conversion (rotation mean stored as roll/pitch/yaw, not a quaternion).
func FromSample(s trajectory.Sample) NoisypathPose {
	roll, pitch, yaw := s.Orientation.ToEulerRPY()
	return NoisypathPose{
		Time:        s.Time,
		Position:    s.Position,
		PositionCov: s.PositionCov,
		Roll:        roll,
		Pitch:       pitch,
		Yaw:         yaw,
		RotationCov: mat.NewSymDense(3, nil),
	}
}
