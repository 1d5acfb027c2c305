package carve

import (
	"context"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/elturner/carve/internal/carveerr"
	"github.com/elturner/carve/internal/octree"
	"github.com/elturner/carve/internal/scanmodel"
	"github.com/elturner/carve/internal/trajectory"
)

type fakeTrajectorySource struct{ oracle *trajectory.Oracle }

func (f fakeTrajectorySource) Oracle() (*trajectory.Oracle, error) { return f.oracle, nil }

func newTestOracle() *trajectory.Oracle {
	cov := mat.NewSymDense(3, nil)
	samples := []trajectory.Sample{
		{Time: 0, Position: r3.Vec{}, PositionCov: cov, Orientation: trajectory.IdentityRotation},
		{Time: 1, Position: r3.Vec{X: 1}, PositionCov: cov, Orientation: trajectory.IdentityRotation},
		{Time: 2, Position: r3.Vec{X: 2}, PositionCov: cov, Orientation: trajectory.IdentityRotation},
	}
	return trajectory.NewOracle(map[string][]trajectory.Sample{"lidar0": samples})
}

type fakeScanSource struct {
	sensor scanmodel.SensorSetup
	frames []Frame
	i      int
}

func (s *fakeScanSource) Sensor() scanmodel.SensorSetup { return s.sensor }

func (s *fakeScanSource) Next() (Frame, bool, error) {
	if s.i >= len(s.frames) {
		return Frame{}, false, nil
	}
	f := s.frames[s.i]
	s.i++
	return f, true, nil
}

func testSensorSetup() scanmodel.SensorSetup {
	return scanmodel.NewSensorSetup(scanmodel.SensorDescriptor{
		Name:        "lidar0",
		ClockStddev: 0.001,
		Noise: scanmodel.IntrinsicNoise{
			StddevBase: 0.01,
			Width:      func(float64) float64 { return 0.02 },
			MaxRange:   50,
		},
	})
}

func testFrame(t float64, z float64) Frame {
	return Frame{
		Time: t,
		Points: []scanmodel.NoisyPoint{
			{Position: r3.Vec{X: -0.1, Z: z}, Stddev: 0.01, Width: 0.02},
			{Position: r3.Vec{Z: z}, Stddev: 0.01, Width: 0.02},
			{Position: r3.Vec{X: 0.1, Z: z}, Stddev: 0.01, Width: 0.02},
		},
	}
}

func TestCarverRunInsertsWedgesIntoTree(t *testing.T) {
	opts := DefaultRunOptions()
	opts.RootHalfwidth = 8
	opts.MaxDepth = 3
	c, err := NewCarver(opts)
	if err != nil {
		t.Fatal(err)
	}

	src := &fakeScanSource{
		sensor: testSensorSetup(),
		frames: []Frame{testFrame(0, 2), testFrame(1, 2)},
	}

	if err := c.Run(context.Background(), fakeTrajectorySource{newTestOracle()}, []ScanSource{src}); err != nil {
		t.Fatal(err)
	}

	carved := 0
	c.Tree.Walk(func(center r3.Vec, hw float64, d *octree.LeafData) {
		if d != nil {
			carved++
		}
	})
	if carved == 0 {
		t.Fatal("expected at least one carved leaf after Run")
	}
}

func TestExitCodeForMapsKnownKinds(t *testing.T) {
	if got := ExitCodeFor(nil); got != ExitSuccess {
		t.Errorf("ExitCodeFor(nil) = %v, want ExitSuccess", got)
	}
	cases := []struct {
		err  error
		want ExitCode
	}{
		{&carveerr.InvalidInput{Reason: "x"}, ExitInputLoad},
		{&carveerr.TimestampOutOfRange{Sensor: "lidar0"}, ExitInputLoad},
		{&carveerr.BadFormat{Reason: "x"}, ExitInputLoad},
		{&carveerr.IoError{Path: "x"}, ExitOutputWrite},
		{&carveerr.InvalidPoint{Reason: "x"}, ExitProcessing},
		{&carveerr.InconsistentTree{Reason: "x"}, ExitProcessing},
		{&carveerr.Cancelled{}, ExitProcessing},
	}
	for _, tc := range cases {
		if got := ExitCodeFor(tc.err); got != tc.want {
			t.Errorf("ExitCodeFor(%T) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
