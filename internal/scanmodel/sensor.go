// Package scanmodel implements spec §4.2: composing pose, extrinsics,
// clock, and intrinsic noise into the two 3D Gaussians (sensor endpoint,
// hit endpoint) that feed a carve map.
package scanmodel

import (
	"math"

	"github.com/elturner/carve/internal/trajectory"
	"gonum.org/v1/gonum/spatial/r3"
)

// IntrinsicNoise parameters describe how a sensor's own noise grows with
// range (spec §3, "Sensor descriptor").
type IntrinsicNoise struct {
	Bias       float64
	StddevBase float64           // per-point stddev at zero range
	Width      func(r float64) float64 // beam width as a function of range
	MinRange   float64
	MaxRange   float64
}

// Stddev returns the intrinsic stddev at the given range.
func (n IntrinsicNoise) Stddev(r float64) float64 {
	return n.StddevBase + n.Bias*r
}

// SensorDescriptor is the immutable, per-sensor rig configuration (spec
// §3): name, rigid extrinsic transform to the rig body, clock stddev, and
// intrinsic noise model.
type SensorDescriptor struct {
	Name        string
	Extrinsics  Extrinsics
	ClockStddev float64
	Noise       IntrinsicNoise
}

// Extrinsics is the rigid transform from sensor frame to rig-body frame.
type Extrinsics struct {
	Translation r3.Vec
	Rotation    trajectory.Rotation
}

// ToBody applies these extrinsics to a sensor-frame point, returning it
// in rig-body coordinates.
func (e Extrinsics) ToBody(p r3.Vec) r3.Vec {
	return r3.Add(e.Rotation.RotateVec(p), e.Translation)
}

// SensorSetup binds a SensorDescriptor once; it is reused across every
// frame of that sensor's stream (spec §4.2 "Per-sensor setup").
type SensorSetup struct {
	Descriptor SensorDescriptor
}

// NewSensorSetup binds extrinsics and clock stddev for one sensor.
func NewSensorSetup(d SensorDescriptor) SensorSetup {
	return SensorSetup{Descriptor: d}
}

// finite reports whether x is a finite float (not NaN or Inf).
func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
