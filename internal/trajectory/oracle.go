// Package trajectory implements the trajectory oracle of spec §4.1: given
// a timestamp and sensor name, it returns the pose mean and covariance of
// that sensor in world coordinates.
package trajectory

import (
	"sort"

	"github.com/elturner/carve/internal/carveerr"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Sample is one recorded trajectory pose: timestamp, position mean and
// covariance, orientation, and angular velocity (spec §3, "Trajectory
// sample"). Samples are immutable once loaded into an Oracle.
type Sample struct {
	Time           float64
	Position       r3.Vec
	PositionCov    *mat.SymDense // 3x3
	Orientation    Rotation
	AngularVel     r3.Vec
}

// Pose is the oracle's answer for one (timestamp, sensor) query.
type Pose struct {
	Position    r3.Vec
	Orientation Rotation
	Cov6        *mat.SymDense // 6x6 joint position/orientation-error covariance
	AngularVel  r3.Vec
}

// Oracle answers pose queries for named sensors. It is pure and
// goroutine-safe: all state is set once in NewOracle and never mutated
// afterward (spec §4.1).
type Oracle struct {
	bySensor map[string][]Sample
}

// NewOracle builds an Oracle from a set of per-sensor sample streams. Each
// slice is sorted by time; the caller need not pre-sort.
func NewOracle(samples map[string][]Sample) *Oracle {
	o := &Oracle{bySensor: make(map[string][]Sample, len(samples))}
	for sensor, s := range samples {
		cp := make([]Sample, len(s))
		copy(cp, s)
		sort.Slice(cp, func(i, j int) bool { return cp[i].Time < cp[j].Time })
		o.bySensor[sensor] = cp
	}
	return o
}

// PoseAt returns the interpolated pose of sensor at time t: linear in
// translation and in the flattened 6x6 covariance, SLERP in orientation
// (spec §4.1). Returns carveerr.TimestampOutOfRange if t falls outside
// the sensor's covered interval, or carveerr.InvalidInput if the sensor
// is unknown.
func (o *Oracle) PoseAt(t float64, sensor string) (Pose, error) {
	samples, ok := o.bySensor[sensor]
	if !ok || len(samples) == 0 {
		return Pose{}, &carveerr.InvalidInput{Reason: "unknown sensor: " + sensor}
	}

	first, last := samples[0], samples[len(samples)-1]
	if t < first.Time || t > last.Time {
		return Pose{}, &carveerr.TimestampOutOfRange{
			Sensor: sensor, Time: t, Min: first.Time, Max: last.Time,
		}
	}

	// Binary search for the bracketing pair.
	i := sort.Search(len(samples), func(i int) bool { return samples[i].Time >= t })
	if i == 0 {
		return sampleToPose(samples[0]), nil
	}
	if samples[i].Time == t {
		return sampleToPose(samples[i]), nil
	}
	a, b := samples[i-1], samples[i]
	span := b.Time - a.Time
	var frac float64
	if span > 0 {
		frac = (t - a.Time) / span
	}

	pos := r3.Add(r3.Scale(1-frac, a.Position), r3.Scale(frac, b.Position))
	orient := Slerp(a.Orientation, b.Orientation, frac)
	angVel := r3.Add(r3.Scale(1-frac, a.AngularVel), r3.Scale(frac, b.AngularVel))
	cov6 := lerpCov6(a, b, frac)

	return Pose{Position: pos, Orientation: orient, Cov6: cov6, AngularVel: angVel}, nil
}

func sampleToPose(s Sample) Pose {
	return Pose{
		Position:    s.Position,
		Orientation: s.Orientation,
		Cov6:        expandTo6(s.PositionCov),
		AngularVel:  s.AngularVel,
	}
}

// lerpCov6 linearly interpolates the 6x6 joint covariance. Samples only
// carry a 3x3 position covariance (spec §3), so only the position block
// is ever non-zero; the orientation-error block and the cross terms are
// always zero (spec §4.1: "covariance is linearly interpolated in its
// 6x6 form").
func lerpCov6(a, b Sample, frac float64) *mat.SymDense {
	ca := expandTo6(a.PositionCov)
	cb := expandTo6(b.PositionCov)
	out := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		for j := i; j < 6; j++ {
			out.SetSym(i, j, (1-frac)*ca.At(i, j)+frac*cb.At(i, j))
		}
	}
	return out
}

func expandTo6(pos3 *mat.SymDense) *mat.SymDense {
	out := mat.NewSymDense(6, nil)
	if pos3 == nil {
		return out
	}
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			out.SetSym(i, j, pos3.At(i, j))
		}
	}
	return out
}
