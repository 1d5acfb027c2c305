package scanmodel

import (
	"math"

	"github.com/elturner/carve/internal/carveerr"
	"github.com/elturner/carve/internal/trajectory"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// FrameSetup holds everything computed once per frame: the
// maximum-likelihood sensor pose, its Euler decomposition, the 7x7 input
// covariance for sensor position, and the precomputed clock-error
// propagation rotation R_ts (spec §4.2, §3 "Scan-model state"). The
// 10x10 point-position covariance is built per point by BuildPoint.
type FrameSetup struct {
	sensor SensorSetup

	Pose trajectory.Pose

	// Euler angles (radians), extracted from Pose.Orientation.
	Roll, Pitch, Yaw float64

	// InputSensorCov is the 7x7 covariance over
	// (roll, pitch, yaw, ext_x, ext_y, ext_z, clock_stddev).
	InputSensorCov *mat.SymDense

	// RTs is R_ts = I + [w]x sin(|w|sigma_t) + [w]x^2 (1-cos(|w|sigma_t)),
	// the rotation that propagates clock-timing error into pose error.
	RTs *mat.Dense
}

// NewFrameSetup evaluates the trajectory oracle at t and precomputes the
// frame-specific quantities of spec §4.2. The roll/pitch/yaw block of
// the input covariance comes from the 6x6 position/orientation
// covariance the oracle returns for this (t, sensor) query; extCov3
// supplies the caller's 3x3 uncertainty estimate for the three extrinsic
// translation components (nil leaves that block zero), since the oracle
// itself only models the rig-body pose, not per-sensor mount
// uncertainty.
func NewFrameSetup(sensor SensorSetup, oracle *trajectory.Oracle, t float64, extCov3 *mat.SymDense) (*FrameSetup, error) {
	pose, err := oracle.PoseAt(t, sensor.Descriptor.Name)
	if err != nil {
		return nil, err
	}

	roll, pitch, yaw := eulerFromRotation(pose.Orientation)

	omega := pose.AngularVel
	sigmaT := sensor.Descriptor.ClockStddev
	rts := rTs(omega, sigmaT)

	input := mat.NewSymDense(7, nil)
	// roll/pitch/yaw block comes from the orientation-error 3x3 block
	// of the oracle's 6x6 covariance (rows/cols 3..5 by convention:
	// position 0..2, orientation-error 3..5).
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			input.SetSym(i, j, pose.Cov6.At(3+i, 3+j))
		}
	}
	if extCov3 != nil {
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				input.SetSym(3+i, 3+j, extCov3.At(i, j))
			}
		}
	}
	input.SetSym(6, 6, sigmaT*sigmaT)

	return &FrameSetup{
		sensor:         sensor,
		Pose:           pose,
		Roll:           roll,
		Pitch:          pitch,
		Yaw:            yaw,
		InputSensorCov: input,
		RTs:            rts,
	}, nil
}

// rTs implements R_ts = I + [w]x sin(|w| sigma_t) + [w]x^2 (1 - cos(|w| sigma_t)).
func rTs(omega r3.Vec, sigmaT float64) *mat.Dense {
	mag := r3.Norm(omega)
	identity := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		identity.Set(i, i, 1)
	}
	if mag == 0 || sigmaT == 0 {
		return identity
	}

	skew := skewMatrix(omega)
	var skew2 mat.Dense
	skew2.Mul(skew, skew)

	theta := mag * sigmaT
	sinTerm := math.Sin(theta)
	cosTerm := 1 - math.Cos(theta)

	var scaledSkew, scaledSkew2, out mat.Dense
	scaledSkew.Scale(sinTerm, skew)
	scaledSkew2.Scale(cosTerm, &skew2)

	out.Add(identity, &scaledSkew)
	out.Add(&out, &scaledSkew2)
	return &out
}

func skewMatrix(v r3.Vec) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v.Z, v.Y,
		v.Z, 0, -v.X,
		-v.Y, v.X, 0,
	})
}

// eulerFromRotation extracts roll/pitch/yaw from q, for the convention
// R = Rz(yaw) * Ry(pitch) * Rx(roll).
func eulerFromRotation(q trajectory.Rotation) (roll, pitch, yaw float64) {
	m := q.ToMatrix3()
	pitch = math.Asin(clamp(-m[2][0], -1, 1))
	if math.Abs(m[2][0]) < 0.999999 {
		roll = math.Atan2(m[2][1], m[2][2])
		yaw = math.Atan2(m[1][0], m[0][0])
	} else {
		roll = math.Atan2(-m[1][2], m[1][1])
		yaw = 0
	}
	return
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// eulerDelta builds a small-angle rotation from perturbations to roll,
// pitch, and yaw, applied as sequential axis rotations (x, then y, then
// z), which is accurate to first order for the infinitesimal
// perturbations used by the numerical Jacobian in point.go.
func eulerDelta(droll, dpitch, dyaw float64) trajectory.Rotation {
	rx := trajectory.FromAxisAngle(r3.Vec{X: 1}, droll)
	ry := trajectory.FromAxisAngle(r3.Vec{Y: 1}, dpitch)
	rz := trajectory.FromAxisAngle(r3.Vec{Z: 1}, dyaw)
	return rz.Mul(ry).Mul(rx)
}

// compose applies delta before base: base.Mul(delta).
func compose(base, delta trajectory.Rotation) trajectory.Rotation {
	return base.Mul(delta)
}

// validateFinite returns carveerr.InvalidPoint if any of vs is non-finite.
func validateFinite(index int, reason string, vs ...float64) error {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &carveerr.InvalidPoint{Index: index, Reason: reason}
		}
	}
	return nil
}
