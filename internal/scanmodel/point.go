package scanmodel

import (
	"github.com/elturner/carve/internal/carveerr"
	"github.com/elturner/carve/internal/gaussian"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// NoisyPoint is one range return: a 3D position in the sensor frame plus
// a stddev and beam-width scalar (spec §3, "Noisy point").
type NoisyPoint struct {
	Position r3.Vec
	Stddev   float64
	Width    float64
}

// Valid reports whether p carries only finite noise components. An
// invalid point is dropped by the caller without aborting the frame
// (spec §3, §7 InvalidPoint).
func (p NoisyPoint) Valid() bool {
	return validateFinite(0, "", p.Stddev, p.Width) == nil
}

// PointResult is the pair of 3D Gaussians produced for one range return:
// the sensor endpoint and the hit endpoint (spec §3 "Carve map"
// construction inputs).
type PointResult struct {
	Sensor gaussian.Gaussian3
	Hit    gaussian.Gaussian3
}

// inputStateDim is the dimensionality of the per-point input covariance
// (roll, pitch, yaw, ext xyz, clock stddev, point xyz), spec §3.
const inputStateDim = 10

// BuildPoint composes the frame setup with one noisy point into the two
// output Gaussians that feed a carve map (spec §4.2). It builds the
// 10-dim input covariance, propagates it through the composed transform
// pose -> sensor frame -> body frame -> world frame via a numerically
// evaluated propagation Jacobian (central differences around the
// maximum-likelihood state), and returns carveerr.InvalidPoint if p
// carries non-finite noise.
func (f *FrameSetup) BuildPoint(index int, p NoisyPoint) (PointResult, error) {
	if !p.Valid() {
		return PointResult{}, &carveerr.InvalidPoint{Index: index, Reason: "non-finite stddev or width"}
	}
	if err := validateFinite(index, "non-finite point position", p.Position.X, p.Position.Y, p.Position.Z); err != nil {
		return PointResult{}, err
	}

	input10 := mat.NewSymDense(inputStateDim, nil)
	for i := 0; i < 7; i++ {
		for j := i; j < 7; j++ {
			input10.SetSym(i, j, f.InputSensorCov.At(i, j))
		}
	}
	pointVar := p.Stddev * p.Stddev
	input10.SetSym(7, 7, pointVar)
	input10.SetSym(8, 8, pointVar)
	input10.SetSym(9, 9, pointVar)

	sensorFn := func(state []float64) r3.Vec { return f.worldSensorPosition(state[:7]) }
	pointFn := func(state []float64) r3.Vec { return f.worldPointPosition(state, p.Position) }

	nominal := make([]float64, inputStateDim)
	jSensor := numericalJacobian(sensorFn, nominal[:7])
	jPoint := numericalJacobian(pointFn, nominal)

	sensorCov := propagate(jSensor, sliceSym(f.InputSensorCov, 7))
	pointCov := propagate(jPoint, input10)

	sensorMean := f.worldSensorPosition(nominal[:7])
	pointMean := f.worldPointPosition(nominal, p.Position)

	return PointResult{
		Sensor: gaussian.Gaussian3{Mean: sensorMean, Cov: sensorCov},
		Hit:    gaussian.Gaussian3{Mean: pointMean, Cov: pointCov},
	}, nil
}

// worldSensorPosition evaluates the maximum-likelihood sensor position in
// world coordinates as a function of a perturbation state
// [droll, dpitch, dyaw, dex, dey, dez, dts], composing:
// pose orientation (perturbed by droll/dpitch/dyaw and by the clock-error
// rotation R_ts(dts)) applied to the (perturbed) extrinsic translation,
// plus the pose's nominal world position.
func (f *FrameSetup) worldSensorPosition(state []float64) r3.Vec {
	droll, dpitch, dyaw := state[0], state[1], state[2]
	dex, dey, dez := state[3], state[4], state[5]
	var dts float64
	if len(state) > 6 {
		dts = state[6]
	}

	deltaOrientation := eulerDelta(droll, dpitch, dyaw)
	perturbedBodyOrientation := compose(f.Pose.Orientation, deltaOrientation)

	extTranslation := r3.Add(f.sensor.Descriptor.Extrinsics.Translation, r3.Vec{X: dex, Y: dey, Z: dez})
	bodyOffset := f.sensor.Descriptor.Extrinsics.Rotation.RotateVec(extTranslation)
	worldOffset := perturbedBodyOrientation.RotateVec(bodyOffset)

	rts := rTs(f.Pose.AngularVel, dts)
	worldOffset = applyDense3(rts, worldOffset)

	return r3.Add(f.Pose.Position, worldOffset)
}

// worldPointPosition extends worldSensorPosition with the point's
// sensor-frame position (perturbed by state[7:10]).
func (f *FrameSetup) worldPointPosition(state []float64, nominalPoint r3.Vec) r3.Vec {
	sensorPos := f.worldSensorPosition(state[:7])

	var dpx, dpy, dpz float64
	if len(state) > 9 {
		dpx, dpy, dpz = state[7], state[8], state[9]
	}
	pointSensorFrame := r3.Add(nominalPoint, r3.Vec{X: dpx, Y: dpy, Z: dpz})

	droll, dpitch, dyaw := state[0], state[1], state[2]
	deltaOrientation := eulerDelta(droll, dpitch, dyaw)
	perturbedBodyOrientation := compose(f.Pose.Orientation, deltaOrientation)
	bodyPoint := f.sensor.Descriptor.Extrinsics.Rotation.RotateVec(pointSensorFrame)
	worldPoint := perturbedBodyOrientation.RotateVec(bodyPoint)

	var dts float64
	if len(state) > 6 {
		dts = state[6]
	}
	rts := rTs(f.Pose.AngularVel, dts)
	worldPoint = applyDense3(rts, worldPoint)

	return r3.Add(sensorPos, worldPoint)
}

func applyDense3(m *mat.Dense, v r3.Vec) r3.Vec {
	vec := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(m, vec)
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

func sliceSym(m *mat.SymDense, n int) *mat.SymDense {
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, m.At(i, j))
		}
	}
	return out
}

// propagate computes J * cov * J^T for a 3xN Jacobian J.
func propagate(j *mat.Dense, cov *mat.SymDense) *mat.SymDense {
	var jc mat.Dense
	jc.Mul(j, cov)
	var jcjt mat.Dense
	jcjt.Mul(&jc, j.T())

	out := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for k := i; k < 3; k++ {
			out.SetSym(i, k, jcjt.At(i, k))
		}
	}
	return out
}

// numericalJacobian evaluates the 3xN Jacobian of f at x0 via centered
// finite differences.
func numericalJacobian(f func([]float64) r3.Vec, x0 []float64) *mat.Dense {
	const h = 1e-6
	n := len(x0)
	j := mat.NewDense(3, n, nil)
	x := make([]float64, n)
	copy(x, x0)
	for col := 0; col < n; col++ {
		orig := x[col]
		x[col] = orig + h
		fp := f(x)
		x[col] = orig - h
		fm := f(x)
		x[col] = orig

		d := r3.Scale(1/(2*h), r3.Sub(fp, fm))
		j.Set(0, col, d.X)
		j.Set(1, col, d.Y)
		j.Set(2, col, d.Z)
	}
	return j
}
