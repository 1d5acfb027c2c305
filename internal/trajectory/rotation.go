package trajectory

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Rotation is a unit quaternion. The package keeps its own minimal
// quaternion type rather than depending on an external quaternion
// library: SLERP over four floats is a handful of lines and no example
// repo in the reference pack ships a quaternion package worth adopting
// for this alone (see DESIGN.md).
type Rotation struct {
	W, X, Y, Z float64
}

// IdentityRotation is the no-rotation quaternion.
var IdentityRotation = Rotation{W: 1}

// FromAxisAngle builds the rotation of angle radians about unit axis.
func FromAxisAngle(axis r3.Vec, angle float64) Rotation {
	h := angle / 2
	s := math.Sin(h)
	return Rotation{W: math.Cos(h), X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s}
}

func (q Rotation) dot(o Rotation) float64 {
	return q.W*o.W + q.X*o.X + q.Y*o.Y + q.Z*o.Z
}

func (q Rotation) scale(s float64) Rotation {
	return Rotation{W: q.W * s, X: q.X * s, Y: q.Y * s, Z: q.Z * s}
}

func (q Rotation) add(o Rotation) Rotation {
	return Rotation{W: q.W + o.W, X: q.X + o.X, Y: q.Y + o.Y, Z: q.Z + o.Z}
}

func (q Rotation) negate() Rotation {
	return Rotation{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

func (q Rotation) norm() float64 {
	return math.Sqrt(q.dot(q))
}

// Normalized returns q scaled to unit length.
func (q Rotation) Normalized() Rotation {
	n := q.norm()
	if n == 0 {
		return IdentityRotation
	}
	return q.scale(1 / n)
}

// Slerp spherically interpolates between a and b at parameter t in
// [0, 1], taking the shorter arc.
func Slerp(a, b Rotation, t float64) Rotation {
	a = a.Normalized()
	b = b.Normalized()

	cosTheta := a.dot(b)
	if cosTheta < 0 {
		b = b.negate()
		cosTheta = -cosTheta
	}

	const epsilon = 1e-9
	if cosTheta > 1-epsilon {
		// Nearly identical: linear blend avoids a divide-by-near-zero.
		return a.add(b.add(a.negate()).scale(t)).Normalized()
	}

	theta := math.Acos(cosTheta)
	sinTheta := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sinTheta
	wb := math.Sin(t*theta) / sinTheta
	return a.scale(wa).add(b.scale(wb)).Normalized()
}

// Mul composes two rotations: applying q.Mul(o) to a vector first applies
// o, then q.
func (q Rotation) Mul(o Rotation) Rotation {
	return Rotation{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

// RotateVec rotates v by q.
func (q Rotation) RotateVec(v r3.Vec) r3.Vec {
	qv := r3.Vec{X: q.X, Y: q.Y, Z: q.Z}
	uv := r3.Cross(qv, v)
	uuv := r3.Cross(qv, uv)
	return r3.Add(v, r3.Scale(2, r3.Add(r3.Scale(q.W, uv), uuv)))
}

// ToEulerRPY returns the equivalent roll, pitch, yaw angles (radians,
// ZYX convention), the representation a noisypath pose record stores its
// orientation mean in.
func (q Rotation) ToEulerRPY() (roll, pitch, yaw float64) {
	m := q.ToMatrix3()
	pitch = math.Asin(clampUnit(-m[2][0]))
	if math.Abs(m[2][0]) < 1-1e-9 {
		roll = math.Atan2(m[2][1], m[2][2])
		yaw = math.Atan2(m[1][0], m[0][0])
	} else {
		// Gimbal lock: roll and yaw trade off freely, so pin roll to 0.
		roll = 0
		yaw = math.Atan2(-m[0][1], m[1][1])
	}
	return roll, pitch, yaw
}

func clampUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// FromEulerRPY builds the rotation equivalent to the given roll, pitch,
// yaw angles (radians, ZYX convention).
func FromEulerRPY(roll, pitch, yaw float64) Rotation {
	return FromAxisAngle(r3.Vec{Z: 1}, yaw).
		Mul(FromAxisAngle(r3.Vec{Y: 1}, pitch)).
		Mul(FromAxisAngle(r3.Vec{X: 1}, roll))
}

// ToMatrix3 returns the equivalent 3x3 rotation matrix as row vectors.
func (q Rotation) ToMatrix3() [3][3]float64 {
	q = q.Normalized()
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}
