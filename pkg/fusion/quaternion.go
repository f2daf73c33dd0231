package fusion

import "math"

// Quat is a quaternion in the numeric type of a backend.
type Quat[T any] struct {
	W, X, Y, Z T
}

// Identity returns the unit quaternion with no rotation.
func Identity[T any](a Arith[T]) Quat[T] {
	return Quat[T]{W: a.FromFloat(1)}
}

// Float converts q to a Quaternion.
func (q Quat[T]) Float(a Arith[T]) Quaternion {
	return Quaternion{W: a.ToFloat(q.W), X: a.ToFloat(q.X), Y: a.ToFloat(q.Y), Z: a.ToFloat(q.Z)}
}

// Quaternion is the float64 view of an attitude estimate.
type Quaternion struct {
	W, X, Y, Z float64
}

// Norm returns the length of q.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Euler returns roll, pitch, yaw in radians (Z-Y-X convention).
func (q Quaternion) Euler() (roll, pitch, yaw float64) {
	roll = math.Atan2(2*(q.W*q.X+q.Y*q.Z), 1-2*(q.X*q.X+q.Y*q.Y))
	sp := 2 * (q.W*q.Y - q.Z*q.X)
	if sp > 1 {
		sp = 1
	} else if sp < -1 {
		sp = -1
	}
	pitch = math.Asin(sp)
	yaw = math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
	return
}

// FromAxisAngle builds a unit quaternion rotating angle radians about axis.
func FromAxisAngle(axis [3]float64, angle float64) Quaternion {
	n := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if n == 0 {
		return Quaternion{W: 1}
	}
	s := math.Sin(angle/2) / n
	return Quaternion{W: math.Cos(angle / 2), X: axis[0] * s, Y: axis[1] * s, Z: axis[2] * s}
}

// Mul returns the Hamilton product q*r.
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Conj returns the conjugate of q.
func (q Quaternion) Conj() Quaternion {
	return Quaternion{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Gravity returns the earth Z axis expressed in the sensor frame, which
// is what a level-calibrated accelerometer reads at rest, in g.
func (q Quaternion) Gravity() [3]float64 {
	return [3]float64{
		2 * (q.X*q.Z - q.W*q.Y),
		2 * (q.W*q.X + q.Y*q.Z),
		1 - 2*(q.X*q.X+q.Y*q.Y),
	}
}
