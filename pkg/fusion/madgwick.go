package fusion

type calc[T any] struct {
	Arith[T]
}

func (c calc[T]) sum(vs ...T) T {
	r := vs[0]
	for _, v := range vs[1:] {
		r = c.Add(r, v)
	}
	return r
}

func (c calc[T]) sq(v T) T {
	return c.Mul(v, v)
}

func (c calc[T]) neg(v T) T {
	return c.Sub(c.FromFloat(0), v)
}

// Update runs one Madgwick IMU step: integrate the gyro rate (rad/s)
// over dt, pulled towards the attitude where the rotated gravity matches
// the accelerometer direction with gain beta. The accelerometer vector
// does not need to be normalized. A zero accelerometer vector skips the
// correction. When the result is not a valid unit quaternion, q is
// returned unchanged with false.
func Update[T any](a Arith[T], q Quat[T], gyro, accel [3]T, beta, dt T) (Quat[T], bool) {
	half := a.FromFloat(0.5)
	var step [3]T
	for i, g := range gyro {
		step[i] = a.Mul(half, a.Mul(g, dt))
	}
	return Step(a, q, step, accel, beta, dt)
}

// Step is Update with the gyro already integrated: step holds the
// half-angle increments (rate * dt / 2) of this sample. dt only scales
// the accelerometer correction.
func Step[T any](a Arith[T], q Quat[T], step, accel [3]T, beta, dt T) (Quat[T], bool) {
	c := calc[T]{a}
	two, four, eight := a.FromFloat(2), a.FromFloat(4), a.FromFloat(8)
	q0, q1, q2, q3 := q.W, q.X, q.Y, q.Z
	hx, hy, hz := step[0], step[1], step[2]

	// Gyro increment: q x (0, h).
	d0 := c.sum(c.neg(a.Mul(q1, hx)), c.neg(a.Mul(q2, hy)), c.neg(a.Mul(q3, hz)))
	d1 := c.sum(a.Mul(q0, hx), a.Mul(q2, hz), c.neg(a.Mul(q3, hy)))
	d2 := c.sum(a.Mul(q0, hy), c.neg(a.Mul(q1, hz)), a.Mul(q3, hx))
	d3 := c.sum(a.Mul(q0, hz), a.Mul(q1, hy), c.neg(a.Mul(q2, hx)))

	if s, ok := gradient(c, q, accel, two, four, eight); ok {
		d0 = a.Sub(d0, a.Mul(a.Mul(beta, s[0]), dt))
		d1 = a.Sub(d1, a.Mul(a.Mul(beta, s[1]), dt))
		d2 = a.Sub(d2, a.Mul(a.Mul(beta, s[2]), dt))
		d3 = a.Sub(d3, a.Mul(a.Mul(beta, s[3]), dt))
	}

	next := Quat[T]{
		W: a.Add(q0, d0),
		X: a.Add(q1, d1),
		Y: a.Add(q2, d2),
		Z: a.Add(q3, d3),
	}
	n2 := c.sum(c.sq(next.W), c.sq(next.X), c.sq(next.Y), c.sq(next.Z))
	if a.IsZero(n2) || !a.Valid(n2) {
		return q, false
	}
	n := a.InvSqrt(n2)
	next.W, next.X, next.Y, next.Z = a.Mul(next.W, n), a.Mul(next.X, n), a.Mul(next.Y, n), a.Mul(next.Z, n)
	for _, v := range [...]T{n, next.W, next.X, next.Y, next.Z} {
		if !a.Valid(v) {
			return q, false
		}
	}
	if a.IsZero(n) {
		return q, false
	}
	return next, true
}

// gradient returns the normalized corrective step, false when the
// accelerometer reading or the gradient is degenerate.
func gradient[T any](c calc[T], q Quat[T], accel [3]T, two, four, eight T) (s [4]T, ok bool) {
	a := c.Arith
	ax, ay, az := accel[0], accel[1], accel[2]
	an2 := c.sum(c.sq(ax), c.sq(ay), c.sq(az))
	if a.IsZero(an2) || !a.Valid(an2) {
		return s, false
	}
	an := a.InvSqrt(an2)
	if a.IsZero(an) {
		return s, false
	}
	ax, ay, az = a.Mul(ax, an), a.Mul(ay, an), a.Mul(az, an)

	q0, q1, q2, q3 := q.W, q.X, q.Y, q.Z
	_2q0, _2q1, _2q2, _2q3 := a.Mul(two, q0), a.Mul(two, q1), a.Mul(two, q2), a.Mul(two, q3)
	_4q0, _4q1, _4q2 := a.Mul(four, q0), a.Mul(four, q1), a.Mul(four, q2)
	_8q1, _8q2 := a.Mul(eight, q1), a.Mul(eight, q2)
	q0q0, q1q1, q2q2, q3q3 := c.sq(q0), c.sq(q1), c.sq(q2), c.sq(q3)

	s[0] = c.sum(a.Mul(_4q0, q2q2), a.Mul(_2q2, ax), a.Mul(_4q0, q1q1), c.neg(a.Mul(_2q1, ay)))
	s[1] = c.sum(a.Mul(_4q1, q3q3), c.neg(a.Mul(_2q3, ax)), a.Mul(a.Mul(four, q0q0), q1),
		c.neg(a.Mul(_2q0, ay)), c.neg(_4q1), a.Mul(_8q1, q1q1), a.Mul(_8q1, q2q2), a.Mul(_4q1, az))
	s[2] = c.sum(a.Mul(a.Mul(four, q0q0), q2), a.Mul(_2q0, ax), a.Mul(_4q2, q3q3),
		c.neg(a.Mul(_2q3, ay)), c.neg(_4q2), a.Mul(_8q2, q1q1), a.Mul(_8q2, q2q2), a.Mul(_4q2, az))
	s[3] = c.sum(a.Mul(a.Mul(four, q1q1), q3), c.neg(a.Mul(_2q1, ax)), a.Mul(a.Mul(four, q2q2), q3),
		c.neg(a.Mul(_2q2, ay)))

	sn2 := c.sum(c.sq(s[0]), c.sq(s[1]), c.sq(s[2]), c.sq(s[3]))
	if a.IsZero(sn2) || !a.Valid(sn2) {
		return s, false
	}
	sn := a.InvSqrt(sn2)
	if a.IsZero(sn) {
		return s, false
	}
	for i := range s {
		s[i] = a.Mul(s[i], sn)
	}
	return s, true
}
