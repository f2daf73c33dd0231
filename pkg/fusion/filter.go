package fusion

import (
	"github.com/robotalks/way.go/pkg/fixed"
	"github.com/robotalks/way.go/pkg/mpu"
)

// Filter is an orientation estimator fed with corrected raw samples.
type Filter interface {
	// Update consumes one sample. It returns false when the sample
	// was rejected and the previous estimate is kept.
	Update(mpu.RawSample) bool
	Quaternion() Quaternion
	Reset()
	// Numeric names the numeric backend.
	Numeric() string
}

// SampleConverter converts raw counts into the backend's physical units.
type SampleConverter[T any] interface {
	// GyroStep returns the half-angle increments of one sample period.
	GyroStep([3]int16) [3]T
	// Accel returns g.
	Accel([3]int16) [3]T
}

// Madgwick is the gradient-descent filter over a numeric backend.
type Madgwick[T any] struct {
	Arith Arith[T]
	Conv  SampleConverter[T]
	Beta  T
	Dt    T

	name     string
	q        Quat[T]
	rejected uint64
}

// NewMadgwick creates a filter starting at identity.
func NewMadgwick[T any](name string, a Arith[T], conv SampleConverter[T], beta, dt T) *Madgwick[T] {
	return &Madgwick[T]{Arith: a, Conv: conv, Beta: beta, Dt: dt, name: name, q: Identity(a)}
}

// NewFloatFilter creates a float32 filter with the factors in s.
func NewFloatFilter(s mpu.Scale) *Madgwick[float32] {
	return NewMadgwick[float32]("float32", Float{}, floatConv{s},
		float32(s.FusionBeta()), float32(s.Period()))
}

// NewFixFilter creates a Q16.16 filter with the fixed-point factors in s.
func NewFixFilter(s mpu.Scale) *Madgwick[fixed.Q16] {
	return NewMadgwick[fixed.Q16]("q16", Fix{}, fixConv{s}, s.FusionBetaFix(), s.PeriodFix)
}

// Update implements Filter.
func (m *Madgwick[T]) Update(s mpu.RawSample) bool {
	q, ok := Step(m.Arith, m.q, m.Conv.GyroStep(s.Gyro), m.Conv.Accel(s.Accel), m.Beta, m.Dt)
	if !ok {
		m.rejected++
		return false
	}
	m.q = q
	return true
}

// UpdateState runs one step from explicit rates (rad/s) and acceleration.
func (m *Madgwick[T]) UpdateState(gyro, accel [3]T) bool {
	q, ok := Update(m.Arith, m.q, gyro, accel, m.Beta, m.Dt)
	if ok {
		m.q = q
	} else {
		m.rejected++
	}
	return ok
}

// State returns the quaternion in the backend's numeric type.
func (m *Madgwick[T]) State() Quat[T] {
	return m.q
}

// SetState overrides the estimate.
func (m *Madgwick[T]) SetState(q Quat[T]) {
	m.q = q
}

// Quaternion implements Filter.
func (m *Madgwick[T]) Quaternion() Quaternion {
	return m.q.Float(m.Arith)
}

// Reset implements Filter.
func (m *Madgwick[T]) Reset() {
	m.q, m.rejected = Identity(m.Arith), 0
}

// Numeric implements Filter.
func (m *Madgwick[T]) Numeric() string {
	return m.name
}

// Rejected counts samples whose result was discarded.
func (m *Madgwick[T]) Rejected() uint64 {
	return m.rejected
}

type floatConv struct {
	s mpu.Scale
}

func (c floatConv) GyroStep(raw [3]int16) (v [3]float32) {
	for i, r := range raw {
		v[i] = float32(float64(r) * c.s.GyroIntegrationFactor)
	}
	return
}

func (c floatConv) Accel(raw [3]int16) (v [3]float32) {
	for i, r := range raw {
		v[i] = float32(float64(r) * c.s.AccelGPerLSB)
	}
	return
}

type fixConv struct {
	s mpu.Scale
}

func (c fixConv) GyroStep(raw [3]int16) (v [3]fixed.Q16) {
	for i, r := range raw {
		v[i] = fixed.ScaleRawShift(r, c.s.GyroIntegrationFactorFix, fixed.StepShift)
	}
	return
}

func (c fixConv) Accel(raw [3]int16) (v [3]fixed.Q16) {
	for i, r := range raw {
		v[i] = fixed.ScaleRaw(r, c.s.AccelGPerKLSBFix)
	}
	return
}
