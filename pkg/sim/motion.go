package sim

import (
	"math"
	"time"
)

// Motion describes the body attitude over time as a rotation about
// the sensor Y axis.
type Motion interface {
	// Pitch returns the tilt and its rate in rad/s at t.
	Pitch(t time.Duration) (angle Angle, rate float64)
}

// Still keeps the body at a fixed tilt.
type Still Angle

// Pitch implements Motion.
func (s Still) Pitch(time.Duration) (Angle, float64) {
	return Angle(s), 0
}

// Rocking swings the body back and forth around upright, like a
// balancing robot correcting its lean.
type Rocking struct {
	Amplitude Angle
	Period    time.Duration
}

// Pitch implements Motion.
func (r Rocking) Pitch(t time.Duration) (Angle, float64) {
	if r.Period <= 0 {
		return 0, 0
	}
	w := 2 * math.Pi / r.Period.Seconds()
	phase := w * t.Seconds()
	return Angle(float64(r.Amplitude) * math.Sin(phase)), float64(r.Amplitude) * w * math.Cos(phase)
}
