package mpu

import (
	"math"
	"time"

	"github.com/robotalks/way.go/pkg/fixed"
)

// Gyro output rates the sample rate divider applies to. The DLPF is
// disabled by lowpass code 0 and the gyro then outputs at 8kHz.
const (
	BaseSampleRate       = 1000
	UnfilteredSampleRate = 8000
)

// GyroOutputRate returns the rate in Hz before the sample rate divider.
func (l Lowpass) GyroOutputRate() int {
	if l == 0 {
		return UnfilteredSampleRate
	}
	return BaseSampleRate
}

// fullScaleCounts is the count at positive full scale.
const fullScaleCounts = 32768

// Scale holds the factors derived from a Config.
type Scale struct {
	GyroDegPerLSB float64
	GyroRadPerLSB float64
	AccelGPerLSB  float64
	SamplePeriod  time.Duration
	LowpassHz     int

	// Beta and CorrectedBeta are the fusion gain pair, see FusionBeta.
	Beta          float64
	CorrectedBeta float64
	// GyroIntegrationFactor is rad per LSB times half the sample period,
	// the quaternion half-angle increment per count of angular rate.
	GyroIntegrationFactor float64

	// Fixed-point mirrors.
	BetaFix                  fixed.Q16
	CorrectedBetaFix         fixed.Q16
	PeriodFix                fixed.Q16 // seconds
	AccelGPerKLSBFix         fixed.Q16 // g per 1024 counts
	GyroIntegrationFactorFix fixed.Q16 // per 2^fixed.StepShift counts
}

// Scale derives the scale factors. It must be called again after
// any change of c.
func (c Config) Scale() (Scale, error) {
	if err := c.Validate(); err != nil {
		return Scale{}, err
	}
	s := Scale{
		GyroDegPerLSB: c.GyroRange.DegPerSec() / fullScaleCounts,
		AccelGPerLSB:  c.AccelRange.G() / fullScaleCounts,
		SamplePeriod:  time.Duration(1+int(c.SampleRateDiv)) * time.Second / time.Duration(c.Lowpass.GyroOutputRate()),
		LowpassHz:     c.Lowpass.Hz(),
		Beta:          c.Beta,
		CorrectedBeta: c.CorrectedBeta,
	}
	s.GyroRadPerLSB = s.GyroDegPerLSB * math.Pi / 180
	s.GyroIntegrationFactor = s.GyroRadPerLSB * 0.5 * s.Period()

	const k = 1 << fixed.RawShift
	s.BetaFix = fixed.FromFloat(s.Beta)
	s.CorrectedBetaFix = fixed.FromFloat(s.CorrectedBeta)
	s.PeriodFix = fixed.FromFloat(s.Period())
	s.AccelGPerKLSBFix = fixed.FromFloat(s.AccelGPerLSB * k)
	s.GyroIntegrationFactorFix = fixed.FromFloat(s.GyroIntegrationFactor * (1 << fixed.StepShift))
	return s, nil
}

// FusionBeta is CorrectedBeta when set, otherwise Beta.
func (s Scale) FusionBeta() float64 {
	if s.CorrectedBeta != 0 {
		return s.CorrectedBeta
	}
	return s.Beta
}

// FusionBetaFix is the fixed-point counterpart of FusionBeta.
func (s Scale) FusionBetaFix() fixed.Q16 {
	if s.CorrectedBeta != 0 {
		return s.CorrectedBetaFix
	}
	return s.BetaFix
}

// Period is the sample period in seconds.
func (s Scale) Period() float64 {
	return s.SamplePeriod.Seconds()
}

// Rate is the output data rate in Hz.
func (s Scale) Rate() float64 {
	if s.SamplePeriod == 0 {
		return 0
	}
	return 1 / s.Period()
}

// GyroRad converts a raw gyro sample to rad/s.
func (s Scale) GyroRad(raw [3]int16) (v [3]float64) {
	for i, r := range raw {
		v[i] = float64(r) * s.GyroRadPerLSB
	}
	return
}

// AccelG converts a raw accel sample to g.
func (s Scale) AccelG(raw [3]int16) (v [3]float64) {
	for i, r := range raw {
		v[i] = float64(r) * s.AccelGPerLSB
	}
	return
}
