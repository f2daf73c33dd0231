package mpu

import (
	"errors"
	"fmt"
)

// Lowpass selects the digital lowpass filter bandwidth (DLPF_CFG).
type Lowpass byte

// GyroRange selects the gyroscope full scale (FS_SEL).
type GyroRange byte

// AccelRange selects the accelerometer full scale (AFS_SEL).
type AccelRange byte

var (
	lowpassHz       = [...]int{260, 184, 94, 44, 21, 10, 5}
	gyroFullScale   = [...]float64{250, 500, 1000, 2000}
	accelFullScaleG = [...]float64{2, 4, 8, 16}
)

// Hz returns the accelerometer bandwidth of the code, 0 if out of range.
func (l Lowpass) Hz() int {
	if int(l) >= len(lowpassHz) {
		return 0
	}
	return lowpassHz[l]
}

// DegPerSec returns the full scale in deg/s, 0 if out of range.
func (r GyroRange) DegPerSec() float64 {
	if int(r) >= len(gyroFullScale) {
		return 0
	}
	return gyroFullScale[r]
}

// G returns the full scale in g, 0 if out of range.
func (r AccelRange) G() float64 {
	if int(r) >= len(accelFullScaleG) {
		return 0
	}
	return accelFullScaleG[r]
}

// ErrInvalidConfig is wrapped by all Validate failures.
var ErrInvalidConfig = errors.New("invalid sensor config")

// Config is the sensor and fusion configuration.
type Config struct {
	Lowpass         Lowpass     `yaml:"lowpass"`
	SampleRateDiv   byte        `yaml:"sample_rate_div"`
	GyroRange       GyroRange   `yaml:"gyro_range"`
	AccelRange      AccelRange  `yaml:"accel_range"`
	EnableInterrupt bool        `yaml:"enable_interrupt"`
	IntPin          IntPinFlags `yaml:"int_pin"`
	// Temperature keeps the temperature sensor powered.
	Temperature bool `yaml:"temperature"`

	// Beta is the fusion gain.
	Beta float64 `yaml:"beta"`
	// CorrectedBeta overrides Beta when nonzero.
	CorrectedBeta float64 `yaml:"corrected_beta"`
}

// DefaultConfig returns 44Hz lowpass, 200Hz sampling, 2000deg/s, 2g.
func DefaultConfig() Config {
	return Config{
		Lowpass:         3,
		SampleRateDiv:   4,
		GyroRange:       3,
		AccelRange:      0,
		EnableInterrupt: true,
		IntPin:          IntReadClear,
		Beta:            0.1,
	}
}

// Validate checks the enumerated codes and gains.
func (c Config) Validate() error {
	if int(c.Lowpass) >= len(lowpassHz) {
		return fmt.Errorf("%w: lowpass %d out of range 0-%d", ErrInvalidConfig, c.Lowpass, len(lowpassHz)-1)
	}
	if int(c.GyroRange) >= len(gyroFullScale) {
		return fmt.Errorf("%w: gyro range %d out of range 0-%d", ErrInvalidConfig, c.GyroRange, len(gyroFullScale)-1)
	}
	if int(c.AccelRange) >= len(accelFullScaleG) {
		return fmt.Errorf("%w: accel range %d out of range 0-%d", ErrInvalidConfig, c.AccelRange, len(accelFullScaleG)-1)
	}
	if c.Beta < 0 || c.CorrectedBeta < 0 {
		return fmt.Errorf("%w: negative beta", ErrInvalidConfig)
	}
	return nil
}

// EffectiveBeta is CorrectedBeta when set, otherwise Beta.
func (c Config) EffectiveBeta() float64 {
	if c.CorrectedBeta != 0 {
		return c.CorrectedBeta
	}
	return c.Beta
}

func (c Config) powerFlags() PowerFlags {
	f := ClockPLLGyroZ
	if !c.Temperature {
		f |= PowerTempDisable
	}
	return f
}

func (c Config) intEnableFlags() IntEnableFlags {
	if c.EnableInterrupt {
		return IntDataReady
	}
	return 0
}
