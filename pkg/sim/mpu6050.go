package sim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/way.go/pkg/mpu"
)

// ErrEmptyTx is returned for a transaction without register address.
var ErrEmptyTx = errors.New("empty transaction")

const (
	regCount   = 128
	powerReset = 0x40 // PWR_MGMT_1 after reset: sleeping
	roomTemp   = 25.0
)

// MPU6050 implements mpu.Bus with a simulated register map.
// Samples are generated from Motion at the configured output rate
// when the status register is read. It is not safe for concurrent use.
type MPU6050 struct {
	Motion Motion
	// Bias is added to every sample in counts.
	Bias mpu.Offsets
	// Now is the time source, time.Now when nil.
	Now func() time.Time

	regs     [regCount]byte
	start    time.Time
	produced int64
}

// NewMPU6050 creates a sensor in its power-on state.
func NewMPU6050(motion Motion) *MPU6050 {
	s := &MPU6050{Motion: motion}
	s.reset()
	return s
}

func (s *MPU6050) reset() {
	s.regs = [regCount]byte{}
	s.regs[mpu.RegPowerMgmt1] = powerReset
	s.regs[mpu.RegWhoAmI] = mpu.WhoAmI
	s.start, s.produced = time.Time{}, 0
}

func (s *MPU6050) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Tx implements mpu.Bus. Register addresses auto-increment on burst
// reads and writes.
func (s *MPU6050) Tx(w, r []byte) error {
	if len(w) == 0 {
		return ErrEmptyTx
	}
	reg := int(w[0])
	for i, v := range w[1:] {
		if err := s.write(reg+i, v); err != nil {
			return err
		}
	}
	if len(r) == 0 {
		return nil
	}
	if reg+len(r) > regCount {
		return fmt.Errorf("read 0x%02X+%d out of range", reg, len(r))
	}
	if reg == int(mpu.RegIntStatus) {
		s.sync()
	}
	copy(r, s.regs[reg:])
	if s.readClears(reg, len(r)) {
		s.regs[mpu.RegIntStatus] &^= byte(mpu.StatusDataReady)
	}
	return nil
}

func (s *MPU6050) write(reg int, v byte) error {
	if reg >= regCount {
		return fmt.Errorf("write 0x%02X out of range", reg)
	}
	switch byte(reg) {
	case mpu.RegWhoAmI, mpu.RegIntStatus:
		return nil
	case mpu.RegPowerMgmt1:
		if mpu.PowerFlags(v).Has(mpu.PowerReset) {
			s.reset()
			return nil
		}
		wasSleeping := s.sleeping()
		s.regs[reg] = v
		if wasSleeping && !s.sleeping() {
			s.start, s.produced = s.now(), 0
		}
		glog.V(4).Infof("sim mpu: power %s", mpu.PowerFlags(v))
		return nil
	}
	if reg >= int(mpu.RegAccelXOutH) && reg < int(mpu.RegGyroXOutH)+6 {
		return nil
	}
	s.regs[reg] = v
	return nil
}

func (s *MPU6050) sleeping() bool {
	return mpu.PowerFlags(s.regs[mpu.RegPowerMgmt1]).Has(mpu.PowerSleep)
}

// readClears reports whether the read acknowledges data-ready: reading
// INT_STATUS always does, with INT_RD_CLEAR any read does.
func (s *MPU6050) readClears(reg, n int) bool {
	if reg <= int(mpu.RegIntStatus) && reg+n > int(mpu.RegIntStatus) {
		return true
	}
	return mpu.IntPinFlags(s.regs[mpu.RegIntPinCfg]).Has(mpu.IntReadClear)
}

// config decodes the register map into the sensor configuration.
func (s *MPU6050) config() mpu.Config {
	return mpu.Config{
		Lowpass:       mpu.Lowpass(s.regs[mpu.RegConfig] & 7),
		SampleRateDiv: s.regs[mpu.RegSampleRateDiv],
		GyroRange:     mpu.GyroRange(s.regs[mpu.RegGyroConfig] >> 3 & 3),
		AccelRange:    mpu.AccelRange(s.regs[mpu.RegAccelConfig] >> 3 & 3),
		Temperature:   !mpu.PowerFlags(s.regs[mpu.RegPowerMgmt1]).Has(mpu.PowerTempDisable),
	}
}

// sync produces the latest sample when one or more periods elapsed.
// Samples missed between reads are dropped, as the hardware
// overwrites its output registers.
func (s *MPU6050) sync() {
	if s.sleeping() {
		return
	}
	scale, err := s.config().Scale()
	if err != nil {
		return
	}
	due := int64(s.now().Sub(s.start) / scale.SamplePeriod)
	if due <= s.produced {
		return
	}
	s.produced = due
	s.sample(time.Duration(due)*scale.SamplePeriod, scale)
}

// Step produces the next sample immediately, regardless of the clock.
func (s *MPU6050) Step() {
	if s.sleeping() {
		return
	}
	scale, err := s.config().Scale()
	if err != nil {
		return
	}
	s.produced++
	s.sample(time.Duration(s.produced)*scale.SamplePeriod, scale)
}

// Elapsed returns the motion time of the last sample.
func (s *MPU6050) Elapsed() time.Duration {
	scale, err := s.config().Scale()
	if err != nil {
		return 0
	}
	return time.Duration(s.produced) * scale.SamplePeriod
}

func (s *MPU6050) sample(t time.Duration, scale mpu.Scale) {
	var angle Angle
	var rate float64
	if s.Motion != nil {
		angle, rate = s.Motion.Pitch(t)
	}
	// gravity in the sensor frame when pitched about Y
	accel := [3]float64{-angle.Sin(), 0, angle.Cos()}
	gyro := [3]float64{0, rate, 0}
	for i := 0; i < 3; i++ {
		s.put(mpu.RegAccelXOutH+byte(i*2), counts(accel[i]/scale.AccelGPerLSB, s.Bias.Accel[i]))
		s.put(mpu.RegGyroXOutH+byte(i*2), counts(gyro[i]/scale.GyroRadPerLSB, s.Bias.Gyro[i]))
	}
	if s.config().Temperature {
		s.put(mpu.RegTempOutH, counts((roomTemp-36.53)*340, 0))
	} else {
		s.put(mpu.RegTempOutH, 0)
	}
	s.regs[mpu.RegIntStatus] |= byte(mpu.StatusDataReady)
}

func (s *MPU6050) put(reg byte, v int16) {
	binary.BigEndian.PutUint16(s.regs[reg:], uint16(v))
}

func counts(v float64, bias int16) int16 {
	v = math.Round(v) + float64(bias)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
