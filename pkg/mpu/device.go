package mpu

import (
	"github.com/golang/glog"
)

// Bus performs one write-then-read transaction with the sensor.
// periph.io i2c.Dev satisfies it.
type Bus interface {
	Tx(w, r []byte) error
}

// Device is an MPU-6050 on a Bus.
type Device struct {
	Bus Bus

	scale      Scale
	configured bool
	withTemp   bool
	cmd        [2]byte
	buf        [rawBlockLen]byte
}

// NewDevice creates a Device.
func NewDevice(bus Bus) *Device {
	return &Device{Bus: bus}
}

// Scale returns the factors derived by the last successful Configure.
func (d *Device) Scale() (Scale, bool) {
	return d.scale, d.configured
}

// ReadStatus reads INT_STATUS. With IntReadClear the read also
// acknowledges the interrupt.
func (d *Device) ReadStatus() (IntStatus, error) {
	v, err := d.readReg(RegIntStatus)
	return IntStatus(v), err
}

// ReadRaw reads accel, temperature and gyro outputs in one burst.
func (d *Device) ReadRaw() (RawSample, error) {
	d.cmd[0] = RegAccelXOutH
	if err := d.Bus.Tx(d.cmd[:1], d.buf[:]); err != nil {
		return RawSample{}, &BusError{Op: "read", Reg: RegAccelXOutH, Err: err}
	}
	return decodeRaw(d.buf[:], d.withTemp), nil
}

// Configure writes the full configuration sequence and verifies the
// identity register. The previous Scale is discarded before any
// register is touched.
func (d *Device) Configure(c Config) (Scale, error) {
	d.scale, d.configured = Scale{}, false
	scale, err := c.Scale()
	if err != nil {
		return Scale{}, err
	}
	writes := []struct {
		reg byte
		val byte
	}{
		{RegPowerMgmt1, byte(c.powerFlags())},
		{RegSampleRateDiv, c.SampleRateDiv},
		{RegConfig, byte(c.Lowpass)},
		{RegGyroConfig, byte(c.GyroRange) << rangeShift},
		{RegAccelConfig, byte(c.AccelRange) << rangeShift},
		{RegIntPinCfg, byte(c.IntPin)},
		{RegIntEnable, byte(c.intEnableFlags())},
	}
	for _, w := range writes {
		if err := d.writeReg(w.reg, w.val); err != nil {
			return Scale{}, err
		}
	}
	id, err := d.readReg(RegWhoAmI)
	if err != nil {
		return Scale{}, err
	}
	if id != WhoAmI {
		return Scale{}, &ConfigVerificationError{Got: id, Want: WhoAmI}
	}
	glog.Infof("mpu configured: lowpass=%dHz rate=%.0fHz gyro=±%.0fdeg/s accel=±%.0fg int=%s pin=%s beta=%.3f",
		scale.LowpassHz, scale.Rate(), c.GyroRange.DegPerSec(), c.AccelRange.G(),
		c.intEnableFlags(), c.IntPin, scale.FusionBeta())
	d.scale, d.configured, d.withTemp = scale, true, c.Temperature
	return scale, nil
}

func (d *Device) readReg(reg byte) (byte, error) {
	d.cmd[0] = reg
	if err := d.Bus.Tx(d.cmd[:1], d.buf[:1]); err != nil {
		return 0, &BusError{Op: "read", Reg: reg, Err: err}
	}
	return d.buf[0], nil
}

func (d *Device) writeReg(reg, val byte) error {
	d.cmd[0], d.cmd[1] = reg, val
	if err := d.Bus.Tx(d.cmd[:], nil); err != nil {
		return &BusError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}
