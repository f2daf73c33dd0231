package mpu

// Register addresses.
const (
	RegSampleRateDiv byte = 0x19
	RegConfig        byte = 0x1A
	RegGyroConfig    byte = 0x1B
	RegAccelConfig   byte = 0x1C
	RegIntPinCfg     byte = 0x37
	RegIntEnable     byte = 0x38
	RegIntStatus     byte = 0x3A
	RegAccelXOutH    byte = 0x3B
	RegTempOutH      byte = 0x41
	RegGyroXOutH     byte = 0x43
	RegPowerMgmt1    byte = 0x6B
	RegWhoAmI        byte = 0x75
)

const (
	// DefaultAddr is the 7-bit bus address with AD0 pulled low.
	DefaultAddr uint16 = 0x68
	// AltAddr is the 7-bit bus address with AD0 pulled high.
	AltAddr uint16 = 0x69
	// WhoAmI is the expected content of the identity register.
	WhoAmI byte = 0x68

	// rawBlockLen covers ACCEL_XOUT_H through GYRO_ZOUT_L.
	rawBlockLen = 14
	// rangeShift is the position of FS_SEL/AFS_SEL in GYRO_CONFIG/ACCEL_CONFIG.
	rangeShift = 3
)

// Axis indexes a component of a 3-axis reading.
type Axis int

// Axes.
const (
	AxisX Axis = iota
	AxisY
	AxisZ
)
