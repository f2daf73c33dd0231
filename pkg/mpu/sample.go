package mpu

import "encoding/binary"

// RawSample is one reading in sensor counts.
type RawSample struct {
	Accel [3]int16
	Gyro  [3]int16
	// Temp is only meaningful when HasTemp is set.
	Temp    int16
	HasTemp bool
}

// TempCelsius converts the temperature count per the datasheet formula.
func (s RawSample) TempCelsius() float64 {
	return float64(s.Temp)/340 + 36.53
}

func decodeRaw(b []byte, withTemp bool) (s RawSample) {
	for i := 0; i < 3; i++ {
		s.Accel[i] = int16(binary.BigEndian.Uint16(b[i*2:]))
		s.Gyro[i] = int16(binary.BigEndian.Uint16(b[8+i*2:]))
	}
	if withTemp {
		s.Temp, s.HasTemp = int16(binary.BigEndian.Uint16(b[6:])), true
	}
	return
}

// Offsets are per-axis calibration offsets in sensor counts.
type Offsets struct {
	Accel [3]int16 `yaml:"accel"`
	Gyro  [3]int16 `yaml:"gyro"`
}

// Negate returns the opposite offsets.
func (o Offsets) Negate() (n Offsets) {
	for i := 0; i < 3; i++ {
		n.Accel[i], n.Gyro[i] = -o.Accel[i], -o.Gyro[i]
	}
	return
}

// ApplyOffsets subtracts offsets axis by axis. The subtraction wraps
// like 16-bit hardware arithmetic; offsets must keep readings in range.
func ApplyOffsets(s RawSample, o Offsets) RawSample {
	for i := 0; i < 3; i++ {
		s.Accel[i] -= o.Accel[i]
		s.Gyro[i] -= o.Gyro[i]
	}
	return s
}
