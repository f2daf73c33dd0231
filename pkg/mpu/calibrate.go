package mpu

import "math"

// EstimateOffsets averages samples taken at rest, sensor level, and
// returns the offsets that zero the gyro and leave exactly 1g on Z.
func EstimateOffsets(samples []RawSample, s Scale) Offsets {
	var o Offsets
	if len(samples) == 0 || s.AccelGPerLSB == 0 {
		return o
	}
	var accel, gyro [3]float64
	for _, sample := range samples {
		for i := 0; i < 3; i++ {
			accel[i] += float64(sample.Accel[i])
			gyro[i] += float64(sample.Gyro[i])
		}
	}
	n := float64(len(samples))
	accel[AxisZ] -= n / s.AccelGPerLSB
	for i := 0; i < 3; i++ {
		o.Accel[i] = int16(math.Round(accel[i] / n))
		o.Gyro[i] = int16(math.Round(gyro[i] / n))
	}
	return o
}
