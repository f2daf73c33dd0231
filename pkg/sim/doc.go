// Package sim simulates an MPU-6050 on the sensor bus so the daemon
// and tests run without hardware.
package sim
