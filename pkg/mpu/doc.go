// Package mpu drives an MPU-6050 style 6-axis inertial sensor over a
// register bus and converts its raw readings into physical units.
package mpu

// The register map and bit positions follow the MPU-6000/MPU-6050
// register map document (revision 4.2).
//
// Only the registers needed for periodic accel/gyro sampling are
// covered. The digital motion processor, FIFO and auxiliary I2C master
// are left untouched and stay in their reset state.
