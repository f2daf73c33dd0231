package mpu

import "fmt"

// BusError wraps a failed register transaction.
type BusError struct {
	Op  string
	Reg byte
	Err error
}

// Error implements error.
func (e *BusError) Error() string {
	return fmt.Sprintf("mpu %s reg 0x%02x: %v", e.Op, e.Reg, e.Err)
}

// Unwrap returns the transport error.
func (e *BusError) Unwrap() error {
	return e.Err
}

// ConfigVerificationError reports an identity register mismatch after setup.
type ConfigVerificationError struct {
	Got  byte
	Want byte
}

// Error implements error.
func (e *ConfigVerificationError) Error() string {
	return fmt.Sprintf("mpu setup: whoami=0x%02X want 0x%02X", e.Got, e.Want)
}
