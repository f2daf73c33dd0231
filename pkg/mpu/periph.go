package mpu

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// OpenI2C initializes the host drivers and opens the sensor on an I2C
// bus. An empty busName selects the first available bus.
func OpenI2C(busName string, addr uint16) (*Device, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	return NewDevice(&i2c.Dev{Addr: addr, Bus: bus}), bus, nil
}
