// Package control handles the demo messages from clients: LED switching
// and orientation queries.
package control

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Pin is the LED output. periph gpio.PinOut satisfies it.
type Pin interface {
	Out(l gpio.Level) error
}

// LED levels. The LED is wired active low.
const (
	LevelOn  byte = 0
	LevelOff byte = 1
)

func pinLevel(level byte) gpio.Level {
	return gpio.Level(level != LevelOn)
}

// OpenPin looks up a GPIO by name, e.g. "GPIO17", and drives it high
// (LED off).
func OpenPin(name string) (Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	if err := p.Out(gpio.High); err != nil {
		return nil, err
	}
	return p, nil
}
