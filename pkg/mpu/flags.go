package mpu

import (
	"fmt"
	"strings"
)

// PowerFlags is the value of PWR_MGMT_1.
// The low 3 bits select the clock source.
type PowerFlags byte

// Power management bits.
const (
	ClockInternal PowerFlags = 0
	ClockPLLGyroX PowerFlags = 1
	ClockPLLGyroY PowerFlags = 2
	ClockPLLGyroZ PowerFlags = 3

	PowerTempDisable PowerFlags = 1 << 3
	PowerCycle       PowerFlags = 1 << 5
	PowerSleep       PowerFlags = 1 << 6
	PowerReset       PowerFlags = 1 << 7

	clockMask PowerFlags = 7
)

// Clock returns the selected clock source.
func (f PowerFlags) Clock() PowerFlags {
	return f & clockMask
}

// Has tests all bits in mask are set.
func (f PowerFlags) Has(mask PowerFlags) bool {
	return f&mask == mask
}

func (f PowerFlags) String() string {
	s := formatFlags(byte(f&^clockMask), powerFlagNames)
	return fmt.Sprintf("clk=%d|%s", f.Clock(), s)
}

// IntPinFlags is the value of INT_PIN_CFG.
type IntPinFlags byte

// Interrupt pin behavior bits.
const (
	// IntActiveLow makes the INT pin active low.
	IntActiveLow IntPinFlags = 1 << 7
	// IntOpenDrain configures the INT pin as open drain.
	IntOpenDrain IntPinFlags = 1 << 6
	// IntLatch holds the INT pin until cleared.
	IntLatch IntPinFlags = 1 << 5
	// IntReadClear clears the interrupt status on any register read.
	IntReadClear IntPinFlags = 1 << 4
)

// Has tests all bits in mask are set.
func (f IntPinFlags) Has(mask IntPinFlags) bool {
	return f&mask == mask
}

func (f IntPinFlags) String() string {
	return formatFlags(byte(f), intPinFlagNames)
}

// IntEnableFlags is the value of INT_ENABLE.
type IntEnableFlags byte

// Interrupt sources.
const (
	IntDataReady    IntEnableFlags = 1
	IntI2CMaster    IntEnableFlags = 1 << 3
	IntFIFOOverflow IntEnableFlags = 1 << 4
	IntMotion       IntEnableFlags = 1 << 6
)

// Has tests all bits in mask are set.
func (f IntEnableFlags) Has(mask IntEnableFlags) bool {
	return f&mask == mask
}

func (f IntEnableFlags) String() string {
	return formatFlags(byte(f), intEnableFlagNames)
}

// IntStatus is the value of INT_STATUS.
type IntStatus byte

// Interrupt status bits.
const (
	StatusDataReady    IntStatus = 1
	StatusI2CMaster    IntStatus = 1 << 3
	StatusFIFOOverflow IntStatus = 1 << 4
	StatusMotion       IntStatus = 1 << 6
)

// DataReady indicates a new sample is available.
func (s IntStatus) DataReady() bool {
	return s&StatusDataReady != 0
}

// Has tests all bits in mask are set.
func (s IntStatus) Has(mask IntStatus) bool {
	return s&mask == mask
}

func (s IntStatus) String() string {
	return formatFlags(byte(s), intStatusNames)
}

type flagName struct {
	bit  byte
	name string
}

var (
	powerFlagNames = []flagName{
		{byte(PowerReset), "RESET"},
		{byte(PowerSleep), "SLEEP"},
		{byte(PowerCycle), "CYCLE"},
		{byte(PowerTempDisable), "TEMP_DIS"},
	}
	intPinFlagNames = []flagName{
		{byte(IntActiveLow), "ACTL"},
		{byte(IntOpenDrain), "OPEN"},
		{byte(IntLatch), "LATCH"},
		{byte(IntReadClear), "RD_CLEAR"},
	}
	intEnableFlagNames = []flagName{
		{byte(IntMotion), "MOT_EN"},
		{byte(IntFIFOOverflow), "FIFO_OFLOW_EN"},
		{byte(IntI2CMaster), "I2C_MST_INT_EN"},
		{byte(IntDataReady), "DATA_RDY_EN"},
	}
	intStatusNames = []flagName{
		{byte(StatusMotion), "MOT_INT"},
		{byte(StatusFIFOOverflow), "FIFO_OFLOW_INT"},
		{byte(StatusI2CMaster), "I2C_MST_INT"},
		{byte(StatusDataReady), "DATA_RDY_INT"},
	}
)

func formatFlags(v byte, names []flagName) string {
	var parts []string
	for _, n := range names {
		if v&n.bit != 0 {
			parts = append(parts, n.name)
			v &^= n.bit
		}
	}
	if v != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", v))
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}
