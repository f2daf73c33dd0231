// Package env builds the daemon from flags and environment variables.
package env

import (
	"flag"
	"os"
	"strconv"

	"github.com/robotalks/way.go/pkg/mpu"
	"github.com/robotalks/way.go/pkg/telemetry"
)

// Config provides the options to set up the daemon.
type Config struct {
	// Device names the robot in telemetry and MQTT topics.
	Device string
	// ListenAddr is the HTTP listen address, empty disables HTTP.
	ListenAddr string
	// MQTTBrokerURL specifies the MQTT broker, empty disables MQTT.
	// e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL string

	I2CBus  string
	I2CAddr uint
	// Simulate replaces the sensor by pkg/sim.
	Simulate bool
	// Fixed selects the Q16.16 fusion backend.
	Fixed bool
	// SensorConfigFile is a YAML SensorFile.
	SensorConfigFile string
	// Calibrate collects this many samples at startup to estimate offsets.
	Calibrate int

	TelemetryEvery uint
	LEDPin         string
	SerialPort     string
	SerialBaud     uint

	Sensor  mpu.Config
	Offsets mpu.Offsets
}

var defaultConfig = Config{
	ListenAddr:     ":80",
	I2CAddr:        uint(mpu.DefaultAddr),
	TelemetryEvery: telemetry.DefaultEvery,
	SerialBaud:     115200,
	Sensor:         mpu.DefaultConfig(),
}

func init() {
	if val := os.Getenv("WAY_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("WAY_LISTEN"); val != "" {
		defaultConfig.ListenAddr = val
	}
	if val := os.Getenv("WAY_I2C_BUS"); val != "" {
		defaultConfig.I2CBus = val
	}
	if val := os.Getenv("WAY_SENSOR_CONFIG"); val != "" {
		defaultConfig.SensorConfigFile = val
	}
	if val, err := strconv.ParseBool(os.Getenv("WAY_SIM")); err == nil {
		defaultConfig.Simulate = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "id", defaultConfig.Device, "Device ID, machine ID by default")
	flag.StringVar(&defaultConfig.ListenAddr, "listen", defaultConfig.ListenAddr, "HTTP listen address")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.I2CBus, "i2c-bus", defaultConfig.I2CBus, "I2C bus name")
	flag.UintVar(&defaultConfig.I2CAddr, "i2c-addr", defaultConfig.I2CAddr, "Sensor I2C address")
	flag.BoolVar(&defaultConfig.Simulate, "sim", defaultConfig.Simulate, "Use the simulated sensor")
	flag.BoolVar(&defaultConfig.Fixed, "fixed", defaultConfig.Fixed, "Use fixed-point fusion")
	flag.StringVar(&defaultConfig.SensorConfigFile, "sensor-config", defaultConfig.SensorConfigFile, "Sensor config YAML file")
	flag.IntVar(&defaultConfig.Calibrate, "calibrate", defaultConfig.Calibrate, "Samples to estimate offsets at startup, 0 disables")
	flag.UintVar(&defaultConfig.TelemetryEvery, "telemetry-every", defaultConfig.TelemetryEvery, "Cycles between telemetry broadcasts")
	flag.StringVar(&defaultConfig.LEDPin, "led-pin", defaultConfig.LEDPin, "LED GPIO name, e.g. GPIO17")
	flag.StringVar(&defaultConfig.SerialPort, "serial", defaultConfig.SerialPort, "Serial port attached as a client")
	flag.UintVar(&defaultConfig.SerialBaud, "serial-baud", defaultConfig.SerialBaud, "Serial baud rate")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}
