package env

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/way.go/pkg/mpu"
)

// SensorFile is the YAML document holding sensor settings:
//
//	config:
//	  lowpass: 3
//	  sample_rate_div: 4
//	  gyro_range: 3
//	  accel_range: 0
//	  beta: 0.1
//	offsets:
//	  accel: [0, 0, 0]
//	  gyro: [0, 0, 0]
type SensorFile struct {
	Config  mpu.Config  `yaml:"config"`
	Offsets mpu.Offsets `yaml:"offsets"`
}

// LoadSensorFile reads the file over the given defaults.
func LoadSensorFile(fn string, defaults mpu.Config) (*SensorFile, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	f := &SensorFile{Config: defaults}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	if err := f.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return f, nil
}
