package env

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/way.go/pkg/attitude"
	"github.com/robotalks/way.go/pkg/control"
	fx "github.com/robotalks/way.go/pkg/framework"
	"github.com/robotalks/way.go/pkg/fusion"
	"github.com/robotalks/way.go/pkg/mpu"
	"github.com/robotalks/way.go/pkg/sim"
	"github.com/robotalks/way.go/pkg/telemetry"
	"github.com/robotalks/way.go/pkg/telemetry/mqtt"
	"github.com/robotalks/way.go/pkg/transport"
	"github.com/robotalks/way.go/pkg/ws"
)

// CalibrateTimeout bounds offset estimation at startup.
const CalibrateTimeout = 10 * time.Second

// Env is the assembled daemon.
type Env struct {
	Config    *Config
	Loop      *fx.Loop
	Device    *mpu.Device
	Scale     mpu.Scale
	Estimator *attitude.Estimator
	Server    *ws.Server
	Handler   *control.Handler
	Streamer  *telemetry.Streamer
	HTTP      *transport.HTTPServer
	Queue     *mqtt.Queue
	Publisher *telemetry.MQTTPublisher
	Serial    *transport.SerialLink

	closers []io.Closer
}

// NewEnv creates Env from config. Hardware is opened and configured.
func (c *Config) NewEnv() (*Env, error) {
	if c.Device == "" {
		c.Device = MachineID()
	}
	if c.SensorConfigFile != "" {
		f, err := LoadSensorFile(c.SensorConfigFile, c.Sensor)
		if err != nil {
			return nil, err
		}
		c.Sensor, c.Offsets = f.Config, f.Offsets
	}
	e := &Env{Config: c}
	if err := e.setupSensor(); err != nil {
		e.Close()
		return nil, err
	}
	if err := e.setupServices(); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

func (e *Env) setupSensor() error {
	c := e.Config
	if c.Simulate {
		s := sim.NewMPU6050(sim.Rocking{Amplitude: sim.AngleFromDegrees(5), Period: 2 * time.Second})
		e.Device = mpu.NewDevice(s)
	} else {
		dev, closer, err := mpu.OpenI2C(c.I2CBus, uint16(c.I2CAddr))
		if err != nil {
			return err
		}
		e.Device = dev
		e.closers = append(e.closers, closer)
	}
	scale, err := e.Device.Configure(c.Sensor)
	if err != nil {
		return err
	}
	e.Scale = scale
	if c.Calibrate > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), CalibrateTimeout)
		defer cancel()
		if c.Offsets, err = attitude.Calibrate(ctx, e.Device, scale, c.Calibrate); err != nil {
			return fmt.Errorf("calibrate: %w", err)
		}
	}
	var filter fusion.Filter
	if c.Fixed {
		filter = fusion.NewFixFilter(scale)
	} else {
		filter = fusion.NewFloatFilter(scale)
	}
	e.Estimator = attitude.NewEstimator(e.Device, filter, c.Offsets)
	glog.Infof("%s: %s fusion at %.0fHz", c.Device, filter.Numeric(), scale.Rate())
	return nil
}

func (e *Env) setupServices() error {
	c := e.Config
	e.Loop = fx.NewLoop(e.Scale.SamplePeriod)

	var pin control.Pin
	if c.LEDPin != "" {
		p, err := control.OpenPin(c.LEDPin)
		if err != nil {
			return err
		}
		pin = p
	}
	e.Handler = control.NewHandler(c.Device, pin, e.Estimator)
	e.Server = ws.NewServer(e.Handler, ws.Options{})
	e.Handler.Server = e.Server
	e.Streamer = &telemetry.Streamer{
		Device: c.Device,
		Source: e.Estimator,
		Sink:   e.Server,
		Every:  uint64(c.TelemetryEvery),
	}
	if c.ListenAddr != "" {
		e.HTTP = transport.NewHTTPServer(c.ListenAddr, c.Device, e.Server, e.Estimator)
	}
	if c.SerialPort != "" {
		e.Serial = transport.NewSerialLink(c.SerialPort, c.SerialBaud, e.Server)
	}
	if c.MQTTBrokerURL != "" {
		meta := &telemetry.DeviceMeta{
			Device:    c.Device,
			Numeric:   e.Estimator.Filter.Numeric(),
			RateHz:    e.Scale.Rate(),
			Simulated: c.Simulate,
		}
		q, err := telemetry.NewBrokerQueue(c.MQTTBrokerURL, meta)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		e.Queue = q
		e.Publisher = telemetry.NewMQTTPublisher(c.Device, e.Estimator, q, uint64(c.TelemetryEvery))
		e.Handler.Listeners = append(e.Handler.Listeners, e.Publisher)
		q.Sub(c.Device+"/"+telemetry.TopicLEDCommand, e.handleLEDCommand)
	}
	return nil
}

// handleLEDCommand runs on the MQTT client goroutine and forwards
// the command to the loop.
func (e *Env) handleLEDCommand(topic string, payload []byte) {
	level, ok := ParseLEDCommand(string(payload))
	if !ok {
		glog.Warningf("%s: invalid led command %q", topic, payload)
		return
	}
	e.Loop.PostMessage(&control.LEDCommand{Level: level})
	e.Loop.TriggerNext()
}

// ParseLEDCommand accepts on/off and the pin levels 0/1.
func ParseLEDCommand(s string) (byte, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "0":
		return control.LevelOn, true
	case "off", "1":
		return control.LevelOff, true
	}
	return 0, false
}

// AddToLoop adds controllers/runners to loop.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Estimator, e.Server, e.Handler, e.Streamer)
	if e.Publisher != nil {
		loop.Add(e.Publisher)
	}
	if e.Queue != nil {
		loop.AddRunnable(e.Queue)
	}
	if e.HTTP != nil {
		loop.AddRunnable(e.HTTP)
	}
	if e.Serial != nil {
		loop.AddRunnable(e.Serial)
	}
}

// Run runs the loop until ctx is done, then closes all clients and
// the hardware.
func (e *Env) Run(ctx context.Context) error {
	e.AddToLoop(e.Loop)
	err := e.Loop.Run(ctx)
	e.Server.CloseAll()
	e.Close()
	return err
}

// Close releases the hardware.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	for _, c := range e.closers {
		errs.Add(c.Close())
	}
	e.closers = nil
	return errs.Aggregate()
}
