// Package attitude runs the sensor read and fusion step of the control
// loop and shares the latest estimate with other goroutines.
package attitude

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/way.go/pkg/framework"
	"github.com/robotalks/way.go/pkg/fusion"
	"github.com/robotalks/way.go/pkg/mpu"
)

// Sensor is the part of mpu.Device used by the estimator.
type Sensor interface {
	ReadStatus() (mpu.IntStatus, error)
	ReadRaw() (mpu.RawSample, error)
}

// Snapshot is an immutable attitude estimate.
type Snapshot struct {
	Seq        uint64
	Time       time.Time
	Quaternion fusion.Quaternion
	// Roll, Pitch, Yaw in radians.
	Roll, Pitch, Yaw float64
	// Raw is the offset-corrected sample the estimate was updated with.
	Raw     mpu.RawSample
	Numeric string
}

// Gravity returns the estimated gravity direction in the sensor frame.
func (s *Snapshot) Gravity() [3]float64 {
	return s.Quaternion.Gravity()
}

// Estimator is a loop controller reading the sensor and updating the filter.
type Estimator struct {
	Sensor  Sensor
	Filter  fusion.Filter
	Offsets mpu.Offsets

	seq      uint64
	latest   atomic.Pointer[Snapshot]
	errors   atomic.Uint64
	rejected atomic.Uint64
}

// NewEstimator creates an Estimator.
func NewEstimator(sensor Sensor, filter fusion.Filter, offsets mpu.Offsets) *Estimator {
	return &Estimator{Sensor: sensor, Filter: filter, Offsets: offsets}
}

// AddToLoop implements framework.LoopAdder.
func (e *Estimator) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvSense, e)
}

// Control implements framework.Controller.
func (e *Estimator) Control(cc fx.ControlContext) error {
	_, err := e.Step(cc.Time())
	return err
}

// Step polls the sensor once and updates the estimate when a sample
// is ready. It reports whether a new snapshot was stored.
func (e *Estimator) Step(now time.Time) (bool, error) {
	st, err := e.Sensor.ReadStatus()
	if err != nil {
		return false, e.fail(err)
	}
	if !st.DataReady() {
		return false, nil
	}
	raw, err := e.Sensor.ReadRaw()
	if err != nil {
		return false, e.fail(err)
	}
	raw = mpu.ApplyOffsets(raw, e.Offsets)
	if !e.Filter.Update(raw) {
		e.rejected.Add(1)
		glog.V(2).Infof("attitude: sample rejected accel=%v gyro=%v", raw.Accel, raw.Gyro)
		return false, nil
	}
	e.seq++
	s := &Snapshot{
		Seq:        e.seq,
		Time:       now,
		Quaternion: e.Filter.Quaternion(),
		Raw:        raw,
		Numeric:    e.Filter.Numeric(),
	}
	s.Roll, s.Pitch, s.Yaw = s.Quaternion.Euler()
	e.latest.Store(s)
	return true, nil
}

func (e *Estimator) fail(err error) error {
	if n := e.errors.Add(1); n == 1 || n%100 == 0 {
		glog.Warningf("attitude: %v (%d errors)", err, n)
	}
	return fmt.Errorf("attitude: %w", err)
}

// Latest returns the last snapshot, nil before the first sample.
// It is safe for use from any goroutine.
func (e *Estimator) Latest() *Snapshot {
	return e.latest.Load()
}

// Errors counts failed sensor reads.
func (e *Estimator) Errors() uint64 {
	return e.errors.Load()
}

// Rejected counts samples the filter discarded.
func (e *Estimator) Rejected() uint64 {
	return e.rejected.Load()
}

// Reset restarts the filter from identity. Loop goroutine only.
func (e *Estimator) Reset() {
	e.Filter.Reset()
}

// Calibrate collects n samples with the sensor at rest and returns
// the offsets to apply. It polls the sensor every period.
func Calibrate(ctx context.Context, sensor Sensor, scale mpu.Scale, n int) (mpu.Offsets, error) {
	samples := make([]mpu.RawSample, 0, n)
	ticker := time.NewTicker(scale.SamplePeriod)
	defer ticker.Stop()
	for len(samples) < n {
		st, err := sensor.ReadStatus()
		if err != nil {
			return mpu.Offsets{}, err
		}
		if st.DataReady() {
			raw, err := sensor.ReadRaw()
			if err != nil {
				return mpu.Offsets{}, err
			}
			samples = append(samples, raw)
			continue
		}
		select {
		case <-ctx.Done():
			return mpu.Offsets{}, ctx.Err()
		case <-ticker.C:
		}
	}
	offsets := mpu.EstimateOffsets(samples, scale)
	glog.Infof("calibrated with %d samples: accel=%v gyro=%v", n, offsets.Accel, offsets.Gyro)
	return offsets, nil
}
