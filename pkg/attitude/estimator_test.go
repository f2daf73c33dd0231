package attitude

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/way.go/pkg/framework"
	"github.com/robotalks/way.go/pkg/fusion"
	"github.com/robotalks/way.go/pkg/mpu"
	"github.com/robotalks/way.go/pkg/sim"
)

func simDevice(t *testing.T, motion sim.Motion, bias mpu.Offsets, frozen bool) (*sim.MPU6050, *mpu.Device, mpu.Scale) {
	s := sim.NewMPU6050(motion)
	s.Bias = bias
	if frozen {
		s.Now = func() time.Time { return time.Unix(0, 0) }
	}
	dev := mpu.NewDevice(s)
	scale, err := dev.Configure(mpu.DefaultConfig())
	require.NoError(t, err)
	return s, dev, scale
}

func TestEstimatorStep(t *testing.T) {
	bias := mpu.Offsets{Accel: [3]int16{30, -20, 10}, Gyro: [3]int16{5, 5, -5}}
	s, dev, scale := simDevice(t, sim.Still(0), bias, true)
	e := NewEstimator(dev, fusion.NewFloatFilter(scale), bias)

	ok, err := e.Step(time.Now())
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, e.Latest())

	s.Step()
	ok, err = e.Step(time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	snap := e.Latest()
	require.NotNil(t, snap)
	require.Equal(t, uint64(1), snap.Seq)
	require.Equal(t, "float32", snap.Numeric)
	require.Equal(t, [3]int16{0, 0, 16384}, snap.Raw.Accel)
	require.Equal(t, [3]int16{}, snap.Raw.Gyro)
	require.InDelta(t, 1, snap.Quaternion.Norm(), 1e-6)
	require.InDelta(t, 1, snap.Gravity()[2], 1e-6)

	// already consumed
	ok, err = e.Step(time.Now())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, uint64(1), e.Latest().Seq)
}

type failingSensor struct {
	statusErr, rawErr error
}

func (s *failingSensor) ReadStatus() (mpu.IntStatus, error) {
	return mpu.StatusDataReady, s.statusErr
}

func (s *failingSensor) ReadRaw() (mpu.RawSample, error) {
	return mpu.RawSample{}, s.rawErr
}

func TestEstimatorErrors(t *testing.T) {
	errBus := errors.New("nack")
	scale, err := mpu.DefaultConfig().Scale()
	require.NoError(t, err)
	testCases := []struct {
		name   string
		sensor *failingSensor
	}{
		{"status", &failingSensor{statusErr: &mpu.BusError{Op: "read", Reg: mpu.RegIntStatus, Err: errBus}}},
		{"raw", &failingSensor{rawErr: &mpu.BusError{Op: "read", Reg: mpu.RegAccelXOutH, Err: errBus}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEstimator(tc.sensor, fusion.NewFixFilter(scale), mpu.Offsets{})
			ok, err := e.Step(time.Now())
			require.False(t, ok)
			require.True(t, errors.Is(err, errBus))
			var berr *mpu.BusError
			require.True(t, errors.As(err, &berr))
			require.Equal(t, uint64(1), e.Errors())
			require.Nil(t, e.Latest())
		})
	}
}

func TestEstimatorZeroAccel(t *testing.T) {
	scale, err := mpu.DefaultConfig().Scale()
	require.NoError(t, err)
	// all-zero sample: no gyro motion, zero accel skips the correction
	e := NewEstimator(&failingSensor{}, fusion.NewFloatFilter(scale), mpu.Offsets{})
	ok, err := e.Step(time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fusion.Quaternion{W: 1}, e.Latest().Quaternion)
}

func TestEstimatorInLoop(t *testing.T) {
	s, dev, scale := simDevice(t, sim.Rocking{Amplitude: sim.AngleFromDegrees(5), Period: time.Second}, mpu.Offsets{}, true)
	e := NewEstimator(dev, fusion.NewFixFilter(scale), mpu.Offsets{})
	loop := fx.NewLoop(scale.SamplePeriod).Add(e)

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		var last uint64
		for {
			select {
			case <-done:
				return
			default:
			}
			if snap := e.Latest(); snap != nil {
				if snap.Seq < last {
					t.Errorf("sequence went back: %d < %d", snap.Seq, last)
				}
				last = snap.Seq
			}
		}
	}()
	for i := 0; i < 200; i++ {
		s.Step()
		loop.RunOnce(context.Background())
	}
	close(done)
	wg.Wait()
	snap := e.Latest()
	require.Equal(t, uint64(200), snap.Seq)
	require.Equal(t, "q16", snap.Numeric)
	want, _ := s.Motion.Pitch(s.Elapsed())
	require.InDelta(t, want.Radians(), snap.Pitch, 0.05)
}

func TestCalibrate(t *testing.T) {
	bias := mpu.Offsets{Accel: [3]int16{-40, 25, 90}, Gyro: [3]int16{-3, 8, 1}}
	_, dev, scale := simDevice(t, sim.Still(0), bias, false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	offsets, err := Calibrate(ctx, dev, scale, 4)
	require.NoError(t, err)
	require.Equal(t, bias, offsets)
}

func TestCalibrateCanceled(t *testing.T) {
	_, dev, scale := simDevice(t, sim.Still(0), mpu.Offsets{}, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Calibrate(ctx, dev, scale, 1)
	require.Equal(t, context.Canceled, err)
}
