package fusion

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/way.go/pkg/fixed"
	"github.com/robotalks/way.go/pkg/mpu"
)

func defaultScale(t *testing.T) mpu.Scale {
	s, err := mpu.DefaultConfig().Scale()
	require.NoError(t, err)
	return s
}

func clamp16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(math.Round(v))
}

func rawSample(s mpu.Scale, gyro, accel [3]float64) (r mpu.RawSample) {
	for i := 0; i < 3; i++ {
		r.Gyro[i] = clamp16(gyro[i] / s.GyroRadPerLSB)
		r.Accel[i] = clamp16(accel[i] / s.AccelGPerLSB)
	}
	return
}

// motion integrates body rates and produces consistent sensor samples.
type motion struct {
	q Quaternion
}

func (m *motion) step(w [3]float64, dt float64) {
	n := math.Sqrt(w[0]*w[0] + w[1]*w[1] + w[2]*w[2])
	m.q = m.q.Mul(FromAxisAngle(w, n*dt))
}

func rates(i int, dt float64) [3]float64 {
	t := float64(i) * dt
	return [3]float64{0.5 * math.Sin(t), 0.3 * math.Cos(0.7*t), 0.2}
}

func TestNormStaysUnit(t *testing.T) {
	s := defaultScale(t)
	filters := []struct {
		f   Filter
		tol float64
	}{
		{NewFloatFilter(s), 1e-5},
		{NewFixFilter(s), 2e-3},
	}
	for _, tc := range filters {
		t.Run(tc.f.Numeric(), func(t *testing.T) {
			rnd := rand.New(rand.NewSource(1))
			for i := 0; i < 3000; i++ {
				var gyro, accel [3]float64
				for n := range gyro {
					gyro[n] = (rnd.Float64()*2 - 1) * 30
					accel[n] = (rnd.Float64()*2 - 1) * 1.9
				}
				tc.f.Update(rawSample(s, gyro, accel))
				require.InDeltaf(t, 1, tc.f.Quaternion().Norm(), tc.tol, "cycle %d", i)
			}
		})
	}
}

func TestFixMatchesFloat(t *testing.T) {
	s := defaultScale(t)
	ff, xf := NewFloatFilter(s), NewFixFilter(s)
	m := &motion{q: Quaternion{W: 1}}
	dt := s.Period()
	for i := 0; i < 1000; i++ {
		w := rates(i, dt)
		m.step(w, dt)
		sample := rawSample(s, w, m.q.Gravity())
		require.True(t, ff.Update(sample))
		require.True(t, xf.Update(sample))
		a, b := ff.Quaternion(), xf.Quaternion()
		require.InDeltaf(t, a.W, b.W, 2e-2, "cycle %d", i)
		require.InDeltaf(t, a.X, b.X, 2e-2, "cycle %d", i)
		require.InDeltaf(t, a.Y, b.Y, 2e-2, "cycle %d", i)
		require.InDeltaf(t, a.Z, b.Z, 2e-2, "cycle %d", i)
	}
	// both track the true attitude on roll and pitch
	roll, pitch, _ := m.q.Euler()
	for _, f := range []Filter{ff, xf} {
		r, p, _ := f.Quaternion().Euler()
		require.InDelta(t, roll, r, 0.05)
		require.InDelta(t, pitch, p, 0.05)
	}
}

func TestFixMatchesFloatFullScale(t *testing.T) {
	type rangeCase struct {
		name    string
		lowpass mpu.Lowpass
		gyro    mpu.GyroRange
		accel   mpu.AccelRange
	}
	var ranges []rangeCase
	for g := mpu.GyroRange(0); g <= 3; g++ {
		for a := mpu.AccelRange(0); a <= 3; a++ {
			ranges = append(ranges, rangeCase{fmt.Sprintf("gyro%d accel%d", g, a), 1, g, a})
		}
	}
	ranges = append(ranges,
		rangeCase{"unfiltered gyro0", 0, 0, 0},
		rangeCase{"unfiltered gyro3", 0, 3, 3})
	const rate = 29490 // 0.9 of full scale
	for _, rc := range ranges {
		for axis := 0; axis < 3; axis++ {
			for _, sign := range []int16{1, -1} {
				t.Run(fmt.Sprintf("%s axis%d %+d", rc.name, axis, sign), func(t *testing.T) {
					conf := mpu.DefaultConfig()
					conf.Lowpass, conf.GyroRange, conf.AccelRange = rc.lowpass, rc.gyro, rc.accel
					s, err := conf.Scale()
					require.NoError(t, err)
					ff, xf := NewFloatFilter(s), NewFixFilter(s)
					m := &motion{q: Quaternion{W: 1}}
					var w [3]float64
					var sample mpu.RawSample
					sample.Gyro[axis] = sign * rate
					w[axis] = float64(sample.Gyro[axis]) * s.GyroRadPerLSB
					dt := s.Period()
					for i := 0; i < 1000; i++ {
						m.step(w, dt)
						sample.Accel = rawSample(s, [3]float64{}, m.q.Gravity()).Accel
						require.True(t, ff.Update(sample))
						require.True(t, xf.Update(sample))
						a, b := ff.Quaternion(), xf.Quaternion()
						require.InDeltaf(t, a.W, b.W, 2e-2, "cycle %d", i)
						require.InDeltaf(t, a.X, b.X, 2e-2, "cycle %d", i)
						require.InDeltaf(t, a.Y, b.Y, 2e-2, "cycle %d", i)
						require.InDeltaf(t, a.Z, b.Z, 2e-2, "cycle %d", i)
					}
				})
			}
		}
	}
}

func TestGyroStep(t *testing.T) {
	s := defaultScale(t)
	raw := [3]int16{1, -29490, math.MaxInt16}
	fs := floatConv{s}.GyroStep(raw)
	xs := fixConv{s}.GyroStep(raw)
	for i, r := range raw {
		want := float64(r) * s.GyroRadPerLSB * s.Period() / 2
		require.InEpsilon(t, want, float64(fs[i]), 1e-6)
		require.InDelta(t, want, xs[i].Float(), 1.0/float64(fixed.One))
	}
}

func TestFilterBeta(t *testing.T) {
	conf := mpu.DefaultConfig()
	s, err := conf.Scale()
	require.NoError(t, err)
	require.Equal(t, float32(0.1), NewFloatFilter(s).Beta)
	require.Equal(t, s.BetaFix, NewFixFilter(s).Beta)

	conf.CorrectedBeta = 0.033
	s, err = conf.Scale()
	require.NoError(t, err)
	require.Equal(t, float32(0.033), NewFloatFilter(s).Beta)
	require.Equal(t, s.CorrectedBetaFix, NewFixFilter(s).Beta)
	require.NotEqual(t, s.BetaFix, s.CorrectedBetaFix)
}

func TestConvergesToGravity(t *testing.T) {
	s := defaultScale(t)
	tilt := FromAxisAngle([3]float64{1, 0, 0}, math.Pi/6)
	sample := rawSample(s, [3]float64{}, tilt.Gravity())
	for _, f := range []Filter{NewFloatFilter(s), NewFixFilter(s)} {
		t.Run(f.Numeric(), func(t *testing.T) {
			for i := 0; i < 2000; i++ {
				f.Update(sample)
			}
			roll, pitch, _ := f.Quaternion().Euler()
			require.InDelta(t, math.Pi/6, roll, math.Pi/180)
			require.InDelta(t, 0, pitch, math.Pi/180)
		})
	}
}

func TestZeroAccelSkipsCorrection(t *testing.T) {
	q0 := Quat[float32]{W: 0.9659258, X: 0.258819}
	gyro := [3]float32{0.1, -0.2, 0.3}
	beta, dt := float32(0.1), float32(0.005)

	gyroOnly, ok := Update[float32](Float{}, q0, gyro, [3]float32{0, 0.5, 0.2}, 0, dt)
	require.True(t, ok)
	got, ok := Update[float32](Float{}, q0, gyro, [3]float32{}, beta, dt)
	require.True(t, ok)
	require.Equal(t, gyroOnly, got)

	still, ok := Update[float32](Float{}, q0, [3]float32{}, [3]float32{}, beta, dt)
	require.True(t, ok)
	require.InDelta(t, float64(q0.W), float64(still.W), 1e-6)
	require.InDelta(t, float64(q0.X), float64(still.X), 1e-6)

	xq, ok := Update[fixed.Q16](Fix{}, Identity[fixed.Q16](Fix{}), [3]fixed.Q16{}, [3]fixed.Q16{}, fixed.FromFloat(0.1), fixed.FromFloat(0.005))
	require.True(t, ok)
	require.Equal(t, Identity[fixed.Q16](Fix{}), xq)
}

func TestInvalidHoldsPrevious(t *testing.T) {
	t.Run("float NaN", func(t *testing.T) {
		f := NewMadgwick[float32]("float32", Float{}, nil, 0.1, 0.005)
		nan := float32(math.NaN())
		require.False(t, f.UpdateState([3]float32{nan, 0, 0}, [3]float32{0, 0, 1}))
		require.Equal(t, Identity[float32](Float{}), f.State())
		require.Equal(t, uint64(1), f.Rejected())
		require.True(t, f.UpdateState([3]float32{0.1, 0, 0}, [3]float32{0, 0, 1}))
		require.Equal(t, uint64(1), f.Rejected())
	})
	t.Run("fixed saturation", func(t *testing.T) {
		f := NewMadgwick[fixed.Q16]("q16", Fix{}, nil, fixed.FromFloat(0.1), fixed.FromInt(1000))
		require.False(t, f.UpdateState([3]fixed.Q16{fixed.FromInt(1000)}, [3]fixed.Q16{}))
		require.Equal(t, Identity[fixed.Q16](Fix{}), f.State())
	})
}

func TestEuler(t *testing.T) {
	testCases := []struct {
		name             string
		q                Quaternion
		roll, pitch, yaw float64
	}{
		{"identity", Quaternion{W: 1}, 0, 0, 0},
		{"roll", FromAxisAngle([3]float64{1, 0, 0}, 0.3), 0.3, 0, 0},
		{"pitch", FromAxisAngle([3]float64{0, 1, 0}, -0.4), 0, -0.4, 0},
		{"yaw", FromAxisAngle([3]float64{0, 0, 1}, 1.2), 0, 0, 1.2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, p, y := tc.q.Euler()
			require.InDelta(t, tc.roll, r, 1e-9)
			require.InDelta(t, tc.pitch, p, 1e-9)
			require.InDelta(t, tc.yaw, y, 1e-9)
			require.InDelta(t, 1, tc.q.Norm(), 1e-12)
		})
	}
}

func TestReset(t *testing.T) {
	s := defaultScale(t)
	f := NewFixFilter(s)
	f.Update(rawSample(s, [3]float64{1, 2, 3}, [3]float64{0, 0, 1}))
	require.NotEqual(t, Quaternion{W: 1}, f.Quaternion())
	f.Reset()
	require.Equal(t, Quaternion{W: 1}, f.Quaternion())
}
