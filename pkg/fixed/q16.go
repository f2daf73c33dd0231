// Package fixed provides Q16.16 fixed-point arithmetic for targets
// without a floating-point unit.
package fixed

import (
	"math"
	"math/bits"
	"strconv"
)

// Q16 is a signed fixed-point number with 16 fraction bits.
type Q16 int32

// Constants.
const (
	FracBits = 16

	One  Q16 = 1 << FracBits
	Half Q16 = One >> 1
	Max  Q16 = math.MaxInt32
	Min  Q16 = math.MinInt32

	// RawShift is the fraction width of the per-1024-LSB
	// conversion factors used by ScaleRaw.
	RawShift = 10
	// StepShift is the fraction width of per-count integration
	// factors, fine enough that the sample period is not quantized.
	StepShift = 24
)

// FromFloat converts f rounding to nearest, saturating at Min/Max.
func FromFloat(f float64) Q16 {
	if math.IsNaN(f) {
		return 0
	}
	return saturate(int64(math.Round(f * float64(One))))
}

// FromInt converts an integer, saturating at Min/Max.
func FromInt(i int32) Q16 {
	return saturate(int64(i) << FracBits)
}

// Float converts q to float64.
func (q Q16) Float() float64 {
	return float64(q) / float64(One)
}

// Float32 converts q to float32.
func (q Q16) Float32() float32 {
	return float32(q.Float())
}

// Add returns q+r, saturating.
func (q Q16) Add(r Q16) Q16 {
	return saturate(int64(q) + int64(r))
}

// Sub returns q-r, saturating.
func (q Q16) Sub(r Q16) Q16 {
	return saturate(int64(q) - int64(r))
}

// Mul returns q*r rounded half up, saturating.
func (q Q16) Mul(r Q16) Q16 {
	return saturate((int64(q)*int64(r) + int64(Half)) >> FracBits)
}

// Saturated reports whether q is pinned at either end of the range.
func (q Q16) Saturated() bool {
	return q == Max || q == Min
}

func (q Q16) String() string {
	return strconv.FormatFloat(q.Float(), 'f', 5, 64)
}

// InvSqrt returns 1/sqrt(q). It returns 0 when q <= 0 or the input is
// below the resolution of the computation.
func InvSqrt(q Q16) Q16 {
	if q <= 0 {
		return 0
	}
	// sqrt(q<<16) is sqrt(q) in Q16.
	s := isqrt(uint64(q) << FracBits)
	if s == 0 {
		return 0
	}
	v := ((uint64(1) << (2 * FracBits)) + s/2) / s
	if v > uint64(Max) {
		return Max
	}
	return Q16(v)
}

// ScaleRaw converts a raw sensor count with a factor expressed in
// units per 1024 counts.
func ScaleRaw(raw int16, perKLSB Q16) Q16 {
	return ScaleRawShift(raw, perKLSB, RawShift)
}

// ScaleRawShift converts a raw sensor count with a factor expressed in
// units per 2^shift counts, rounding to nearest.
func ScaleRawShift(raw int16, factor Q16, shift uint) Q16 {
	return saturate((int64(raw)*int64(factor) + 1<<(shift-1)) >> shift)
}

func isqrt(n uint64) uint64 {
	if n < 2 {
		return n
	}
	x := uint64(1) << ((bits.Len64(n) + 1) / 2)
	for {
		y := (x + n/x) / 2
		if y >= x {
			return x
		}
		x = y
	}
}

func saturate(v int64) Q16 {
	if v > int64(Max) {
		return Max
	}
	if v < int64(Min) {
		return Min
	}
	return Q16(v)
}
