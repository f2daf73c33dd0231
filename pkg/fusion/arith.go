package fusion

import (
	"math"

	"github.com/robotalks/way.go/pkg/fixed"
)

// Arith is the numeric backend the filter is written against.
type Arith[T any] interface {
	FromFloat(float64) T
	ToFloat(T) float64
	Add(a, b T) T
	Sub(a, b T) T
	Mul(a, b T) T
	// InvSqrt returns 1/sqrt(v) for v > 0.
	InvSqrt(v T) T
	IsZero(T) bool
	// Valid rejects NaN, infinities and saturated values.
	Valid(T) bool
}

// Float is the float32 backend.
type Float struct{}

// FromFloat implements Arith.
func (Float) FromFloat(f float64) float32 { return float32(f) }

// ToFloat implements Arith.
func (Float) ToFloat(v float32) float64 { return float64(v) }

// Add implements Arith.
func (Float) Add(a, b float32) float32 { return a + b }

// Sub implements Arith.
func (Float) Sub(a, b float32) float32 { return a - b }

// Mul implements Arith.
func (Float) Mul(a, b float32) float32 { return a * b }

// InvSqrt implements Arith.
func (Float) InvSqrt(v float32) float32 { return float32(1 / math.Sqrt(float64(v))) }

// IsZero implements Arith.
func (Float) IsZero(v float32) bool { return v == 0 }

// Valid implements Arith.
func (Float) Valid(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Fix is the Q16.16 backend.
type Fix struct{}

// FromFloat implements Arith.
func (Fix) FromFloat(f float64) fixed.Q16 { return fixed.FromFloat(f) }

// ToFloat implements Arith.
func (Fix) ToFloat(v fixed.Q16) float64 { return v.Float() }

// Add implements Arith.
func (Fix) Add(a, b fixed.Q16) fixed.Q16 { return a.Add(b) }

// Sub implements Arith.
func (Fix) Sub(a, b fixed.Q16) fixed.Q16 { return a.Sub(b) }

// Mul implements Arith.
func (Fix) Mul(a, b fixed.Q16) fixed.Q16 { return a.Mul(b) }

// InvSqrt implements Arith.
func (Fix) InvSqrt(v fixed.Q16) fixed.Q16 { return fixed.InvSqrt(v) }

// IsZero implements Arith.
func (Fix) IsZero(v fixed.Q16) bool { return v == 0 }

// Valid implements Arith.
func (Fix) Valid(v fixed.Q16) bool { return !v.Saturated() }
