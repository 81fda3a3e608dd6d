// Package nmath provides the extended-real numeric primitives NOMAD builds
// on: Double (a float64 that can also be +/-infinity or explicitly
// undefined), Point and Direction vectors over Double, and granularity-aware
// rounding and comparison.
package nmath

import "math"

// Eps is the process-wide comparison epsilon used by Double equality and
// weak ordering. It mirrors NOMAD's default 1e-13 tolerance.
var Eps = 1e-13

// Double is an extended real: a finite float64, +Inf, -Inf, or explicitly
// undefined. Arithmetic on an undefined operand always yields undefined.
type Double struct {
	val     float64
	defined bool
}

// NewDouble returns a defined Double wrapping v.
func NewDouble(v float64) Double { return Double{val: v, defined: true} }

// Undefined returns the undefined Double.
func Undefined() Double { return Double{} }

// Inf returns +Inf (sign>=0) or -Inf (sign<0) as a defined Double.
func Inf(sign int) Double {
	if sign < 0 {
		return Double{val: math.Inf(-1), defined: true}
	}
	return Double{val: math.Inf(1), defined: true}
}

// IsDefined reports whether d holds a real (possibly infinite) value.
func (d Double) IsDefined() bool { return d.defined }

// Value returns the underlying float64. It is only meaningful when
// IsDefined is true; an undefined Double returns NaN.
func (d Double) Value() float64 {
	if !d.defined {
		return math.NaN()
	}
	return d.val
}

// IsInf reports whether d is a defined, infinite value.
func (d Double) IsInf() bool { return d.defined && math.IsInf(d.val, 0) }

// IsFinite reports whether d is a defined, finite value.
func (d Double) IsFinite() bool { return d.defined && !math.IsInf(d.val, 0) }

func (d Double) propagate2(o Double, f func(a, b float64) float64) Double {
	if !d.defined || !o.defined {
		return Undefined()
	}
	return NewDouble(f(d.val, o.val))
}

// Add returns d+o, propagating undefined.
func (d Double) Add(o Double) Double { return d.propagate2(o, func(a, b float64) float64 { return a + b }) }

// Sub returns d-o, propagating undefined.
func (d Double) Sub(o Double) Double { return d.propagate2(o, func(a, b float64) float64 { return a - b }) }

// Mul returns d*o, propagating undefined.
func (d Double) Mul(o Double) Double { return d.propagate2(o, func(a, b float64) float64 { return a * b }) }

// Div returns d/o, propagating undefined. Division by zero yields undefined
// rather than +/-Inf or NaN.
func (d Double) Div(o Double) Double {
	if !d.defined || !o.defined || o.val == 0 {
		return Undefined()
	}
	return NewDouble(d.val / o.val)
}

// Abs returns the absolute value, propagating undefined.
func (d Double) Abs() Double {
	if !d.defined {
		return Undefined()
	}
	return NewDouble(math.Abs(d.val))
}

// Equal reports a==b within Eps, using a process-wide, scale-sensitive
// comparison. Two undefined values are not equal to anything, including
// each other, matching the convention that "undefined" never compares true.
func (d Double) Equal(o Double) bool {
	if !d.defined || !o.defined {
		return false
	}
	if math.IsInf(d.val, 0) || math.IsInf(o.val, 0) {
		return d.val == o.val
	}
	return math.Abs(d.val-o.val) <= Eps*math.Max(1, math.Max(math.Abs(d.val), math.Abs(o.val)))
}

// Lt reports whether d < o, treating undefined as incomparable (always
// returns false if either operand is undefined).
func (d Double) Lt(o Double) bool {
	if !d.defined || !o.defined {
		return false
	}
	return d.val < o.val && !d.Equal(o)
}

// Leq reports whether d <= o (d < o or d == o).
func (d Double) Leq(o Double) bool { return d.Lt(o) || d.Equal(o) }

// WeakLess is a total preorder consistent with Eps: it rounds both operands
// to the nearest multiple of Eps before comparing, so values within Eps of
// each other compare equal under it. Used for cache/ordering keys where a
// strict, reproducible order is required even among near-equal Doubles.
func (d Double) WeakLess(o Double) bool {
	if !d.defined {
		return o.defined
	}
	if !o.defined {
		return false
	}
	ra := math.Round(d.val / Eps)
	rb := math.Round(o.val / Eps)
	return ra < rb
}

// IsMultipleOf reports whether d is an integer multiple of granularity gamma
// (gamma>0), within a tolerance scaled by max(|d|,1).
func (d Double) IsMultipleOf(gamma float64) bool {
	if !d.defined || gamma <= 0 {
		return false
	}
	ratio := d.val / gamma
	rem := ratio - math.Round(ratio)
	return math.Abs(rem) <= Eps*math.Max(math.Abs(d.val), 1)
}

// RoundToGranularity rounds d to the nearest multiple of gamma using
// banker's (round-half-to-even) rounding on d/gamma. gamma<=0 returns d
// unchanged (the coordinate is continuous, not granular).
func (d Double) RoundToGranularity(gamma float64) Double {
	if !d.defined || gamma <= 0 {
		return d
	}
	ratio := d.val / gamma
	return NewDouble(roundEven(ratio) * gamma)
}

// roundEven implements banker's rounding: ties round to the nearest even
// integer rather than always away from zero.
func roundEven(x float64) float64 {
	floor := math.Floor(x)
	diff := x - floor
	switch {
	case diff < 0.5:
		return floor
	case diff > 0.5:
		return floor + 1
	default:
		if math.Mod(floor, 2) == 0 {
			return floor
		}
		return floor + 1
	}
}

// DisplayPrecision returns the number of decimal digits appropriate for
// displaying a value with granularity gamma: -log10(gamma), floored at 0.
// gamma<=0 (continuous) returns a generic default precision.
func DisplayPrecision(gamma float64) int {
	if gamma <= 0 {
		return 8
	}
	p := -math.Log10(gamma)
	if p < 0 {
		return 0
	}
	return int(math.Round(p))
}
