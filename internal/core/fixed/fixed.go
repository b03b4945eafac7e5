// Package fixed implements the signed Q32.32 fixed-point time format used
// throughout the engine. One unit equals one logical time step; rates and
// accumulators are Values, frame counts are whole int64 units.
package fixed

import (
	"math"
	"math/bits"
	"strconv"
)

// Value is a signed fixed-point number with 32 fractional bits.
type Value int64

const fracBits = 32

const (
	// Zero is the additive identity.
	Zero Value = 0
	// One is one whole time unit.
	One Value = 1 << fracBits
	// Half is one half unit, used by round-half-up.
	Half Value = 1 << (fracBits - 1)
)

// FromInt converts a whole number of units.
func FromInt(i int64) Value { return Value(i << fracBits) }

// FromFloat converts a float64, rounding to the nearest representable value.
func FromFloat(f float64) Value { return Value(math.Round(f * float64(One))) }

// Float64 converts back to a float64. Lossy beyond 2^52 units.
func (v Value) Float64() float64 { return float64(v) / float64(One) }

// Add returns v + o.
func (v Value) Add(o Value) Value { return v + o }

// Sub returns v - o.
func (v Value) Sub(o Value) Value { return v - o }

// Mul returns v * o. The product is formed in 128 bits before shifting back,
// so intermediate overflow cannot corrupt results that fit in a Value.
func (v Value) Mul(o Value) Value {
	neg := (v < 0) != (o < 0)
	hi, lo := bits.Mul64(abs(v), abs(o))
	m := hi<<(64-fracBits) | lo>>fracBits
	if neg {
		return Value(-int64(m))
	}
	return Value(int64(m))
}

// Div returns v / o, widening the dividend to 128 bits first.
// Division by zero panics, as integer division does.
func (v Value) Div(o Value) Value {
	if o == 0 {
		panic("fixed: division by zero")
	}
	neg := (v < 0) != (o < 0)
	a := abs(v)
	hi := a >> (64 - fracBits)
	lo := a << fracBits
	q, _ := bits.Div64(hi, lo, abs(o))
	if neg {
		return Value(-int64(q))
	}
	return Value(int64(q))
}

// Floor returns the largest whole unit count not greater than v.
func (v Value) Floor() int64 { return int64(v >> fracBits) }

// Ceil returns the smallest whole unit count not less than v.
func (v Value) Ceil() int64 { return int64((v + One - 1) >> fracBits) }

// Round returns the nearest whole unit count, halves rounding up
// (toward positive infinity, so Round(-0.5) == 0).
func (v Value) Round() int64 { return int64((v + Half) >> fracBits) }

// Frac returns the non-negative fractional residue, v - Floor(v) units.
func (v Value) Frac() Value { return v & (One - 1) }

func (v Value) String() string {
	return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
}

func abs(v Value) uint64 {
	if v < 0 {
		return uint64(-int64(v))
	}
	return uint64(v)
}
