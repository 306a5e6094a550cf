// Copyright 2025 Constellation 2.0
//
// Package decimalcodec implements the Deterministic Artifact Kernel's
// decimal-only numeric discipline: strict parsing that forbids binary
// floats, NaN, and scientific notation, and fixed-precision quantization
// with ROUND_HALF_UP / ROUND_FLOOR / ROUND_CEILING semantics.
//
// Decimal is backed by math/big.Rat so arithmetic never loses precision
// silently; every quantize operation is the single, explicit point where
// precision is deliberately reduced to a fixed number of decimal places.
package decimalcodec

import (
	"math/big"
	"strings"
)

// Decimal is an exact rational number used throughout the kernel in place
// of any binary float. The zero value is 0.
type Decimal struct {
	r *big.Rat
}

func fromRat(r *big.Rat) Decimal {
	return Decimal{r: r}
}

// Zero returns the Decimal 0.
func Zero() Decimal { return Decimal{r: new(big.Rat)} }

// Sign returns -1, 0, or 1 matching the sign of d.
func (d Decimal) Sign() int {
	if d.r == nil {
		return 0
	}
	return d.r.Sign()
}

// Cmp compares d to other: -1, 0, 1.
func (d Decimal) Cmp(other Decimal) int {
	return d.ratOrZero().Cmp(other.ratOrZero())
}

func (d Decimal) ratOrZero() *big.Rat {
	if d.r == nil {
		return new(big.Rat)
	}
	return d.r
}

// Add returns the exact sum d + other.
func (d Decimal) Add(other Decimal) Decimal {
	out := new(big.Rat).Add(d.ratOrZero(), other.ratOrZero())
	return fromRat(out)
}

// Sub returns the exact difference d - other.
func (d Decimal) Sub(other Decimal) Decimal {
	out := new(big.Rat).Sub(d.ratOrZero(), other.ratOrZero())
	return fromRat(out)
}

// Mul returns the exact product d * other.
func (d Decimal) Mul(other Decimal) Decimal {
	out := new(big.Rat).Mul(d.ratOrZero(), other.ratOrZero())
	return fromRat(out)
}

// Quo returns the exact quotient d / other. Callers must check
// other.Sign() != 0 first; Quo panics on division by zero exactly as
// big.Rat.Quo does, which is appropriate here since a zero tick or zero
// divisor is always a programmer/input error the caller validates before
// calling.
func (d Decimal) Quo(other Decimal) Decimal {
	out := new(big.Rat).Quo(d.ratOrZero(), other.ratOrZero())
	return fromRat(out)
}

// Abs returns the absolute value of d.
func (d Decimal) Abs() Decimal {
	out := new(big.Rat).Abs(d.ratOrZero())
	return fromRat(out)
}

// Neg returns -d.
func (d Decimal) Neg() Decimal {
	out := new(big.Rat).Neg(d.ratOrZero())
	return fromRat(out)
}

// FromInt64 builds an exact Decimal from an integer.
func FromInt64(i int64) Decimal {
	return fromRat(new(big.Rat).SetInt64(i))
}

// fromDigits builds a Decimal from a sign, an unscaled integer string of
// digits, and a scale (number of digits after the decimal point).
func fromDigits(neg bool, digits string, scale int) (Decimal, bool) {
	num := new(big.Int)
	if _, ok := num.SetString(digits, 10); !ok {
		return Decimal{}, false
	}
	den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
	r := new(big.Rat).SetFrac(num, den)
	if neg {
		r.Neg(r)
	}
	return fromRat(r), true
}

// splitSign strips an optional leading '+' or '-' and reports whether the
// value was negative.
func splitSign(s string) (neg bool, rest string) {
	switch {
	case strings.HasPrefix(s, "-"):
		return true, s[1:]
	case strings.HasPrefix(s, "+"):
		return false, s[1:]
	default:
		return false, s
	}
}
