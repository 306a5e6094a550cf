package decimalcodec

import (
	"math/big"
	"strings"
)

// RoundingMode selects how Quantize resolves a value that falls between
// two representable multiples of the target precision.
type RoundingMode int

const (
	// RoundHalfUp rounds .5 away from zero. Used for prices, USD amounts,
	// and the drawdown multiplier table.
	RoundHalfUp RoundingMode = iota
	// RoundFloor always rounds toward negative infinity (ROUND_DOWN in the
	// tick-quantize vocabulary).
	RoundFloor
	// RoundCeiling always rounds toward positive infinity (ROUND_UP in the
	// tick-quantize vocabulary).
	RoundCeiling
)

// Parse accepts an integer (int64) or a decimal-literal string and returns
// the exact Decimal it denotes. It forbids: any floating point input
// (float32/float64 are rejected outright -- there is no code path in
// which a float's imprecision could enter the system), empty strings,
// and scientific notation (a case-insensitive "e" anywhere in the
// literal). field is used only to annotate the error.
func Parse(x any, field string) (Decimal, error) {
	switch v := x.(type) {
	case float32, float64:
		return Decimal{}, newErr(CodeFloatForbidden, field, "floating point input is forbidden; use a decimal string or integer")
	case int:
		return FromInt64(int64(v)), nil
	case int32:
		return FromInt64(int64(v)), nil
	case int64:
		return FromInt64(v), nil
	case string:
		return parseString(v, field)
	default:
		return Decimal{}, newErr(CodeUnsupportedType, field, "unsupported decimal input type")
	}
}

func parseString(s, field string) (Decimal, error) {
	if s == "" {
		return Decimal{}, newErr(CodeEmptyInput, field, "empty decimal string")
	}
	if strings.ContainsAny(s, "eE") {
		return Decimal{}, newErr(CodeScientificNotation, field, "scientific notation is forbidden")
	}

	neg, body := splitSign(s)
	if body == "" {
		return Decimal{}, newErr(CodeInvalidLiteral, field, "no digits in decimal literal")
	}

	intPart, fracPart, hasDot := strings.Cut(body, ".")
	if hasDot && fracPart == "" {
		return Decimal{}, newErr(CodeInvalidLiteral, field, "trailing decimal point with no fractional digits")
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isAllDigits(intPart) || (hasDot && !isAllDigits(fracPart)) {
		return Decimal{}, newErr(CodeInvalidLiteral, field, "decimal literal contains non-digit characters")
	}

	digits := intPart + fracPart
	dec, ok := fromDigits(neg, digits, len(fracPart))
	if !ok {
		return Decimal{}, newErr(CodeInvalidLiteral, field, "failed to parse decimal literal")
	}
	return dec, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Quantize rounds d to dp decimal places using mode and returns the
// resulting Decimal, still exact (a multiple of 10^-dp).
func Quantize(d Decimal, dp int, mode RoundingMode) Decimal {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(dp)), nil)
	scaleRat := new(big.Rat).SetInt(scale)
	scaled := new(big.Rat).Mul(d.ratOrZero(), scaleRat)

	rounded := roundToInt(scaled, mode)

	out := new(big.Rat).SetFrac(rounded, scale)
	return fromRat(out)
}

// Quantize2dp is Quantize(d, 2, RoundHalfUp) -- the kernel's near-universal
// USD/price precision.
func Quantize2dp(d Decimal) Decimal {
	return Quantize(d, 2, RoundHalfUp)
}

func roundToInt(r *big.Rat, mode RoundingMode) *big.Int {
	quo := new(big.Int)
	rem := new(big.Int)
	quo.QuoRem(r.Num(), r.Denom(), rem)

	if rem.Sign() == 0 {
		return quo
	}

	switch mode {
	case RoundFloor:
		if r.Sign() < 0 {
			quo.Sub(quo, big.NewInt(1))
		}
		return quo
	case RoundCeiling:
		if r.Sign() > 0 {
			quo.Add(quo, big.NewInt(1))
		}
		return quo
	default: // RoundHalfUp: .5 rounds away from zero
		twiceRem := new(big.Int).Mul(rem, big.NewInt(2))
		twiceRem.Abs(twiceRem)
		denom := new(big.Int).Abs(r.Denom())
		if twiceRem.Cmp(denom) >= 0 {
			if r.Sign() < 0 {
				quo.Sub(quo, big.NewInt(1))
			} else {
				quo.Add(quo, big.NewInt(1))
			}
		}
		return quo
	}
}

// Format renders d with exactly dp digits after the decimal point, never
// using exponent notation, e.g. Format(d, 2) -> "12.30" or "-0.01".
func Format(d Decimal, dp int) string {
	neg := d.Sign() < 0
	abs := d.Abs()

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(dp)), nil)
	scaleRat := new(big.Rat).SetInt(scale)
	scaled := new(big.Rat).Mul(abs.ratOrZero(), scaleRat)

	unscaled := roundToInt(scaled, RoundHalfUp)
	digits := unscaled.String()
	for len(digits) <= dp {
		digits = "0" + digits
	}

	var intPart, fracPart string
	if dp == 0 {
		intPart, fracPart = digits, ""
	} else {
		intPart = digits[:len(digits)-dp]
		fracPart = digits[len(digits)-dp:]
	}

	var b strings.Builder
	if neg && unscaled.Sign() != 0 {
		b.WriteByte('-')
	}
	b.WriteString(intPart)
	if dp > 0 {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}

// Format2dp is Format(d, 2).
func Format2dp(d Decimal) string { return Format(d, 2) }

// Add2dp quantizes both operands to 2dp and returns their quantized sum,
// itself quantized to 2dp.
func Add2dp(a, b Decimal) Decimal {
	return Quantize2dp(Quantize2dp(a).Add(Quantize2dp(b)))
}

// Sub2dp quantizes both operands to 2dp and returns a-b quantized to 2dp.
// It refuses a negative result, matching the spread-width invariant that a
// width or price difference can never legitimately go negative.
func Sub2dp(a, b Decimal, field string) (Decimal, error) {
	diff := Quantize2dp(Quantize2dp(a).Sub(Quantize2dp(b)))
	if diff.Sign() < 0 {
		return Decimal{}, newErr(CodeNegativeForbidden, field, "subtraction produced a negative result")
	}
	return diff, nil
}

// MidFull computes the midpoint (bid+ask)/2 at full Decimal precision,
// with no rounding applied. It refuses ask < bid. Callers that chain the
// mid into further arithmetic (a spread mid, a raw limit price) must use
// this rather than Mid2dp -- quantizing before the chain is done is what
// the kernel's "full precision then quantize once" invariant forbids.
func MidFull(bid, ask Decimal, field string) (Decimal, error) {
	if ask.Cmp(bid) < 0 {
		return Decimal{}, newErr(CodeAskLessThanBid, field, "ask is less than bid")
	}
	sum := bid.Add(ask)
	return sum.Mul(fromRat(big.NewRat(1, 2))), nil
}

// Mid2dp computes the midpoint (bid+ask)/2 at full precision, then rounds
// to 2dp. Use this only when the mid is itself the terminal value (e.g. a
// chain snapshot's derived display field); use MidFull when the mid feeds
// further arithmetic before anything is quantized.
func Mid2dp(bid, ask Decimal, field string) (Decimal, error) {
	half, err := MidFull(bid, ask, field)
	if err != nil {
		return Decimal{}, err
	}
	return Quantize2dp(half), nil
}

// TickQuantize rounds value to the nearest multiple of tick using mode,
// which must be RoundFloor or RoundCeiling (the two tick-quantization
// directions the kernel uses -- ROUND_DOWN and ROUND_UP respectively).
// tick <= 0 is a hard error.
func TickQuantize(value, tick Decimal, mode RoundingMode, field string) (Decimal, error) {
	if tick.Sign() <= 0 {
		return Decimal{}, newErr(CodeNonPositiveTick, field, "tick size must be strictly positive")
	}
	units := value.Quo(tick)
	roundedUnits := roundToInt(units.ratOrZero(), mode)
	out := fromRat(new(big.Rat).SetInt(roundedUnits)).Mul(tick)
	return out, nil
}

// CentsToWholeDollars converts integer cents to a whole-dollar Decimal,
// failing closed if cents is not an exact multiple of 100. This mirrors
// the accounting rule that a fractional-dollar conversion to a
// whole-dollar display field is a hard error, never a silent truncation.
func CentsToWholeDollars(cents int64, field string) (Decimal, error) {
	if cents%100 != 0 {
		return Decimal{}, newErr(CodeNotDivisibleByCents, field, "cents value is not an exact multiple of 100")
	}
	return FromInt64(cents / 100), nil
}
