package decimalcodec

import "testing"

func TestParseRejectsFloat(t *testing.T) {
	_, err := Parse(1.5, "price")
	if err == nil {
		t.Fatal("expected error for float input")
	}
	if cerr, ok := err.(*Error); !ok || cerr.Code != CodeFloatForbidden {
		t.Fatalf("expected CodeFloatForbidden, got %v", err)
	}
}

func TestParseRejectsScientificNotation(t *testing.T) {
	_, err := Parse("1e3", "price")
	if err == nil {
		t.Fatal("expected error for scientific notation")
	}
	if cerr, ok := err.(*Error); !ok || cerr.Code != CodeScientificNotation {
		t.Fatalf("expected CodeScientificNotation, got %v", err)
	}
}

func TestParseRejectsEmptyString(t *testing.T) {
	_, err := Parse("", "price")
	if err == nil {
		t.Fatal("expected error for empty string")
	}
	if cerr, ok := err.(*Error); !ok || cerr.Code != CodeEmptyInput {
		t.Fatalf("expected CodeEmptyInput, got %v", err)
	}
}

func TestParseAndFormatRoundTrip(t *testing.T) {
	cases := []string{"12.30", "-0.01", "0.00", "100.00", "5"}
	for _, c := range cases {
		d, err := Parse(c, "x")
		if err != nil {
			t.Fatalf("parse %q: %v", c, err)
		}
		got := Format2dp(d)
		want := c
		if c == "5" {
			want = "5.00"
		}
		if got != want {
			t.Fatalf("format(%q) = %q, want %q", c, got, want)
		}
	}
}

func TestQuantizeHalfUp(t *testing.T) {
	d, _ := Parse("1.005", "x")
	got := Format2dp(Quantize2dp(d))
	if got != "1.01" {
		t.Fatalf("expected ROUND_HALF_UP to produce 1.01, got %s", got)
	}

	neg, _ := Parse("-1.005", "x")
	got = Format2dp(Quantize2dp(neg))
	if got != "-1.01" {
		t.Fatalf("expected ROUND_HALF_UP (away from zero) to produce -1.01, got %s", got)
	}
}

func TestMid2dpRejectsAskLessThanBid(t *testing.T) {
	bid, _ := Parse("10.00", "bid")
	ask, _ := Parse("9.00", "ask")
	_, err := Mid2dp(bid, ask, "mid")
	if err == nil {
		t.Fatal("expected ASK_LT_BID_FORBIDDEN error")
	}
	if cerr, ok := err.(*Error); !ok || cerr.Code != CodeAskLessThanBid {
		t.Fatalf("expected CodeAskLessThanBid, got %v", err)
	}
}

func TestMid2dpComputesMidpoint(t *testing.T) {
	bid, _ := Parse("10.00", "bid")
	ask, _ := Parse("10.05", "ask")
	mid, err := Mid2dp(bid, ask, "mid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Format2dp(mid); got != "10.03" {
		t.Fatalf("expected midpoint 10.025 to round half-up to 10.03, got %s", got)
	}
}

func TestMidFullKeepsThirdDecimalUnrounded(t *testing.T) {
	bid, _ := Parse("1.01", "bid")
	ask, _ := Parse("1.02", "ask")
	mid, err := MidFull(bid, ask, "mid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Format(mid, 3); got != "1.015" {
		t.Fatalf("expected full-precision midpoint 1.015, got %s", got)
	}
}

func TestMidFullRejectsAskLessThanBid(t *testing.T) {
	bid, _ := Parse("10.00", "bid")
	ask, _ := Parse("9.00", "ask")
	_, err := MidFull(bid, ask, "mid")
	if err == nil {
		t.Fatal("expected ASK_LT_BID_FORBIDDEN error")
	}
	if cerr, ok := err.(*Error); !ok || cerr.Code != CodeAskLessThanBid {
		t.Fatalf("expected CodeAskLessThanBid, got %v", err)
	}
}

func TestSub2dpRejectsNegativeResult(t *testing.T) {
	a, _ := Parse("1.00", "a")
	b, _ := Parse("2.00", "b")
	_, err := Sub2dp(a, b, "width")
	if err == nil {
		t.Fatal("expected DECIMAL_NEGATIVE_FORBIDDEN error")
	}
	if cerr, ok := err.(*Error); !ok || cerr.Code != CodeNegativeForbidden {
		t.Fatalf("expected CodeNegativeForbidden, got %v", err)
	}
}

func TestTickQuantizeFloorAndCeiling(t *testing.T) {
	value, _ := Parse("1.07", "v")
	tick, _ := Parse("0.05", "tick")

	floor, err := TickQuantize(value, tick, RoundFloor, "limit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Format2dp(floor); got != "1.05" {
		t.Fatalf("expected floor-quantize to 1.05, got %s", got)
	}

	ceil, err := TickQuantize(value, tick, RoundCeiling, "limit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Format2dp(ceil); got != "1.10" {
		t.Fatalf("expected ceiling-quantize to 1.10, got %s", got)
	}
}

func TestTickQuantizeRejectsNonPositiveTick(t *testing.T) {
	value, _ := Parse("1.00", "v")
	zero := Zero()
	_, err := TickQuantize(value, zero, RoundFloor, "limit")
	if err == nil {
		t.Fatal("expected error for non-positive tick")
	}
	if cerr, ok := err.(*Error); !ok || cerr.Code != CodeNonPositiveTick {
		t.Fatalf("expected CodeNonPositiveTick, got %v", err)
	}
}

func TestCentsToWholeDollarsFailsClosedOnFraction(t *testing.T) {
	_, err := CentsToWholeDollars(12345, "nav")
	if err == nil {
		t.Fatal("expected CENTS_NOT_DIVISIBLE_BY_100_FOR_INTEGER_DOLLARS error")
	}
	if cerr, ok := err.(*Error); !ok || cerr.Code != CodeNotDivisibleByCents {
		t.Fatalf("expected CodeNotDivisibleByCents, got %v", err)
	}
}

func TestCentsToWholeDollarsExact(t *testing.T) {
	d, err := CentsToWholeDollars(12300, "nav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Format2dp(d); got != "123.00" {
		t.Fatalf("expected 123.00, got %s", got)
	}
}

func TestQuantize6dpForDrawdown(t *testing.T) {
	cap, _ := Parse("0.40", "engine_cap")
	mult, _ := Parse("0.75", "multiplier")
	effective := Quantize(cap.Mul(mult), 6, RoundHalfUp)
	if got := Format(effective, 6); got != "0.300000" {
		t.Fatalf("expected 0.300000, got %s", got)
	}
}
