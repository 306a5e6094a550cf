package mapper

import (
	"github.com/constellation2/evidence-kernel/pkg/decimalcodec"
)

type pricingResult struct {
	shortMid   decimalcodec.Decimal
	longMid    decimalcodec.Decimal
	spreadMid  decimalcodec.Decimal
	rawLimit   decimalcodec.Decimal
	limit      decimalcodec.Decimal
	maxLossUSD decimalcodec.Decimal
}

func roundingModeFor(s string) (decimalcodec.RoundingMode, bool) {
	switch s {
	case "ROUND_DOWN":
		return decimalcodec.RoundFloor, true
	case "ROUND_UP":
		return decimalcodec.RoundCeiling, true
	default:
		return 0, false
	}
}

// priceAndRisk computes full-precision leg mids, the tick-quantized limit
// price, and the 2dp defined-risk max_loss_usd for the selected legs. All
// three price quantities and max_loss_usd must be strictly positive or the
// mapping fails closed.
func priceAndRisk(sel selectionOutcome, strategy Strategy, width decimalcodec.Decimal, offset decimalcodec.Decimal, tick decimalcodec.Decimal, roundingMode decimalcodec.RoundingMode, contracts, multiplier int64) (pricingResult, error) {
	shortMid, err := decimalcodec.MidFull(
		mustParse(sel.short.contract.Bid),
		mustParse(sel.short.contract.Ask),
		"legs.short.mid",
	)
	if err != nil {
		return pricingResult{}, err
	}
	longMid, err := decimalcodec.MidFull(
		mustParse(sel.long.contract.Bid),
		mustParse(sel.long.contract.Ask),
		"legs.long.mid",
	)
	if err != nil {
		return pricingResult{}, err
	}

	var spreadMid, rawLimit decimalcodec.Decimal
	if strategy.Direction == "CREDIT" {
		spreadMid = shortMid.Sub(longMid)
		rawLimit = spreadMid.Sub(offset)
	} else {
		spreadMid = longMid.Sub(shortMid)
		rawLimit = spreadMid.Add(offset)
	}

	limit, err := decimalcodec.TickQuantize(rawLimit, tick, roundingMode, "order_terms.limit_price")
	if err != nil {
		return pricingResult{}, err
	}
	if spreadMid.Sign() <= 0 || rawLimit.Sign() <= 0 || limit.Sign() <= 0 {
		return pricingResult{}, errNonPositivePrice
	}

	contractsDec := decimalcodec.FromInt64(contracts)
	multiplierDec := decimalcodec.FromInt64(multiplier)
	var maxLoss decimalcodec.Decimal
	if strategy.Direction == "CREDIT" {
		maxLoss = width.Sub(limit).Mul(multiplierDec).Mul(contractsDec)
	} else {
		maxLoss = limit.Mul(multiplierDec).Mul(contractsDec)
	}
	maxLoss = decimalcodec.Quantize2dp(maxLoss)
	if maxLoss.Sign() <= 0 {
		return pricingResult{}, errNonPositiveRisk
	}

	return pricingResult{
		shortMid:   shortMid,
		longMid:    longMid,
		spreadMid:  spreadMid,
		rawLimit:   rawLimit,
		limit:      limit,
		maxLossUSD: maxLoss,
	}, nil
}

// mustParse is only ever called on chain rows already validated by
// filterLiquid, where bid/ask parsed cleanly once already.
func mustParse(s string) decimalcodec.Decimal {
	d, err := decimalcodec.Parse(s, "contract.price")
	if err != nil {
		return decimalcodec.Zero()
	}
	return d
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

// errNonPositivePrice covers spread_mid/raw_limit/limit failing the
// strictly-positive price-determinism invariant.
const errNonPositivePrice = sentinelError("computed price quantity was not strictly positive")

// errNonPositiveRisk covers max_loss_usd failing the strictly-positive
// defined-risk invariant.
const errNonPositiveRisk = sentinelError("computed max_loss_usd was not strictly positive")
