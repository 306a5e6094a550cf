// Copyright 2025 Constellation 2.0
//
// Package snapshot builds an OptionsChainSnapshot v1 from a raw capture
// payload: it normalizes every contract to fixed 2dp decimal strings,
// derives a deterministic contract_key, sorts contracts by that key, and
// computes per-contract liquidity/DTE/mid features in the same order.
package snapshot

// RawUnderlying is the raw underlying block of a capture payload.
type RawUnderlying struct {
	Symbol      string `json:"symbol"`
	SpotPrice   string `json:"spot_price"`
	SpotAsOfUTC string `json:"spot_as_of_utc"`
}

// RawProvenance records where a capture came from.
type RawProvenance struct {
	Source        string `json:"source"`
	CaptureMethod string `json:"capture_method"`
	CaptureHost   string `json:"capture_host"`
	CaptureRunID  string `json:"capture_run_id"`
}

// RawLiquidityPolicy is the liquidity-feature derivation policy.
type RawLiquidityPolicy struct {
	MinOpenInterest int64  `json:"min_open_interest"`
	MinVolume       int64  `json:"min_volume"`
	MaxBidAskSpread string `json:"max_bid_ask_spread"`
}

// RawPricingPolicy names the mid-price definition. Only "(bid+ask)/2" is
// implemented.
type RawPricingPolicy struct {
	MidDefinition string `json:"mid_definition"`
}

// RawPolicy groups the derivation policies a capture is built under.
type RawPolicy struct {
	DTEMethod       string             `json:"dte_method"`
	LiquidityPolicy RawLiquidityPolicy `json:"liquidity_policy"`
	PricingPolicy   RawPricingPolicy   `json:"pricing_policy"`
}

// RawIBContract is the Interactive Brokers contract-identity block.
type RawIBContract struct {
	ConID        int64  `json:"conId"`
	LocalSymbol  string `json:"localSymbol"`
	TradingClass string `json:"tradingClass"`
	Exchange     string `json:"exchange"`
	Currency     string `json:"currency"`
	Multiplier   int64  `json:"multiplier"`
}

// RawContract is a single chain row as captured, before normalization.
type RawContract struct {
	ExpiryUTC    string        `json:"expiry_utc"`
	Right        string        `json:"right"` // CALL | PUT
	Strike       string        `json:"strike"`
	Bid          string        `json:"bid"`
	Ask          string        `json:"ask"`
	OpenInterest int64         `json:"open_interest"`
	Volume       int64         `json:"volume"`
	IB           RawIBContract `json:"ib"`
}

// RawInput is the full capture payload BuildOptionsChainSnapshot consumes.
type RawInput struct {
	AsOfUTC    string        `json:"as_of_utc"`
	Underlying RawUnderlying `json:"underlying"`
	Provenance RawProvenance `json:"provenance"`
	Policy     RawPolicy     `json:"policy"`
	Contracts  []RawContract `json:"contracts"`
}
