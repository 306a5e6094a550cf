// Copyright 2025 Constellation 2.0
//
// Package mapper implements the vertical-spread mapping stage: it turns a
// validated intent, chain snapshot, and freshness certificate into an
// immutable OrderPlan, MappingLedgerRecord, and BindingRecord, or a
// VetoRecord at boundary MAPPING on any fail-closed condition. Only
// VERTICAL_SPREAD intents are mapped; any other structure, EQUITY_SPOT
// included, vetoes at MAPPING with C2_MAPPING_FAIL_CLOSED_REQUIRED.
package mapper

// OptionsIntent is the subset of OptionsIntent v2 the mapper reads.
type OptionsIntent struct {
	SchemaID       string          `json:"schema_id"`
	SchemaVersion  string          `json:"schema_version"`
	IntentID       string          `json:"intent_id"`
	EngineID       string          `json:"engine_id"`
	SourceIntentID string          `json:"source_intent_id"`
	Strategy       Strategy        `json:"strategy"`
	SelectionPolicy SelectionPolicy `json:"selection_policy"`
	Risk           RiskSpec        `json:"risk"`
	ExitPolicy     ExitPolicy      `json:"exit_policy"`
}

// Strategy describes the structure the mapper must produce.
type Strategy struct {
	Structure string `json:"structure"` // VERTICAL_SPREAD | EQUITY_SPOT
	Right     string `json:"right"`     // PUT | CALL
	Direction string `json:"direction"` // CREDIT | DEBIT
}

// SelectionPolicy groups the four sub-policies the Python original names
// expiry_policy / width_policy / liquidity_policy / pricing_policy.
type SelectionPolicy struct {
	ExpiryPolicy    ExpiryPolicy    `json:"expiry_policy"`
	WidthPolicy     WidthPolicy     `json:"width_policy"`
	LiquidityPolicy LiquidityPolicy `json:"liquidity_policy"`
	PricingPolicy   PricingPolicy   `json:"pricing_policy"`
}

// ExpiryPolicy. Only DTE_WINDOW mode is implemented; any other mode is a
// fail-closed C2_NONDETERMINISTIC_SELECTION_RULE veto.
type ExpiryPolicy struct {
	Mode   string `json:"mode"`
	DTEMin int    `json:"dte_min"`
	DTEMax int    `json:"dte_max"`
}

// WidthPolicy carries the spread width in USD, as a decimal string.
type WidthPolicy struct {
	WidthUSD string `json:"width_usd"`
}

// LiquidityPolicy is the liquid-contract filter.
type LiquidityPolicy struct {
	MinOpenInterest int64  `json:"min_open_interest"`
	MinVolume       int64  `json:"min_volume"`
	MaxSpreadUSD    string `json:"max_spread_usd"`
}

// PricingPolicy carries the limit-price offset and tick-rounding mode.
type PricingPolicy struct {
	OffsetUSD    string `json:"offset_usd"`
	RoundingMode string `json:"rounding_mode"` // ROUND_DOWN | ROUND_UP
}

// RiskSpec carries contract count and per-contract multiplier.
type RiskSpec struct {
	Contracts  int64 `json:"contracts"`
	Multiplier int64 `json:"multiplier"`
}

// ExitPolicy must carry a non-empty PolicyID or mapping vetoes with
// C2_EXIT_POLICY_REQUIRED.
type ExitPolicy struct {
	PolicyID string `json:"policy_id"`
}

// OptionsChainSnapshot is the subset of OptionsChainSnapshot v1 the mapper
// reads.
type OptionsChainSnapshot struct {
	SchemaID   string     `json:"schema_id"`
	AsOfUTC    string     `json:"as_of_utc"`
	Underlying Underlying `json:"underlying"`
	Contracts  []Contract `json:"contracts"`
}

// Underlying carries the spot price the mapper selects strikes against.
type Underlying struct {
	Symbol    string `json:"symbol"`
	SpotPrice string `json:"spot_price"`
}

// Contract is a single chain row.
type Contract struct {
	ExpiryUTC    string `json:"expiry_utc"`
	Right        string `json:"right"` // C | P
	Strike       string `json:"strike"`
	Bid          string `json:"bid"`
	Ask          string `json:"ask"`
	OpenInterest int64  `json:"open_interest"`
	Volume       int64  `json:"volume"`
	ContractKey  string `json:"contract_key"`
}

// FreshnessCertificate is the subset of FreshnessCertificate v1 the mapper
// reads.
type FreshnessCertificate struct {
	SchemaID        string `json:"schema_id"`
	SnapshotHash    string `json:"snapshot_hash"`
	SnapshotAsOfUTC string `json:"snapshot_as_of_utc"`
	ValidFromUTC    string `json:"valid_from_utc"`
	ValidUntilUTC   string `json:"valid_until_utc"`
}

// Input bundles everything MapVerticalSpread needs plus the evidence
// pointers every artifact and veto carries forward.
type Input struct {
	Intent   OptionsIntent
	Chain    OptionsChainSnapshot
	Cert     FreshnessCertificate
	NowUTC   string
	TickSize string
	Pointers []string
	Producer map[string]string
}

// Result is everything a successful mapping produces.
type Result struct {
	OrderPlan            map[string]any
	OrderPlanHash        string
	MappingLedgerRecord  map[string]any
	MappingLedgerHash    string
	BindingRecord        map[string]any
	BindingHash          string
	IntentHash           string
	ChainSnapshotHash    string
	FreshnessCertHash    string
}
