// Copyright 2025 Constellation 2.0
//
// Package allocation implements the capital allocation gate: one
// AllocationDecision per submitted intent, and one AllocationSummary per
// day aggregating them. Every cap is a decimal string, never a binary
// float, and every decision is a pure function of its inputs -- the same
// intent, engine cap, drawdown, and accounting status always produce the
// same decision.
package allocation

// Intent is the slice of a day's intent snapshot AllocationGate needs.
type Intent struct {
	IntentID          string
	EngineID          string
	TargetNotionalPct string
}

// DecisionInput is everything BuildDecision needs to evaluate one intent.
type DecisionInput struct {
	Intent Intent
	// EngineCapPct is the engine's static cap as a decimal string, e.g.
	// "0.40". Required.
	EngineCapPct string
	// DrawdownPct is the portfolio's current drawdown as a decimal
	// string, e.g. "-0.07". Zero/empty means no drawdown.
	DrawdownPct string
	// RiskEnvelopeMultiplier additionally clamps the effective cap, e.g.
	// "0.50" under a tightened capital risk envelope. Empty defaults to
	// "1.00" (no additional clamp).
	RiskEnvelopeMultiplier string
	// AccountingStatusOK must be true for any non-EXIT intent to be
	// allowed; an EXIT intent (target_notional_pct == 0) is always
	// allowed regardless.
	AccountingStatusOK bool
}

// DecisionResult is a built allocation_decision.v1 artifact plus its
// canonical hash and the gate's verdict.
type DecisionResult struct {
	Object  map[string]any
	Hash    string
	Allowed bool
}

// SummaryRow is one decision folded into a day's AllocationSummary.
type SummaryRow struct {
	IntentID string
	EngineID string
	Allowed  bool
}

// SummaryResult is a built allocation_summary.v1 artifact plus its
// canonical hash.
type SummaryResult struct {
	Object map[string]any
	Hash   string
}
