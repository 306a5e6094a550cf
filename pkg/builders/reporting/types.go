// Copyright 2025 Constellation 2.0
//
// Package reporting builds the day's human-facing summary: a
// deterministic, derived-only rendering of the day's already-computed
// accounting, allocation, and exit-reconciliation artifacts, plus a
// trading-day label. It never recomputes financial figures and never
// queries anything beyond the artifacts it is handed -- any field here
// traces back to an artifact another builder already produced and
// hashed, so this package has no reason codes or fail-closed gates of
// its own beyond a missing day_utc or produced_at_utc and a failed schema
// validation.
package reporting

import "github.com/constellation2/evidence-kernel/pkg/builders/marketcalendar"

// EngineAttributionRow mirrors one accounting_attribution.v1 by_engine
// row, carried forward for rendering without reinterpretation.
type EngineAttributionRow struct {
	EngineID            string
	RealizedPnLToDate   string
	UnrealizedPnL       string
	DefinedRiskExposure string
	PositionsCount      int64
	OrphanSubmissions   int64
}

// NAVInput is the slice of accounting_nav.v1 a summary renders.
type NAVInput struct {
	Status    string
	NAVTotal  string
	CashTotal string
}

// ExposureInput is the slice of accounting_exposure.v1 a summary renders.
type ExposureInput struct {
	Status           string
	TotalDefinedRisk string
}

// AttributionInput is the slice of accounting_attribution.v1 a summary
// renders.
type AttributionInput struct {
	Status   string
	ByEngine []EngineAttributionRow
}

// AllocationInput is the slice of allocation_summary.v1 a summary
// renders.
type AllocationInput struct {
	TotalDecisions   int64
	AllowedDecisions int64
	BlockedDecisions int64
}

// ExitReconciliationInput is the slice of exit_reconciliation_report.v1
// a summary renders.
type ExitReconciliationInput struct {
	Status          string
	ObligationCount int64
}

// Input is everything BuildSummary folds into a day's rendered summary.
type Input struct {
	DayUTC        string
	ProducedAtUTC string
	Exchange      string
	TradingDay    marketcalendar.Label

	NAV                NAVInput
	Exposure           ExposureInput
	Attribution        AttributionInput
	Allocation         AllocationInput
	ExitReconciliation ExitReconciliationInput
}

// Result is a built daily_portfolio_summary.v1 artifact, its canonical
// hash, and the deterministic plain-text rendering of the same data.
type Result struct {
	Object map[string]any
	Hash   string
	Text   string
}
