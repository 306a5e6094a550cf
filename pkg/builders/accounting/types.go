// Copyright 2025 Constellation 2.0
//
// Package accounting builds a day's three accounting artifacts -- NAV,
// Exposure, and Attribution -- from the positions-effective pointer, the
// cash ledger, and whatever defined-risk evidence a day carries. This is
// the bootstrap era: no marks, no realized/unrealized P&L tracking, so
// every number not directly observable from cash and defined-risk rows
// reports as zero and the day's reason codes say so explicitly rather
// than pretending otherwise.
package accounting

// DefinedRiskItem is one defined-risk exposure row attributed to an
// engine and an underlying, as carried by a day's defined-risk snapshot.
type DefinedRiskItem struct {
	EngineID     string
	Underlying   string
	ExpiryUTC    string
	MaxLossCents int64
	ExposureType string
}

// PositionAttributionRow is the lineage slice of a positions snapshot row
// Attribution needs: which engine opened it, and under what symbol.
type PositionAttributionRow struct {
	PositionID string
	EngineID   string
	Symbol     string
}

// SubmissionLineage is one day's broker submission cross-checked against
// whether it ever produced an execution event. An acked submission that
// never evented is an orphan -- degraded, not a hard failure.
type SubmissionLineage struct {
	SubmissionID string
	EngineID     string
	Evented      bool
}

// Input is the evidence BuildNAV, BuildExposure, and BuildAttribution
// fold into a day's accounting artifacts.
type Input struct {
	DayUTC         string
	ProducedAtUTC  string
	CashTotalCents int64
	HasMarks       bool
	DefinedRisk    []DefinedRiskItem
	Positions      []PositionAttributionRow
	Submissions    []SubmissionLineage
}

// NAVResult is a built accounting_nav.v1 artifact plus its canonical hash.
type NAVResult struct {
	Object map[string]any
	Hash   string
	Status string
}

// ExposureResult is a built accounting_exposure.v1 artifact plus its
// canonical hash.
type ExposureResult struct {
	Object map[string]any
	Hash   string
	Status string
}

// AttributionResult is a built accounting_attribution.v1 artifact plus
// its canonical hash.
type AttributionResult struct {
	Object map[string]any
	Hash   string
}

const (
	// StatusOK means the artifact carries no degradation.
	StatusOK = "OK"
	// StatusDegradedMissingMarks means NAV is cash-only because no marks
	// were available for the day.
	StatusDegradedMissingMarks = "DEGRADED_MISSING_MARKS"
	// StatusDegradedOrphanSubmission means Attribution found at least one
	// submission that was acked but never produced an execution event.
	StatusDegradedOrphanSubmission = "DEGRADED_ORPHAN_SUBMISSION"
)
