// Copyright 2025 Constellation 2.0
//
// Package exitreconciliation builds a day-scoped ExitReconciliationReport:
// for every OPEN position whose engine stayed silent today (no explicit
// exposure intent on file), it emits an obligation recommending exit,
// since engine silence on an open position is treated as a request for
// an explicit decision, not as implicit permission to hold. A missing
// engine-intents day directory degrades the report rather than failing
// it -- obligations can still be derived from positions alone.
package exitreconciliation

// PositionObligationInput is the slice of an OPEN positions-snapshot row
// BuildReport needs to evaluate whether it requires an exit obligation.
type PositionObligationInput struct {
	PositionID     string
	EngineID       string
	InstrumentKind string
	Underlying     string
	ExpiryUTC      string
	Strike         string
	Right          string
	Currency       string
}

// Input is the evidence BuildReport folds into a day's
// ExitReconciliationReport.
type Input struct {
	DayUTC                string
	ProducedAtUTC         string
	PositionsSnapshotHash string
	// IntentsAvailable is false when the day's engine-intents directory
	// does not exist; the report still builds, but degrades.
	IntentsAvailable bool
	// IntentsDirHash is the deterministic hash of the intents day
	// directory's contents, empty when IntentsAvailable is false.
	IntentsDirHash string
	// EnginesWithIntent is the set of engine_ids that already filed an
	// explicit exposure intent for the day -- their open positions need
	// no obligation.
	EnginesWithIntent map[string]bool
	OpenPositions     []PositionObligationInput
}

// Result is a built exit_reconciliation_report.v1 artifact plus its
// canonical hash and overall status.
type Result struct {
	Object map[string]any
	Hash   string
	Status string
}

const (
	StatusOK                           = "OK"
	StatusDegradedMissingEngineIntents = "DEGRADED_MISSING_ENGINE_INTENTS"
	StatusDegradedUnknownInstrument    = "DEGRADED_UNKNOWN_INSTRUMENT_FIELDS"
)
