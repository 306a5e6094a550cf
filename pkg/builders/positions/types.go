// Copyright 2025 Constellation 2.0
//
// Package positions builds a day-scoped positions_snapshot.v5 from the raw
// evidence a submission boundary leaves behind: one entry per submission
// directory, attributed to an engine and a source intent strictly through
// its BrokerSubmissionRecord v3 (never re-derived from the order plan),
// and bootstrapped OPEN the moment an ExecutionEventRecord exists for it.
package positions

// SubmissionEvidence is one submission's durable evidence set for a day,
// as an engine would read it back from the submission boundary's output
// directory.
type SubmissionEvidence struct {
	SubmissionID           string
	BrokerSubmissionRecord map[string]any
	ExecutionEventRecord   map[string]any
	OrderPlan              map[string]any
	EquityOrderPlan        map[string]any
}

// Input is the full day's submission evidence BuildSnapshot folds into a
// positions snapshot.
type Input struct {
	DayUTC        string
	ProducedAtUTC string
	Submissions   []SubmissionEvidence
}

// Result is a built positions_snapshot.v5 artifact plus its canonical hash.
type Result struct {
	Object map[string]any
	Hash   string
}
