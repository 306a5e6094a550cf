package lifecycle

import (
	"sort"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

const (
	// StatusOK means every position row matched at least one execution
	// event by binding_hash.
	StatusOK = "OK"
	// StatusDegradedMissingEvents means the day's snapshot is still
	// written, but one or more positions have no linked execution event.
	StatusDegradedMissingEvents = "DEGRADED_MISSING_EXECUTION_EVENTS"
)

func fail(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryNone, reasoncode.LineageViolation, detail, cause)
}

// BuildSnapshot links in.Positions to in.EventsByBindingHash and assembles
// a position_lifecycle_snapshot.v1. It never fails closed on a missing
// event link alone -- that degrades status instead -- but does fail closed
// if a position row carries no position_id, since that row could never be
// linked to anything downstream. registry may be nil to skip schema
// validation.
func BuildSnapshot(in Input, registry *schemagate.Registry) (Result, *failclosed.StageError) {
	if in.DayUTC == "" {
		return Result{}, fail("day_utc is required", nil)
	}
	if in.ProducedAtUTC == "" {
		return Result{}, fail("produced_at_utc is required", nil)
	}

	rows := make([]PositionRow, len(in.Positions))
	copy(rows, in.Positions)
	sort.Slice(rows, func(i, j int) bool { return rows[i].PositionID < rows[j].PositionID })

	itemVals := make([]canonhash.Value, 0, len(rows))
	missingEvents := 0

	for _, row := range rows {
		if row.PositionID == "" {
			return Result{}, fail("a positions snapshot row has no position_id", nil)
		}

		instrument, err := canonhash.FromAny(row.Instrument)
		if err != nil {
			return Result{}, fail("position "+row.PositionID+" carries an unserializable instrument block", err)
		}

		events := in.EventsByBindingHash[row.PositionID]
		eventVals := make([]canonhash.Value, len(events))
		for i, ev := range events {
			eventVals[i] = canonhash.Obj(map[string]canonhash.Value{
				"submission_id": canonhash.Str(ev.SubmissionID),
				"sha256":        canonhash.Str(ev.Hash),
			})
		}
		notes := []canonhash.Value{}
		if len(events) == 0 {
			missingEvents++
			notes = append(notes, canonhash.Str("no execution_event_record matched by binding_hash for this position_id"))
		}

		openedDayUTC := row.OpenedDayUTC
		if openedDayUTC == "" {
			openedDayUTC = in.DayUTC
		}

		itemVals = append(itemVals, canonhash.Obj(map[string]canonhash.Value{
			"position_id":    canonhash.Str(row.PositionID),
			"state":          canonhash.Str("OPEN"),
			"opened_day_utc": canonhash.Str(openedDayUTC),
			"closed_day_utc": canonhash.Null(),
			"instrument":     instrument,
			"qty":            canonhash.Int(row.Qty),
			"avg_cost_cents": canonhash.Int(row.AvgCostCents),
			"events":         canonhash.Arr(eventVals...),
			"notes":          canonhash.Arr(notes...),
		}))
	}

	status := StatusOK
	reasonCodes := []canonhash.Value{canonhash.Str("BOOTSTRAP_OPEN_ONLY_V1")}
	if missingEvents > 0 {
		status = StatusDegradedMissingEvents
		reasonCodes = append(reasonCodes, canonhash.Str("MISSING_EXECUTION_EVENTS_FOR_SOME_POSITIONS"))
	}

	obj := map[string]canonhash.Value{
		"schema_id":      canonhash.Str("position_lifecycle_snapshot.v1"),
		"schema_version": canonhash.Str("1"),
		"day_utc":        canonhash.Str(in.DayUTC),
		"produced_utc":   canonhash.Str(in.ProducedAtUTC),
		"status":         canonhash.Str(status),
		"reason_codes":   canonhash.Arr(reasonCodes...),
		"lifecycle": canonhash.Obj(map[string]canonhash.Value{
			"asof_utc": canonhash.Str(in.ProducedAtUTC),
			"items":    canonhash.Arr(itemVals...),
			"notes":    canonhash.Arr(canonhash.Str("bootstrap: OPEN-only lifecycle; closes not yet provable")),
		}),
		canonhash.SelfHashField: canonhash.Null(),
	}
	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("position_lifecycle_snapshot.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return Result{}, fail("position_lifecycle_snapshot failed schema validation", err)
		}
	}

	return Result{
		Object: canonhash.ToAny(canonhash.Obj(obj)).(map[string]any),
		Hash:   hash,
		Status: status,
	}, nil
}
