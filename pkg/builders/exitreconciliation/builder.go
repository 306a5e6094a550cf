package exitreconciliation

import (
	"sort"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

func fail(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryNone, reasoncode.LineageViolation, detail, cause)
}

type obligation struct {
	engineID       string
	positionID     string
	instrumentKind string
	underlying     string
	expiryUTC      string
	strike         string
	right          string
	currency       string
	exposureType   string
}

// BuildReport assembles exit_reconciliation_report.v1 for a day. A
// position whose engine has no position_id or engine_id is an upstream
// invariant violation this package fails closed on -- positions/lifecycle
// already guarantee both are non-blank, so seeing one here means lineage
// from an earlier stage broke. registry may be nil to skip schema
// validation.
func BuildReport(in Input, registry *schemagate.Registry) (Result, *failclosed.StageError) {
	if in.DayUTC == "" {
		return Result{}, fail("day_utc is required", nil)
	}
	if in.ProducedAtUTC == "" {
		return Result{}, fail("produced_at_utc is required", nil)
	}

	status := StatusOK
	reasons := []string{}
	if !in.IntentsAvailable {
		status = StatusDegradedMissingEngineIntents
		reasons = append(reasons, "MISSING_ENGINE_INTENTS_DAY_DIR")
	}

	obligations := []obligation{}
	for _, p := range in.OpenPositions {
		if p.EngineID == "" || p.PositionID == "" {
			return Result{}, fail("an OPEN position carries no engine_id or position_id", nil)
		}
		if in.EnginesWithIntent[p.EngineID] {
			continue
		}

		exposureType := "LONG_EQUITY"
		switch p.InstrumentKind {
		case "EQUITY":
			exposureType = "LONG_EQUITY"
		case "OPTIONS_PLAN":
			exposureType = "SHORT_VOL_DEFINED"
		default:
			if status == StatusOK {
				status = StatusDegradedUnknownInstrument
			}
			reasons = appendUnique(reasons, "BOOTSTRAP_UNKNOWN_INSTRUMENT_KIND")
		}

		if p.Underlying == "" {
			if status == StatusOK {
				status = StatusDegradedUnknownInstrument
			}
			reasons = appendUnique(reasons, "BOOTSTRAP_UNKNOWN_INSTRUMENT_UNDERLYING")
		}

		currency := p.Currency
		if currency == "" {
			currency = "USD"
		}

		obligations = append(obligations, obligation{
			engineID:       p.EngineID,
			positionID:     p.PositionID,
			instrumentKind: p.InstrumentKind,
			underlying:     p.Underlying,
			expiryUTC:      p.ExpiryUTC,
			strike:         p.Strike,
			right:          p.Right,
			currency:       currency,
			exposureType:   exposureType,
		})
	}

	sort.Slice(obligations, func(i, j int) bool {
		if obligations[i].engineID != obligations[j].engineID {
			return obligations[i].engineID < obligations[j].engineID
		}
		return obligations[i].positionID < obligations[j].positionID
	})

	obligationVals := make([]canonhash.Value, len(obligations))
	for i, o := range obligations {
		obligationVals[i] = canonhash.Obj(map[string]canonhash.Value{
			"engine_id":   canonhash.Str(o.engineID),
			"position_id": canonhash.Str(o.positionID),
			"instrument": canonhash.Obj(map[string]canonhash.Value{
				"kind":       canonhash.Str(o.instrumentKind),
				"underlying": canonhash.Str(o.underlying),
				"expiry_utc": canonhash.Str(o.expiryUTC),
				"strike":     canonhash.Str(o.strike),
				"right":      canonhash.Str(o.right),
			}),
			"currency":                        canonhash.Str(o.currency),
			"recommended_exposure_type":       canonhash.Str(o.exposureType),
			"recommended_target_notional_pct": canonhash.Str("0"),
			"reason_code":                     canonhash.Str("ENGINE_SILENCE_REQUIRES_EXPLICIT_EXIT"),
			"upstream": canonhash.Obj(map[string]canonhash.Value{
				"positions_snapshot_hash": canonhash.Str(in.PositionsSnapshotHash),
				"engine_intents_dir_hash": canonhash.Str(in.IntentsDirHash),
			}),
		})
	}

	reasonVals := make([]canonhash.Value, len(reasons))
	for i, r := range reasons {
		reasonVals[i] = canonhash.Str(r)
	}

	obj := map[string]canonhash.Value{
		"schema_id":      canonhash.Str("exit_reconciliation_report.v1"),
		"schema_version": canonhash.Str("1"),
		"day_utc":        canonhash.Str(in.DayUTC),
		"produced_utc":   canonhash.Str(in.ProducedAtUTC),
		"status":         canonhash.Str(status),
		"reason_codes":   canonhash.Arr(reasonVals...),
		"obligations":    canonhash.Arr(obligationVals...),
		canonhash.SelfHashField: canonhash.Null(),
	}
	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("exit_reconciliation_report.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return Result{}, fail("exit_reconciliation_report failed schema validation", err)
		}
	}

	return Result{
		Object: canonhash.ToAny(canonhash.Obj(obj)).(map[string]any),
		Hash:   hash,
		Status: status,
	}, nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
