package accounting

import (
	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

// BuildNAV assembles accounting_nav.v1 for a day. Bootstrap-era NAV has
// no marks, so nav_total is always exactly cash_total; a day with no
// marks degrades status but still writes a valid artifact, since cash
// alone is a true (if incomplete) NAV floor. registry may be nil to skip
// schema validation.
func BuildNAV(in Input, registry *schemagate.Registry) (NAVResult, *failclosed.StageError) {
	if stageErr := requireDay(in); stageErr != nil {
		return NAVResult{}, stageErr
	}

	cashDollars, err := centsToDollarString(in.CashTotalCents, "cash_total_cents")
	if err != nil {
		return NAVResult{}, fail("cash_total_cents is not convertible to whole dollars", err)
	}

	status := StatusOK
	reasonCodes := []canonhash.Value{canonhash.Str("BOOTSTRAP_NAV_CASH_ONLY")}
	if !in.HasMarks {
		status = StatusDegradedMissingMarks
		reasonCodes = append(reasonCodes, canonhash.Str("MISSING_MARKS"))
	}

	obj := map[string]canonhash.Value{
		"schema_id":      canonhash.Str("accounting_nav.v1"),
		"schema_version": canonhash.Str("1"),
		"day_utc":        canonhash.Str(in.DayUTC),
		"produced_utc":   canonhash.Str(in.ProducedAtUTC),
		"status":         canonhash.Str(status),
		"reason_codes":   canonhash.Arr(reasonCodes...),
		"currency":       canonhash.Str("USD"),
		"nav": canonhash.Obj(map[string]canonhash.Value{
			"nav_total":             canonhash.Str(cashDollars),
			"cash_total":            canonhash.Str(cashDollars),
			"gross_positions_value": canonhash.Str("0.00"),
			"realized_pnl_to_date":  canonhash.Str("0.00"),
			"unrealized_pnl":        canonhash.Str("0.00"),
			"components": canonhash.Arr(canonhash.Obj(map[string]canonhash.Value{
				"type":   canonhash.Str("CASH"),
				"amount": canonhash.Str(cashDollars),
			})),
		}),
		canonhash.SelfHashField: canonhash.Null(),
	}
	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("accounting_nav.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return NAVResult{}, fail("accounting_nav failed schema validation", err)
		}
	}

	return NAVResult{
		Object: canonhash.ToAny(canonhash.Obj(obj)).(map[string]any),
		Hash:   hash,
		Status: status,
	}, nil
}
