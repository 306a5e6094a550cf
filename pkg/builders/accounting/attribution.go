package accounting

import (
	"sort"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

type engineRow struct {
	engineID         string
	positionsCount   int64
	symbols          map[string]struct{}
	definedRiskCents int64
	orphanCount      int64
}

// BuildAttribution assembles accounting_attribution.v1 for a day: one
// by_engine row per engine observed in the day's positions lineage, each
// carrying its position count, traded symbols, and defined-risk exposure.
// realized_pnl_to_date and unrealized_pnl are bootstrap zeros -- this
// kernel does not yet track marks or closes. A submission that was acked
// but never produced an execution event is an orphan -- it degrades
// status to DEGRADED_ORPHAN_SUBMISSION and is counted on its engine's
// row, but it is never a hard failure, since the submission may simply
// still be in flight. registry may be nil to skip schema validation.
func BuildAttribution(in Input, registry *schemagate.Registry) (AttributionResult, *failclosed.StageError) {
	if stageErr := requireDay(in); stageErr != nil {
		return AttributionResult{}, stageErr
	}

	rows := map[string]*engineRow{}
	order := []string{}

	rowFor := func(engineID string) *engineRow {
		r, ok := rows[engineID]
		if !ok {
			r = &engineRow{engineID: engineID, symbols: map[string]struct{}{}}
			rows[engineID] = r
			order = append(order, engineID)
		}
		return r
	}

	for _, p := range in.Positions {
		if p.EngineID == "" {
			continue
		}
		r := rowFor(p.EngineID)
		r.positionsCount++
		if p.Symbol != "" {
			r.symbols[p.Symbol] = struct{}{}
		}
	}

	for _, dr := range in.DefinedRisk {
		if dr.ExposureType != "DEFINED_RISK" || dr.EngineID == "" {
			continue
		}
		rowFor(dr.EngineID).definedRiskCents += dr.MaxLossCents
	}

	orphanTotal := int64(0)
	for _, sub := range in.Submissions {
		if sub.Evented || sub.EngineID == "" {
			continue
		}
		rowFor(sub.EngineID).orphanCount++
		orphanTotal++
	}

	sort.Strings(order)

	byEngine := make([]canonhash.Value, 0, len(order))
	for _, engineID := range order {
		r := rows[engineID]

		symbols := make([]string, 0, len(r.symbols))
		for s := range r.symbols {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		symbolVals := make([]canonhash.Value, len(symbols))
		for i, s := range symbols {
			symbolVals[i] = canonhash.Str(s)
		}

		definedRiskDollars, err := centsToDollarString(r.definedRiskCents, "by_engine["+engineID+"].defined_risk_exposure_cents")
		if err != nil {
			return AttributionResult{}, fail("defined-risk exposure for engine "+engineID+" is not convertible to whole dollars", err)
		}

		byEngine = append(byEngine, canonhash.Obj(map[string]canonhash.Value{
			"engine_id":             canonhash.Str(engineID),
			"realized_pnl_to_date":  canonhash.Str("0.00"),
			"unrealized_pnl":        canonhash.Str("0.00"),
			"defined_risk_exposure": canonhash.Str(definedRiskDollars),
			"positions_count":       canonhash.Int(r.positionsCount),
			"symbols":               canonhash.Arr(symbolVals...),
			"orphan_submissions":    canonhash.Int(r.orphanCount),
		}))
	}

	status := StatusOK
	reasonCodes := []canonhash.Value{canonhash.Str("ATTRIBUTION_BY_ENGINE_FROM_POSITIONS_LINEAGE")}
	if orphanTotal > 0 {
		status = StatusDegradedOrphanSubmission
		reasonCodes = append(reasonCodes, canonhash.Str("DEGRADED_ORPHAN_SUBMISSION"))
	}

	obj := map[string]canonhash.Value{
		"schema_id":      canonhash.Str("accounting_attribution.v1"),
		"schema_version": canonhash.Str("1"),
		"day_utc":        canonhash.Str(in.DayUTC),
		"produced_utc":   canonhash.Str(in.ProducedAtUTC),
		"status":         canonhash.Str(status),
		"reason_codes":   canonhash.Arr(reasonCodes...),
		"attribution": canonhash.Obj(map[string]canonhash.Value{
			"by_engine": canonhash.Arr(byEngine...),
		}),
		canonhash.SelfHashField: canonhash.Null(),
	}
	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("accounting_attribution.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return AttributionResult{}, fail("accounting_attribution failed schema validation", err)
		}
	}

	return AttributionResult{
		Object: canonhash.ToAny(canonhash.Obj(obj)).(map[string]any),
		Hash:   hash,
	}, nil
}
