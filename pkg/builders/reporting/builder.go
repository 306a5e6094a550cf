package reporting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

func fail(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryNone, reasoncode.LineageViolation, detail, cause)
}

// BuildSummary assembles daily_portfolio_summary.v1 plus its deterministic
// plain-text rendering, purely from the day's already-built accounting,
// allocation, and exit-reconciliation artifacts. registry may be nil to
// skip schema validation.
func BuildSummary(in Input, registry *schemagate.Registry) (Result, *failclosed.StageError) {
	if in.DayUTC == "" {
		return Result{}, fail("day_utc is required", nil)
	}
	if in.ProducedAtUTC == "" {
		return Result{}, fail("produced_at_utc is required", nil)
	}

	rows := append([]EngineAttributionRow(nil), in.Attribution.ByEngine...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].EngineID < rows[j].EngineID })

	byEngine := make([]canonhash.Value, len(rows))
	for i, r := range rows {
		byEngine[i] = canonhash.Obj(map[string]canonhash.Value{
			"engine_id":             canonhash.Str(r.EngineID),
			"realized_pnl_to_date":  canonhash.Str(r.RealizedPnLToDate),
			"unrealized_pnl":        canonhash.Str(r.UnrealizedPnL),
			"defined_risk_exposure": canonhash.Str(r.DefinedRiskExposure),
			"positions_count":       canonhash.Int(r.PositionsCount),
			"orphan_submissions":    canonhash.Int(r.OrphanSubmissions),
		})
	}

	obj := map[string]canonhash.Value{
		"schema_id":      canonhash.Str("daily_portfolio_summary.v1"),
		"schema_version": canonhash.Str("1"),
		"day_utc":        canonhash.Str(in.DayUTC),
		"produced_utc":   canonhash.Str(in.ProducedAtUTC),
		"trading_day":    canonhash.Str(string(in.TradingDay)),
		"nav": canonhash.Obj(map[string]canonhash.Value{
			"status":     canonhash.Str(in.NAV.Status),
			"nav_total":  canonhash.Str(in.NAV.NAVTotal),
			"cash_total": canonhash.Str(in.NAV.CashTotal),
		}),
		"exposure": canonhash.Obj(map[string]canonhash.Value{
			"status":             canonhash.Str(in.Exposure.Status),
			"total_defined_risk": canonhash.Str(in.Exposure.TotalDefinedRisk),
		}),
		"attribution": canonhash.Obj(map[string]canonhash.Value{
			"status":    canonhash.Str(in.Attribution.Status),
			"by_engine": canonhash.Arr(byEngine...),
		}),
		"allocation": canonhash.Obj(map[string]canonhash.Value{
			"total_decisions":   canonhash.Int(in.Allocation.TotalDecisions),
			"allowed_decisions": canonhash.Int(in.Allocation.AllowedDecisions),
			"blocked_decisions": canonhash.Int(in.Allocation.BlockedDecisions),
		}),
		"exit_reconciliation": canonhash.Obj(map[string]canonhash.Value{
			"status":           canonhash.Str(in.ExitReconciliation.Status),
			"obligation_count": canonhash.Int(in.ExitReconciliation.ObligationCount),
		}),
		canonhash.SelfHashField: canonhash.Null(),
	}
	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("daily_portfolio_summary.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return Result{}, fail("daily_portfolio_summary failed schema validation", err)
		}
	}

	return Result{
		Object: canonhash.ToAny(canonhash.Obj(obj)).(map[string]any),
		Hash:   hash,
		Text:   renderText(in, rows),
	}, nil
}

func renderText(in Input, rows []EngineAttributionRow) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CONSTELLATION 2.0 -- DAILY SUMMARY\n")
	fmt.Fprintf(&b, "Day: %s\n", in.DayUTC)
	fmt.Fprintf(&b, "Generated: %s\n", in.ProducedAtUTC)
	fmt.Fprintf(&b, "Exchange: %s\n", in.Exchange)
	fmt.Fprintf(&b, "Trading Day: %s\n\n", in.TradingDay)

	fmt.Fprintf(&b, "--- NAV ---\n")
	fmt.Fprintf(&b, "Status: %s\n", in.NAV.Status)
	fmt.Fprintf(&b, "NAV Total: %s\n", in.NAV.NAVTotal)
	fmt.Fprintf(&b, "Cash Total: %s\n\n", in.NAV.CashTotal)

	fmt.Fprintf(&b, "--- EXPOSURE ---\n")
	fmt.Fprintf(&b, "Status: %s\n", in.Exposure.Status)
	fmt.Fprintf(&b, "Total Defined Risk: %s\n\n", in.Exposure.TotalDefinedRisk)

	fmt.Fprintf(&b, "--- ATTRIBUTION (Status: %s) ---\n", in.Attribution.Status)
	if len(rows) == 0 {
		b.WriteString("None\n")
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%s:\n", r.EngineID)
		fmt.Fprintf(&b, "  Realized P&L: %s\n", r.RealizedPnLToDate)
		fmt.Fprintf(&b, "  Unrealized P&L: %s\n", r.UnrealizedPnL)
		fmt.Fprintf(&b, "  Defined Risk Exposure: %s\n", r.DefinedRiskExposure)
		fmt.Fprintf(&b, "  Positions: %d\n", r.PositionsCount)
		fmt.Fprintf(&b, "  Orphan Submissions: %d\n", r.OrphanSubmissions)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "--- ALLOCATION ---\n")
	fmt.Fprintf(&b, "Total Decisions: %d\n", in.Allocation.TotalDecisions)
	fmt.Fprintf(&b, "Allowed: %d\n", in.Allocation.AllowedDecisions)
	fmt.Fprintf(&b, "Blocked: %d\n\n", in.Allocation.BlockedDecisions)

	fmt.Fprintf(&b, "--- EXIT RECONCILIATION ---\n")
	fmt.Fprintf(&b, "Status: %s\n", in.ExitReconciliation.Status)
	fmt.Fprintf(&b, "Obligations: %d\n", in.ExitReconciliation.ObligationCount)

	return b.String()
}
