package definedrisk

import (
	"sort"
	"strconv"
	"strings"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

func fail(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryNone, reasoncode.DefinedRiskRequired, detail, cause)
}

// BuildSnapshot classifies every item in in.Items as DEFINED_RISK or
// UNDEFINED_RISK from its order_plan evidence (if any) and assembles
// defined_risk_snapshot.v1. A position whose order_plan claims
// defined_risk_proven but carries a malformed max_loss_usd fails the
// whole build closed -- that is a lineage defect, not a per-position
// degrade, since risk_proof is supposed to already be the kernel's
// ground truth by the time it reaches here. registry may be nil to skip
// schema validation.
func BuildSnapshot(in Input, registry *schemagate.Registry) (Result, *failclosed.StageError) {
	if in.DayUTC == "" {
		return Result{}, fail("day_utc is required", nil)
	}
	if in.ProducedAtUTC == "" {
		return Result{}, fail("produced_at_utc is required", nil)
	}

	items := make([]Item, len(in.Items))
	copy(items, in.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].PositionID < items[j].PositionID })

	results := make([]ItemResult, 0, len(items))
	missing := 0

	for _, item := range items {
		if item.PositionID == "" {
			return Result{}, fail("position_id is required on every defined-risk item", nil)
		}

		plan := item.OrderPlan
		switch {
		case plan == nil:
			results = append(results, ItemResult{
				PositionID:         item.PositionID,
				Underlying:         "unknown",
				MarketExposureType: ExposureTypeUndefinedRisk,
				Notes:              []string{"order_plan not found for position (cannot prove defined risk)"},
			})
			missing++

		case !plan.DefinedRiskProven:
			results = append(results, ItemResult{
				PositionID:         item.PositionID,
				Underlying:         underlyingFromContractKey(plan.ShortContractKey),
				ExpiryUTC:          plan.ExpiryUTC,
				MarketExposureType: ExposureTypeUndefinedRisk,
				OrderPlanHash:      plan.Hash,
				Notes:              []string{"risk_proof.defined_risk_proven != true"},
			})
			missing++

		default:
			cents, err := usdToCents(plan.MaxLossUSD)
			if err != nil {
				return Result{}, fail("order_plan.risk_proof.max_loss_usd for position "+item.PositionID+" is not a valid USD amount", err)
			}
			results = append(results, ItemResult{
				PositionID:         item.PositionID,
				Underlying:         underlyingFromContractKey(plan.ShortContractKey),
				ExpiryUTC:          plan.ExpiryUTC,
				MarketExposureType: ExposureTypeDefinedRisk,
				MaxLossCents:       &cents,
				OrderPlanHash:      plan.Hash,
				Notes:              []string{"max_loss_cents derived from order_plan.risk_proof.max_loss_usd (deterministic)"},
			})
		}
	}

	status := StatusOK
	reasonCodes := []canonhash.Value{canonhash.Str("DEFINED_RISK_FROM_ORDER_PLAN_RISK_PROOF_V1")}
	if missing > 0 {
		status = StatusDegradedPartial
		reasonCodes = append(reasonCodes, canonhash.Str("MISSING_DEFINED_RISK_FOR_SOME_POSITIONS"))
	}

	itemVals := make([]canonhash.Value, len(results))
	for i, r := range results {
		noteVals := make([]canonhash.Value, len(r.Notes))
		for j, n := range r.Notes {
			noteVals[j] = canonhash.Str(n)
		}
		maxLoss := canonhash.Null()
		if r.MaxLossCents != nil {
			maxLoss = canonhash.Int(*r.MaxLossCents)
		}
		itemVals[i] = canonhash.Obj(map[string]canonhash.Value{
			"position_id":          canonhash.Str(r.PositionID),
			"underlying":           canonhash.Str(r.Underlying),
			"expiry_utc":           canonhash.Str(r.ExpiryUTC),
			"market_exposure_type": canonhash.Str(r.MarketExposureType),
			"max_loss_cents":       maxLoss,
			"order_plan_hash":      canonhash.Str(r.OrderPlanHash),
			"notes":                canonhash.Arr(noteVals...),
		})
	}

	obj := map[string]canonhash.Value{
		"schema_id":      canonhash.Str("defined_risk_snapshot.v1"),
		"schema_version": canonhash.Str("1"),
		"day_utc":        canonhash.Str(in.DayUTC),
		"produced_utc":   canonhash.Str(in.ProducedAtUTC),
		"status":         canonhash.Str(status),
		"reason_codes":   canonhash.Arr(reasonCodes...),
		"defined_risk": canonhash.Obj(map[string]canonhash.Value{
			"currency": canonhash.Str("USD"),
			"items":    canonhash.Arr(itemVals...),
		}),
		canonhash.SelfHashField: canonhash.Null(),
	}
	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("defined_risk_snapshot.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return Result{}, fail("defined_risk_snapshot failed schema validation", err)
		}
	}

	return Result{
		Object: canonhash.ToAny(canonhash.Obj(obj)).(map[string]any),
		Hash:   hash,
		Status: status,
		Items:  results,
	}, nil
}

// underlyingFromContractKey recovers the underlying symbol from a
// contract_key's leading "SYMBOL|..." segment -- the same convention
// positions snapshots use to recover a symbol from lineage that never
// carried one as its own field. Falls back to "unknown" rather than
// failing the whole build: a malformed contract_key here is an
// UNDEFINED_RISK day's problem, not a reason to veto the artifact.
func underlyingFromContractKey(contractKey string) string {
	parts := strings.SplitN(contractKey, "|", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "unknown"
	}
	return parts[0]
}

// usdToCents converts a fixed-2dp USD amount string to integer cents
// without ever routing the value through a binary float, failing closed
// on anything that isn't exactly whole-dollars-and-cents: empty string,
// a non-digit part, or more than 2 fractional digits.
func usdToCents(usd string) (int64, error) {
	if usd == "" {
		return 0, strconvSyntaxError("max_loss_usd is empty")
	}
	neg := strings.HasPrefix(usd, "-")
	body := strings.TrimPrefix(strings.TrimPrefix(usd, "-"), "+")
	whole, frac, hasDot := strings.Cut(body, ".")
	if whole == "" {
		whole = "0"
	}
	if !hasDot {
		frac = ""
	}
	if len(frac) > 2 {
		return 0, strconvSyntaxError("max_loss_usd has more than 2 decimal places")
	}
	for len(frac) < 2 {
		frac += "0"
	}
	wholeN, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, strconvSyntaxError("max_loss_usd has a non-numeric whole part")
	}
	fracN, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, strconvSyntaxError("max_loss_usd has a non-numeric fractional part")
	}
	cents := wholeN*100 + fracN
	if neg {
		cents = -cents
	}
	return cents, nil
}

type strconvSyntaxError string

func (e strconvSyntaxError) Error() string { return string(e) }
