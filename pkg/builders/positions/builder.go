package positions

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

type positionItem struct {
	positionID     string
	engineID       string
	sourceIntentID string
	intentSHA256   string
	instrument     canonhash.Value
	qty            int64
	avgCostCents   int64
}

func fail(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryNone, reasoncode.LineageViolation, detail, cause)
}

// BuildSnapshot folds a day's submission evidence into a positions_snapshot.v5
// artifact. Every item must carry engine_id/source_intent_id/intent_sha256
// from its BrokerSubmissionRecord v3 -- a submission missing any of them, or
// missing the record entirely, fails the whole day closed rather than
// silently dropping that one position, since an unattributed position is a
// lineage break the rest of accounting cannot recover from downstream.
// registry may be nil to skip schema validation.
func BuildSnapshot(in Input, registry *schemagate.Registry) (Result, *failclosed.StageError) {
	if in.DayUTC == "" {
		return Result{}, fail("day_utc is required", nil)
	}
	if in.ProducedAtUTC == "" {
		return Result{}, fail("produced_at_utc is required", nil)
	}

	subs := make([]SubmissionEvidence, len(in.Submissions))
	copy(subs, in.Submissions)
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmissionID < subs[j].SubmissionID })

	items := make([]positionItem, 0, len(subs))
	missingAttribution := false

	for _, sd := range subs {
		if sd.BrokerSubmissionRecord == nil {
			missingAttribution = true
			continue
		}

		engineID := strOf(sd.BrokerSubmissionRecord["engine_id"])
		sourceIntentID := strOf(sd.BrokerSubmissionRecord["source_intent_id"])
		intentSHA256 := strOf(sd.BrokerSubmissionRecord["intent_sha256"])
		if engineID == "" || sourceIntentID == "" || len(intentSHA256) != 64 {
			missingAttribution = true
			continue
		}

		if sd.ExecutionEventRecord == nil {
			continue
		}

		qty := intOf(sd.ExecutionEventRecord["filled_qty"])
		avgCents, err := priceToCents(strOf(sd.ExecutionEventRecord["avg_price"]))
		if err != nil {
			return Result{}, fail(fmt.Sprintf("submission %s has an unparseable avg_price", sd.SubmissionID), err)
		}

		instrument, err := instrumentOf(sd)
		if err != nil {
			return Result{}, fail(fmt.Sprintf("submission %s has no recoverable instrument identity", sd.SubmissionID), err)
		}

		positionID := strOf(sd.ExecutionEventRecord["binding_hash"])
		if positionID == "" {
			positionID = sd.SubmissionID
		}
		if positionID == "" {
			missingAttribution = true
			continue
		}

		items = append(items, positionItem{
			positionID:     positionID,
			engineID:       engineID,
			sourceIntentID: sourceIntentID,
			intentSHA256:   intentSHA256,
			instrument:     instrument,
			qty:            qty,
			avgCostCents:   avgCents,
		})
	}

	if missingAttribution {
		return Result{}, fail("missing engine attribution required for positions snapshot v5: every submission must carry a broker_submission_record.v3 with engine_id, source_intent_id, and a 64-hex-char intent_sha256", nil)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].positionID < items[j].positionID })

	itemVals := make([]canonhash.Value, len(items))
	for i, it := range items {
		itemVals[i] = canonhash.Obj(map[string]canonhash.Value{
			"position_id":      canonhash.Str(it.positionID),
			"engine_id":        canonhash.Str(it.engineID),
			"source_intent_id": canonhash.Str(it.sourceIntentID),
			"intent_sha256":    canonhash.Str(it.intentSHA256),
			"instrument":       it.instrument,
			"qty":              canonhash.Int(it.qty),
			"avg_cost_cents":   canonhash.Int(it.avgCostCents),
			"opened_day_utc":   canonhash.Str(in.DayUTC),
			"status":           canonhash.Str("OPEN"),
		})
	}

	obj := map[string]canonhash.Value{
		"schema_id":             canonhash.Str("positions_snapshot.v5"),
		"schema_version":        canonhash.Str("5"),
		"day_utc":               canonhash.Str(in.DayUTC),
		"produced_utc":          canonhash.Str(in.ProducedAtUTC),
		"status":                canonhash.Str("OK"),
		"reason_codes":          canonhash.Arr(canonhash.Str("ENGINE_ATTRIBUTION_FROM_BROKER_SUBMISSION_RECORD_V3")),
		"items":                 canonhash.Arr(itemVals...),
		canonhash.SelfHashField: canonhash.Null(),
	}
	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("positions_snapshot.v5", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return Result{}, fail("positions_snapshot failed schema validation", err)
		}
	}

	return Result{Object: canonhash.ToAny(canonhash.Obj(obj)).(map[string]any), Hash: hash}, nil
}

func instrumentOf(sd SubmissionEvidence) (canonhash.Value, error) {
	if sd.EquityOrderPlan != nil {
		symbol := strOf(sd.EquityOrderPlan["symbol"])
		currency := strOf(sd.EquityOrderPlan["currency"])
		return canonhash.Obj(map[string]canonhash.Value{
			"kind":     canonhash.Str("EQUITY"),
			"symbol":   canonhash.Str(symbol),
			"currency": canonhash.Str(currency),
		}), nil
	}
	if sd.OrderPlan != nil {
		legsAny, _ := sd.OrderPlan["legs"].([]any)
		if len(legsAny) == 0 {
			return canonhash.Value{}, fmt.Errorf("order_plan has no legs")
		}
		firstLeg, _ := legsAny[0].(map[string]any)
		contractKey := strOf(firstLeg["contract_key"])
		underlying, err := symbolFromContractKey(contractKey)
		if err != nil {
			return canonhash.Value{}, err
		}
		legVals := make([]canonhash.Value, len(legsAny))
		for i, l := range legsAny {
			leg, _ := l.(map[string]any)
			legVals[i] = canonhash.Obj(map[string]canonhash.Value{
				"action":       canonhash.Str(strOf(leg["action"])),
				"right":        canonhash.Str(strOf(leg["right"])),
				"strike":       canonhash.Str(strOf(leg["strike"])),
				"expiry_utc":   canonhash.Str(strOf(leg["expiry_utc"])),
				"contract_key": canonhash.Str(strOf(leg["contract_key"])),
			})
		}
		return canonhash.Obj(map[string]canonhash.Value{
			"kind":       canonhash.Str("OPTIONS_PLAN"),
			"underlying": canonhash.Str(underlying),
			"legs":       canonhash.Arr(legVals...),
		}), nil
	}
	return canonhash.Obj(map[string]canonhash.Value{"kind": canonhash.Str("UNKNOWN")}), nil
}

func symbolFromContractKey(contractKey string) (string, error) {
	parts := strings.SplitN(contractKey, "|", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", fmt.Errorf("contract_key %q does not carry a leading underlying symbol", contractKey)
	}
	return parts[0], nil
}

// priceToCents converts a fixed-2dp USD price string to integer cents
// without ever routing the value through a binary float.
func priceToCents(price string) (int64, error) {
	if price == "" {
		price = "0"
	}
	neg := strings.HasPrefix(price, "-")
	body := strings.TrimPrefix(strings.TrimPrefix(price, "-"), "+")
	whole, frac, hasDot := strings.Cut(body, ".")
	if whole == "" {
		whole = "0"
	}
	if !hasDot {
		frac = ""
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("avg_price %q has more than 2 decimal places", price)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	wholeN, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("avg_price %q has a non-numeric whole part", price)
	}
	fracN, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("avg_price %q has a non-numeric fractional part", price)
	}
	cents := wholeN*100 + fracN
	if neg {
		cents = -cents
	}
	return cents, nil
}

func strOf(v any) string {
	s, _ := v.(string)
	return s
}

func intOf(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
