package allocation

import (
	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/decimalcodec"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

var (
	thresholdSevere   = mustParse("-0.15")
	thresholdModerate = mustParse("-0.10")
	thresholdMild     = mustParse("-0.05")
	multSevere        = mustParse("0.25")
	multModerate      = mustParse("0.50")
	multMild          = mustParse("0.75")
	multNone          = mustParse("1.00")
)

func mustParse(s string) decimalcodec.Decimal {
	d, err := decimalcodec.Parse(s, "allocation_constant")
	if err != nil {
		panic(err)
	}
	return d
}

func fail(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryNone, reasoncode.LineageViolation, detail, cause)
}

// drawdownMultiplier looks up the left-closed drawdown multiplier table:
// dd <= -0.15 -> 0.25; dd <= -0.10 -> 0.50; dd <= -0.05 -> 0.75; else 1.00.
func drawdownMultiplier(ddPct string) (decimalcodec.Decimal, error) {
	if ddPct == "" {
		return multNone, nil
	}
	dd, err := decimalcodec.Parse(ddPct, "drawdown_pct")
	if err != nil {
		return decimalcodec.Decimal{}, err
	}
	switch {
	case dd.Cmp(thresholdSevere) <= 0:
		return multSevere, nil
	case dd.Cmp(thresholdModerate) <= 0:
		return multModerate, nil
	case dd.Cmp(thresholdMild) <= 0:
		return multMild, nil
	default:
		return multNone, nil
	}
}

// BuildDecision evaluates one intent against its engine's cap, the
// portfolio's current drawdown, and any additional risk-envelope clamp,
// and assembles an allocation_decision.v1 artifact. An EXIT intent
// (target_notional_pct == 0) is always allowed, even when accounting is
// degraded, since exiting a position can never increase risk. registry
// may be nil to skip schema validation.
func BuildDecision(in DecisionInput, registry *schemagate.Registry) (DecisionResult, *failclosed.StageError) {
	if in.Intent.IntentID == "" {
		return DecisionResult{}, fail("intent_id is required", nil)
	}
	if in.Intent.EngineID == "" {
		return DecisionResult{}, fail("engine_id is required", nil)
	}
	if in.EngineCapPct == "" {
		return DecisionResult{}, fail("engine_cap_pct is required for engine "+in.Intent.EngineID, nil)
	}

	engineCap, err := decimalcodec.Parse(in.EngineCapPct, "engine_cap_pct")
	if err != nil {
		return DecisionResult{}, fail("engine_cap_pct is not a valid decimal", err)
	}
	target, err := decimalcodec.Parse(in.Intent.TargetNotionalPct, "target_notional_pct")
	if err != nil {
		return DecisionResult{}, fail("target_notional_pct is not a valid decimal", err)
	}

	ddMult, err := drawdownMultiplier(in.DrawdownPct)
	if err != nil {
		return DecisionResult{}, fail("drawdown_pct is not a valid decimal", err)
	}

	envelopeMult := multNone
	if in.RiskEnvelopeMultiplier != "" {
		envelopeMult, err = decimalcodec.Parse(in.RiskEnvelopeMultiplier, "risk_envelope_multiplier")
		if err != nil {
			return DecisionResult{}, fail("risk_envelope_multiplier is not a valid decimal", err)
		}
	}

	effectiveCap := decimalcodec.Quantize(engineCap.Mul(ddMult).Mul(envelopeMult), 6, decimalcodec.RoundHalfUp)

	isExit := target.Sign() == 0
	allowed := isExit
	decision := "ALLOW"
	reasonCode := "G_EXIT_INTENT_ALWAYS_ALLOWED_V2"

	if !isExit {
		switch {
		case !in.AccountingStatusOK:
			allowed = false
			reasonCode = "ACCOUNTING_DEGRADED"
		case target.Cmp(effectiveCap) > 0:
			allowed = false
			reasonCode = "TARGET_EXCEEDS_EFFECTIVE_CAP"
		default:
			allowed = true
			reasonCode = "WITHIN_EFFECTIVE_CAP"
		}
	}
	if !allowed {
		decision = "BLOCK"
	}

	obj := map[string]canonhash.Value{
		"schema_id":                canonhash.Str("allocation_decision.v1"),
		"schema_version":           canonhash.Str("1"),
		"intent_id":                canonhash.Str(in.Intent.IntentID),
		"engine_id":                canonhash.Str(in.Intent.EngineID),
		"status":                   canonhash.Str("OK"),
		"decision":                 canonhash.Str(decision),
		"reason_codes":             canonhash.Arr(canonhash.Str(reasonCode)),
		"target_notional_pct":      canonhash.Str(decimalcodec.Format(target, 6)),
		"engine_cap_pct":           canonhash.Str(decimalcodec.Format(engineCap, 6)),
		"drawdown_multiplier":      canonhash.Str(decimalcodec.Format(ddMult, 6)),
		"risk_envelope_multiplier": canonhash.Str(decimalcodec.Format(envelopeMult, 6)),
		"effective_cap_pct":        canonhash.Str(decimalcodec.Format(effectiveCap, 6)),
		canonhash.SelfHashField:    canonhash.Null(),
	}
	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("allocation_decision.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return DecisionResult{}, fail("allocation_decision failed schema validation", err)
		}
	}

	return DecisionResult{
		Object:  canonhash.ToAny(canonhash.Obj(obj)).(map[string]any),
		Hash:    hash,
		Allowed: allowed,
	}, nil
}
