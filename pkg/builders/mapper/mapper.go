package mapper

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/decimalcodec"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

// Schemas optionally validates the three inputs against their registered
// schemas before the mapper trusts them. A nil registry skips validation
// -- callers that already validated upstream (e.g. a pipeline that ran
// SchemaGate once for the whole identity set) may pass nil deliberately.
type Schemas struct {
	Registry         *schemagate.Registry
	IntentSchema     string
	ChainSchema      string
	FreshnessSchema  string
}

// MapVerticalSpread implements the full mapping algorithm: schema
// validation and hashing, freshness enforcement, expiry and strike
// selection, pricing, defined-risk proof, and OrderPlan/MappingLedger/
// BindingRecord assembly. On any fail-closed condition it returns a
// StageError carrying one of the six reason codes the mapping boundary is
// allowed to emit; callers hand that to failclosed.Controller.WriteVeto.
func MapVerticalSpread(in Input, schemas Schemas) (Result, *failclosed.StageError) {
	intentValue, intentHash, err := hashInput(schemas.Registry, schemas.IntentSchema, in.Intent)
	if err != nil {
		return Result{}, vetoDeterminism("failed to canonicalize or validate options intent", err)
	}
	_, chainHash, err := hashInput(schemas.Registry, schemas.ChainSchema, in.Chain)
	if err != nil {
		return Result{}, vetoDeterminism("failed to canonicalize or validate chain snapshot", err)
	}
	_, certHash, err := hashInput(schemas.Registry, schemas.FreshnessSchema, in.Cert)
	if err != nil {
		return Result{}, vetoDeterminism("failed to canonicalize or validate freshness certificate", err)
	}

	if err := enforceFreshness(in.Cert, chainHash, in.Chain.AsOfUTC, in.NowUTC); err != nil {
		return Result{}, vetoFreshness(err.Error(), err).WithPartialHashes(map[string]string{
			"intent_hash": intentHash, "chain_snapshot_hash": chainHash, "freshness_cert_hash": certHash,
		})
	}

	tick, err := decimalcodec.Parse(in.TickSize, "tick_size")
	if err != nil || tick.Sign() <= 0 {
		return Result{}, vetoPriceDeterminism("tick_size must be a positive decimal", err).WithPartialHashes(map[string]string{
			"intent_hash": intentHash, "chain_snapshot_hash": chainHash, "freshness_cert_hash": certHash,
		})
	}

	if in.Intent.Strategy.Structure != "VERTICAL_SPREAD" {
		return Result{}, vetoFailClosedRequired("mapper only implements VERTICAL_SPREAD structures", nil)
	}
	if in.Intent.ExitPolicy.PolicyID == "" {
		return Result{}, vetoExitPolicy("exit_policy.policy_id is required", nil)
	}

	roundingMode, ok := roundingModeFor(in.Intent.SelectionPolicy.PricingPolicy.RoundingMode)
	if !ok {
		return Result{}, vetoPriceDeterminism(fmt.Sprintf("unsupported rounding_mode %q", in.Intent.SelectionPolicy.PricingPolicy.RoundingMode), nil)
	}
	if in.Intent.SelectionPolicy.ExpiryPolicy.Mode != "DTE_WINDOW" {
		return Result{}, vetoDeterminism(fmt.Sprintf("unsupported expiry_policy.mode %q", in.Intent.SelectionPolicy.ExpiryPolicy.Mode), nil)
	}

	chainRight := rightToChainCode(in.Intent.Strategy.Right)
	liquid, err := filterLiquid(in.Chain.Contracts, chainRight, in.Intent.SelectionPolicy.LiquidityPolicy, in.Intent.SelectionPolicy.ExpiryPolicy, in.Chain.AsOfUTC)
	if err != nil {
		return Result{}, vetoDeterminism("failed to evaluate liquidity filter", err)
	}

	expiryUTC, ok := selectExpiry(liquid)
	if !ok {
		return Result{}, vetoDeterminism("no liquid contract satisfies the expiry window", nil)
	}
	candidates := withExpiry(liquid, expiryUTC)

	spot, err := decimalcodec.Parse(in.Chain.Underlying.SpotPrice, "underlying.spot_price")
	if err != nil {
		return Result{}, vetoPriceDeterminism("failed to parse underlying spot price", err)
	}
	width, err := decimalcodec.Parse(in.Intent.SelectionPolicy.WidthPolicy.WidthUSD, "selection_policy.width_policy.width_usd")
	if err != nil {
		return Result{}, vetoPriceDeterminism("failed to parse width_usd", err)
	}
	offset, err := decimalcodec.Parse(in.Intent.SelectionPolicy.PricingPolicy.OffsetUSD, "selection_policy.pricing_policy.offset_usd")
	if err != nil {
		return Result{}, vetoPriceDeterminism("failed to parse offset_usd", err)
	}

	sel, ok := selectStrikes(candidates, spot, in.Intent.Strategy, width)
	if !ok {
		return Result{}, vetoDeterminism("no strike pair satisfies the selection rule and required counterpart", nil)
	}

	pricing, err := priceAndRisk(sel, in.Intent.Strategy, width, offset, tick, roundingMode, in.Intent.Risk.Contracts, in.Intent.Risk.Multiplier)
	if err != nil {
		if errors.Is(err, errNonPositiveRisk) {
			return Result{}, vetoDefinedRisk(err.Error(), err)
		}
		return Result{}, vetoPriceDeterminism(err.Error(), err)
	}

	limitStr := decimalcodec.Format2dp(pricing.limit)
	seed := map[string]canonhash.Value{
		"kind":                canonhash.Str("order_plan_id_seed_v1"),
		"intent_hash":         canonhash.Str(intentHash),
		"chain_snapshot_hash": canonhash.Str(chainHash),
		"freshness_cert_hash": canonhash.Str(certHash),
		"expiry_utc":          canonhash.Str(expiryUTC),
		"short_contract_key":  canonhash.Str(sel.short.contract.ContractKey),
		"long_contract_key":   canonhash.Str(sel.long.contract.ContractKey),
		"limit_price":         canonhash.Str(limitStr),
	}
	planID := canonhash.CanonicalHash(canonhash.Obj(seed))

	maxLossStr := decimalcodec.Format2dp(pricing.maxLossUSD)

	legs := []canonhash.Value{
		canonhash.Obj(map[string]canonhash.Value{
			"action":       canonhash.Str("SELL"),
			"right":        canonhash.Str(chainRight),
			"strike":       canonhash.Str(decimalcodec.Format2dp(sel.short.strike)),
			"expiry_utc":   canonhash.Str(expiryUTC),
			"contract_key": canonhash.Str(sel.short.contract.ContractKey),
		}),
		canonhash.Obj(map[string]canonhash.Value{
			"action":       canonhash.Str("BUY"),
			"right":        canonhash.Str(chainRight),
			"strike":       canonhash.Str(decimalcodec.Format2dp(sel.long.strike)),
			"expiry_utc":   canonhash.Str(expiryUTC),
			"contract_key": canonhash.Str(sel.long.contract.ContractKey),
		}),
	}

	orderPlanObj := map[string]canonhash.Value{
		"schema_id":      canonhash.Str("order_plan.v1"),
		"schema_version": canonhash.Str("1"),
		"plan_id":        canonhash.Str(planID),
		"intent_hash":    canonhash.Str(intentHash),
		"legs":           canonhash.Arr(legs...),
		"order_terms": canonhash.Obj(map[string]canonhash.Value{
			"limit_price": canonhash.Str(limitStr),
		}),
		"risk_proof": canonhash.Obj(map[string]canonhash.Value{
			"max_loss_usd":        canonhash.Str(maxLossStr),
			"contracts":           canonhash.Int(in.Intent.Risk.Contracts),
			"multiplier":          canonhash.Int(in.Intent.Risk.Multiplier),
			"defined_risk_proven": canonhash.Bool(true),
		}),
		canonhash.SelfHashField: canonhash.Null(),
	}
	orderPlanObj, planHash := canonhash.InjectSelfHash(orderPlanObj, canonhash.SelfHashField)

	if err := validateIfRegistered(schemas.Registry, "order_plan.v1", orderPlanObj); err != nil {
		return Result{}, vetoDeterminism("order_plan failed schema validation", err)
	}

	selectionTrace := canonhash.Obj(map[string]canonhash.Value{
		"expiry_utc":         canonhash.Str(expiryUTC),
		"short_contract_key": canonhash.Str(sel.short.contract.ContractKey),
		"long_contract_key":  canonhash.Str(sel.long.contract.ContractKey),
		"short_mid":          canonhash.Str(decimalcodec.Format2dp(pricing.shortMid)),
		"long_mid":           canonhash.Str(decimalcodec.Format2dp(pricing.longMid)),
		"spread_mid":         canonhash.Str(decimalcodec.Format2dp(pricing.spreadMid)),
		"raw_limit":          canonhash.Str(decimalcodec.Format2dp(pricing.rawLimit)),
	})

	mappingObj := map[string]canonhash.Value{
		"schema_id":           canonhash.Str("mapping_ledger_record.v2"),
		"schema_version":      canonhash.Str("2"),
		"plan_hash":           canonhash.Str(planHash),
		"chain_snapshot_hash": canonhash.Str(chainHash),
		"freshness_cert_hash": canonhash.Str(certHash),
		"selection_trace":     selectionTrace,
		canonhash.SelfHashField: canonhash.Null(),
	}
	mappingObj, mappingHash := canonhash.InjectSelfHash(mappingObj, canonhash.SelfHashField)

	if err := validateIfRegistered(schemas.Registry, "mapping_ledger_record.v2", mappingObj); err != nil {
		return Result{}, vetoDeterminism("mapping_ledger_record failed schema validation", err)
	}

	bagPayload := canonhash.Obj(map[string]canonhash.Value{
		"kind":        canonhash.Str("ib_bag_payload_v1"),
		"underlying":  canonhash.Str(in.Chain.Underlying.Symbol),
		"legs":        canonhash.Arr(legs...),
		"limit_price": canonhash.Str(limitStr),
	})
	bagDigest := canonhash.CanonicalHash(bagPayload)

	bindingObj := map[string]canonhash.Value{
		"schema_id":          canonhash.Str("binding_record.v2"),
		"schema_version":     canonhash.Str("2"),
		"plan_hash":          canonhash.Str(planHash),
		"mapping_ledger_hash": canonhash.Str(mappingHash),
		"broker_payload_digest": canonhash.Obj(map[string]canonhash.Value{
			"digest_sha256": canonhash.Str(bagDigest),
			"format":        canonhash.Str("IB_BAG_V1"),
		}),
		"preflight": canonhash.Obj(map[string]canonhash.Value{
			"structure_is_vertical_spread": canonhash.Bool(true),
			"exit_policy_present":          canonhash.Bool(true),
		}),
		canonhash.SelfHashField: canonhash.Null(),
	}
	bindingObj, bindingHash := canonhash.InjectSelfHash(bindingObj, canonhash.SelfHashField)

	if err := validateIfRegistered(schemas.Registry, "binding_record.v2", bindingObj); err != nil {
		return Result{}, vetoDeterminism("binding_record failed schema validation", err)
	}

	return Result{
		OrderPlan:           canonhash.ToAny(canonhash.Obj(orderPlanObj)).(map[string]any),
		OrderPlanHash:       planHash,
		MappingLedgerRecord: canonhash.ToAny(canonhash.Obj(mappingObj)).(map[string]any),
		MappingLedgerHash:   mappingHash,
		BindingRecord:       canonhash.ToAny(canonhash.Obj(bindingObj)).(map[string]any),
		BindingHash:         bindingHash,
		IntentHash:          intentHash,
		ChainSnapshotHash:   chainHash,
		FreshnessCertHash:   certHash,
	}, nil
}

func rightToChainCode(right string) string {
	if right == "CALL" {
		return "C"
	}
	return "P"
}

// enforceFreshness implements the §3 freshness invariant: the
// certificate's bound snapshot hash and as-of timestamp must match the
// chain actually supplied, and now must fall inside the validity window.
func enforceFreshness(cert FreshnessCertificate, chainHash, chainAsOfUTC, nowUTC string) error {
	if cert.SnapshotHash != chainHash {
		return fmt.Errorf("freshness certificate snapshot_hash does not match supplied chain snapshot")
	}
	if cert.SnapshotAsOfUTC != chainAsOfUTC {
		return fmt.Errorf("freshness certificate snapshot_as_of_utc does not match chain as_of_utc")
	}
	if nowUTC < cert.ValidFromUTC || nowUTC > cert.ValidUntilUTC {
		return fmt.Errorf("now_utc %s falls outside certificate validity window [%s, %s]", nowUTC, cert.ValidFromUTC, cert.ValidUntilUTC)
	}
	return nil
}

// hashInput marshals v to JSON, canonicalizes it, optionally validates it
// against schemaName, and returns both the parsed Value and its hash.
func hashInput(registry *schemagate.Registry, schemaName string, v any) (canonhash.Value, string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return canonhash.Value{}, "", err
	}
	value, err := canonhash.Parse(raw)
	if err != nil {
		return canonhash.Value{}, "", err
	}
	if registry != nil && schemaName != "" {
		if err := registry.Validate(schemaName, canonhash.ToAny(value)); err != nil {
			return canonhash.Value{}, "", err
		}
	}
	return value, canonhash.CanonicalHash(value), nil
}

func validateIfRegistered(registry *schemagate.Registry, schemaName string, obj map[string]canonhash.Value) error {
	if registry == nil {
		return nil
	}
	return registry.Validate(schemaName, canonhash.ToAny(canonhash.Obj(obj)))
}
