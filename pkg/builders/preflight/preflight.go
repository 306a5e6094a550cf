// Copyright 2025 Constellation 2.0
//
// Package preflight implements the offline, no-broker-calls submission
// preflight: given an identity set (intent, optionally chain+cert, order
// plan, mapping ledger, binding record), it recomputes every hash in the
// chain, re-checks the invariants the earlier stages are supposed to have
// already enforced, and either allows submission or vetoes at boundary
// SUBMIT. It never calls a broker.
package preflight

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

// Input is the identity set the preflight evaluates. ChainSnapshot and
// FreshnessCert are required for the options path and nil on the equity
// path.
type Input struct {
	Intent              map[string]any
	ChainSnapshot       map[string]any
	FreshnessCert       map[string]any
	OrderPlan           map[string]any
	MappingLedgerRecord map[string]any
	BindingRecord       map[string]any
	EvalTimeUTC         string
	Pointers            []string
}

// Decision is a schema-shaped submit_preflight_decision.v1 artifact.
type Decision struct {
	Object map[string]any
	Hash   string
}

func fail(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundarySubmit, reasoncode.SubmitFailClosedRequired, detail, cause)
}

// Evaluate runs the preflight. registry may be nil to skip schema
// validation of the identity set.
func Evaluate(in Input, registry *schemagate.Registry) (Decision, *failclosed.StageError) {
	if _, err := parseUTCZ(in.EvalTimeUTC); err != nil {
		return Decision{}, fail("eval_time_utc must be a Z-suffixed UTC timestamp", err)
	}

	schemaID, _ := in.Intent["schema_id"].(string)

	var bindingHash string
	var stageErr *failclosed.StageError
	switch schemaID {
	case "options_intent":
		bindingHash, stageErr = evaluateOptionsPath(in, registry)
	case "equity_intent":
		bindingHash, stageErr = evaluateEquityPath(in, registry)
	default:
		stageErr = fail(fmt.Sprintf("unsupported intent schema_id %q", schemaID), nil)
	}
	if stageErr != nil {
		return Decision{}, stageErr
	}

	obj := map[string]canonhash.Value{
		"schema_id":             canonhash.Str("submit_preflight_decision.v1"),
		"schema_version":        canonhash.Str("1"),
		"created_at_utc":        canonhash.Str(in.EvalTimeUTC),
		"binding_hash":          canonhash.Str(bindingHash),
		"decision":              canonhash.Str("ALLOW"),
		"upstream_hash":         canonhash.Str(bindingHash),
		canonhash.SelfHashField: canonhash.Null(),
	}
	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("submit_preflight_decision.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return Decision{}, fail("submit_preflight_decision failed schema validation", err)
		}
	}

	return Decision{Object: canonhash.ToAny(canonhash.Obj(obj)).(map[string]any), Hash: hash}, nil
}

func evaluateOptionsPath(in Input, registry *schemagate.Registry) (string, *failclosed.StageError) {
	if in.ChainSnapshot == nil || in.FreshnessCert == nil {
		return "", fail("options path requires chain_snapshot and freshness_cert", nil)
	}

	if err := validateAll(registry, map[string]map[string]any{
		"options_intent.v2":         in.Intent,
		"options_chain_snapshot.v1": in.ChainSnapshot,
		"freshness_certificate.v1":  in.FreshnessCert,
		"order_plan.v1":             in.OrderPlan,
		"mapping_ledger_record.v2":  in.MappingLedgerRecord,
		"binding_record.v2":         in.BindingRecord,
	}); err != nil {
		return "", fail("identity set failed schema validation", err)
	}

	intentHash, err := hashObj(in.Intent)
	if err != nil {
		return "", fail("failed to hash intent", err)
	}
	chainHash, err := hashObj(in.ChainSnapshot)
	if err != nil {
		return "", fail("failed to hash chain_snapshot", err)
	}
	planHash, err := hashArtifact(in.OrderPlan)
	if err != nil {
		return "", fail("failed to hash order_plan", err)
	}
	mappingHash, err := hashArtifact(in.MappingLedgerRecord)
	if err != nil {
		return "", fail("failed to hash mapping_ledger_record", err)
	}
	bindingHash, err := hashArtifact(in.BindingRecord)
	if err != nil {
		return "", fail("failed to hash binding_record", err)
	}

	evalTime, _ := parseUTCZ(in.EvalTimeUTC)
	validFrom, err := parseUTCZ(strOf(in.FreshnessCert["valid_from_utc"]))
	if err != nil {
		return "", fail("freshness_cert.valid_from_utc is invalid", err)
	}
	validUntil, err := parseUTCZ(strOf(in.FreshnessCert["valid_until_utc"]))
	if err != nil {
		return "", fail("freshness_cert.valid_until_utc is invalid", err)
	}
	if evalTime.Before(validFrom) || evalTime.After(validUntil) {
		return "", fail("freshness certificate expired or not yet valid", nil)
	}
	if strOf(in.FreshnessCert["snapshot_hash"]) != chainHash {
		return "", fail("freshness_cert.snapshot_hash does not match recomputed chain_snapshot hash", nil)
	}
	if strOf(in.FreshnessCert["snapshot_as_of_utc"]) != strOf(in.ChainSnapshot["as_of_utc"]) {
		return "", fail("freshness_cert.snapshot_as_of_utc does not match chain_snapshot.as_of_utc", nil)
	}

	if strOf(in.OrderPlan["intent_hash"]) != intentHash {
		return "", fail("order_plan.intent_hash does not match recomputed intent hash", nil)
	}
	if strOf(in.MappingLedgerRecord["plan_hash"]) != planHash {
		return "", fail("mapping_ledger_record.plan_hash does not match recomputed order_plan hash", nil)
	}
	if strOf(in.BindingRecord["plan_hash"]) != planHash {
		return "", fail("binding_record.plan_hash does not match recomputed order_plan hash", nil)
	}
	if strOf(in.BindingRecord["mapping_ledger_hash"]) != mappingHash {
		return "", fail("binding_record.mapping_ledger_hash does not match recomputed mapping_ledger_record hash", nil)
	}

	legsAny, _ := in.OrderPlan["legs"].([]any)
	if strOf(in.OrderPlan["structure"]) != "VERTICAL_SPREAD" {
		return "", fail("options-only constraint violated: structure is not VERTICAL_SPREAD", nil)
	}
	if len(legsAny) != 2 {
		return "", fail("defined-risk constraint violated: order_plan does not carry exactly 2 legs", nil)
	}
	actions := make([]string, 0, 2)
	for _, l := range legsAny {
		leg, _ := l.(map[string]any)
		actions = append(actions, strOf(leg["action"]))
	}
	sort.Strings(actions)
	if len(actions) != 2 || actions[0] != "BUY" || actions[1] != "SELL" {
		return "", fail("defined-risk constraint violated: leg actions are not exactly {BUY, SELL}", nil)
	}

	exitPolicy, _ := in.OrderPlan["exit_policy_ref"].(map[string]any)
	if strOf(exitPolicy["policy_id"]) == "" {
		return "", fail("exit_policy missing from order_plan", nil)
	}

	return bindingHash, nil
}

func evaluateEquityPath(in Input, registry *schemagate.Registry) (string, *failclosed.StageError) {
	planSchema := "equity_order_plan.v1"
	if strOf(in.OrderPlan["schema_version"]) == "2" {
		planSchema = "equity_order_plan.v2"
	}
	if err := validateAll(registry, map[string]map[string]any{
		"equity_intent.v1":         in.Intent,
		planSchema:                 in.OrderPlan,
		"mapping_ledger_record.v2": in.MappingLedgerRecord,
		"binding_record.v2":        in.BindingRecord,
	}); err != nil {
		return "", fail("identity set failed schema validation", err)
	}

	intentHash, err := hashObj(in.Intent)
	if err != nil {
		return "", fail("failed to hash intent", err)
	}
	planHash, err := hashArtifact(in.OrderPlan)
	if err != nil {
		return "", fail("failed to hash equity_order_plan", err)
	}
	mappingHash, err := hashArtifact(in.MappingLedgerRecord)
	if err != nil {
		return "", fail("failed to hash mapping_ledger_record", err)
	}
	bindingHash, err := hashArtifact(in.BindingRecord)
	if err != nil {
		return "", fail("failed to hash binding_record", err)
	}

	if strOf(in.OrderPlan["intent_hash"]) != intentHash {
		return "", fail("equity_order_plan.intent_hash does not match recomputed intent hash", nil)
	}
	if strOf(in.MappingLedgerRecord["plan_hash"]) != planHash {
		return "", fail("mapping_ledger_record.plan_hash does not match recomputed equity_order_plan hash", nil)
	}
	if strOf(in.BindingRecord["plan_hash"]) != planHash {
		return "", fail("binding_record.plan_hash does not match recomputed equity_order_plan hash", nil)
	}
	if strOf(in.BindingRecord["mapping_ledger_hash"]) != mappingHash {
		return "", fail("binding_record.mapping_ledger_hash does not match recomputed mapping_ledger_record hash", nil)
	}
	if strOf(in.OrderPlan["structure"]) != "EQUITY_SPOT" {
		return "", fail("equity structure mismatch: order_plan.structure is not EQUITY_SPOT", nil)
	}

	return bindingHash, nil
}

func validateAll(registry *schemagate.Registry, byName map[string]map[string]any) error {
	if registry == nil {
		return nil
	}
	for name, obj := range byName {
		if obj == nil {
			continue
		}
		if err := registry.Validate(name, obj); err != nil {
			return err
		}
	}
	return nil
}

// hashObj hashes obj verbatim, byte-for-byte as given -- used for raw
// upstream inputs (intent, chain snapshot) that never carry a self-hash
// field of their own.
func hashObj(obj map[string]any) (string, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	value, err := canonhash.Parse(raw)
	if err != nil {
		return "", err
	}
	return canonhash.CanonicalHash(value), nil
}

// hashArtifact recomputes a kernel-produced artifact's self-hash: the
// artifact's own canonical_json_hash field is nulled out before hashing,
// mirroring exactly how the builder that produced it computed that value
// in the first place (canonhash.InjectSelfHash). Hashing the artifact
// verbatim -- with its real self-hash value still embedded -- would never
// reproduce the hash the rest of the chain is keyed on.
func hashArtifact(obj map[string]any) (string, error) {
	cp := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		cp[k] = v
	}
	cp[canonhash.SelfHashField] = nil
	return hashObj(cp)
}

func parseUTCZ(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	return time.Parse(time.RFC3339, ts)
}

func strOf(v any) string {
	s, _ := v.(string)
	return s
}
