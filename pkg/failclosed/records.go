package failclosed

import (
	"github.com/constellation2/evidence-kernel/pkg/canonhash"
)

// VetoInputs carries the identity-set hashes a VetoRecord binds to,
// whichever of them were available at the point of failure. Empty
// strings are omitted from the built artifact.
type VetoInputs struct {
	IntentHash        string
	PlanHash          string
	ChainSnapshotHash string
	FreshnessCertHash string
}

// BuildVetoRecord assembles a schema-shaped veto_record.v1 artifact as a
// canonhash.Value object tree, with canonical_json_hash injected last.
// producer is {repo, git_sha, module}.
func BuildVetoRecord(nowUTC string, stageErr *StageError, inputs VetoInputs, pointers []string, upstreamHash string, producer map[string]string) (map[string]canonhash.Value, string) {
	inputsObj := map[string]canonhash.Value{}
	if inputs.IntentHash != "" {
		inputsObj["intent_hash"] = canonhash.Str(inputs.IntentHash)
	}
	if inputs.PlanHash != "" {
		inputsObj["plan_hash"] = canonhash.Str(inputs.PlanHash)
	}
	if inputs.ChainSnapshotHash != "" {
		inputsObj["chain_snapshot_hash"] = canonhash.Str(inputs.ChainSnapshotHash)
	}
	if inputs.FreshnessCertHash != "" {
		inputsObj["freshness_cert_hash"] = canonhash.Str(inputs.FreshnessCertHash)
	}

	pointerVals := make([]canonhash.Value, len(pointers))
	for i, p := range pointers {
		pointerVals[i] = canonhash.Str(p)
	}

	producerVals := map[string]canonhash.Value{}
	for k, v := range producer {
		producerVals[k] = canonhash.Str(v)
	}

	obj := map[string]canonhash.Value{
		"schema_id":        canonhash.Str("veto_record.v1"),
		"schema_version":   canonhash.Str("1"),
		"observed_at_utc":  canonhash.Str(nowUTC),
		"boundary":         canonhash.Str(string(stageErr.Boundary)),
		"reason_code":      canonhash.Str(string(stageErr.Reason)),
		"reason_detail":    canonhash.Str(stageErr.Detail),
		"inputs":           canonhash.Obj(inputsObj),
		"pointers":         canonhash.Arr(pointerVals...),
		"upstream_hash":    nullableStr(upstreamHash),
		"producer":         canonhash.Obj(producerVals),
		canonhash.SelfHashField: canonhash.Null(),
	}

	updated, digest := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)
	return updated, digest
}

// BuildFailureRecord assembles a schema-shaped failure_record.v1 artifact
// for stages with no broker boundary (no MAPPING/SUBMIT distinction
// applies -- every other stage uses this instead of a VetoRecord).
func BuildFailureRecord(nowUTC string, stageErr *StageError, pointers []string, producer map[string]string) (map[string]canonhash.Value, string) {
	pointerVals := make([]canonhash.Value, len(pointers))
	for i, p := range pointers {
		pointerVals[i] = canonhash.Str(p)
	}
	producerVals := map[string]canonhash.Value{}
	for k, v := range producer {
		producerVals[k] = canonhash.Str(v)
	}

	obj := map[string]canonhash.Value{
		"schema_id":        canonhash.Str("failure_record.v1"),
		"schema_version":   canonhash.Str("1"),
		"observed_at_utc":  canonhash.Str(nowUTC),
		"reason_code":      canonhash.Str(string(stageErr.Reason)),
		"reason_detail":    canonhash.Str(stageErr.Detail),
		"pointers":         canonhash.Arr(pointerVals...),
		"producer":         canonhash.Obj(producerVals),
		canonhash.SelfHashField: canonhash.Null(),
	}

	updated, digest := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)
	return updated, digest
}

func nullableStr(s string) canonhash.Value {
	if s == "" {
		return canonhash.Null()
	}
	return canonhash.Str(s)
}
