// Copyright 2025 Constellation 2.0
//
// Package submit is the single broker-network boundary in the kernel: it
// derives a deterministic submission_id from the binding_hash, enforces
// idempotency and lineage, calls the broker's WhatIf and Submit
// operations through the abstract Adapter contract, enforces the
// RiskBudgetGate against the WhatIf projection, and assembles the
// resulting BrokerSubmissionRecord (and, when the broker returns ids,
// ExecutionEventRecord). Every failure path here -- schema, idempotency,
// lineage, digest mismatch, risk budget, or a broker exception -- folds
// onto a veto at boundary SUBMIT, mirroring the single fail-closed signal
// the offline preflight emits.
package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/constellation2/evidence-kernel/pkg/broker"
	"github.com/constellation2/evidence-kernel/pkg/builders/binding"
	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/immutablestore"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
)

// Input is the identity set and policy inputs a submission attempt needs.
type Input struct {
	OrderPlan           map[string]any
	MappingLedgerRecord map[string]any
	BindingRecord       map[string]any
	RiskBudget          map[string]any
	Env                 string
	EvalTimeUTC         string
	Pointers            []string
}

// Lineage is the minimal attribution every submission must carry.
type Lineage struct {
	EngineID       string
	SourceIntentID string
	IntentSHA256   string
}

// Outcome distinguishes a fully-closed submission from one where the
// broker never returned order/perm ids (exit-3 semantics upstream).
type Outcome string

const (
	OutcomeSuccess        Outcome = "SUCCESS"
	OutcomeSubmissionOnly Outcome = "SUBMISSION_ONLY"
)

// Result is what a successful (non-vetoed) submission attempt produces.
type Result struct {
	SubmissionID           string
	BindingHash            string
	Outcome                Outcome
	BrokerSubmissionRecord map[string]any
	ExecutionEventRecord   map[string]any
}

func fail(reason reasoncode.Code, detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundarySubmit, reason, detail, cause)
}

// DeriveSubmissionID returns the submission_id for bindingHash: the
// binding hash itself, required to be the kernel's 64-hex-char digest
// shape. Using the binding hash directly (rather than a counter or a
// wall-clock timestamp) is what makes the same binding_record always
// resolve to the same submission slot, which is the whole idempotency
// mechanism.
func DeriveSubmissionID(bindingHash string) (string, error) {
	if len(bindingHash) != 64 {
		return "", fmt.Errorf("binding_hash %q is not a valid 64-hex-char digest", bindingHash)
	}
	return bindingHash, nil
}

// CheckIdempotent prepares submissionDir via the store's empty-directory
// rule and translates a non-empty-directory failure into the idempotency
// reason code -- a second submission attempt against the same binding_hash
// always lands on the same directory, so a non-empty directory there means
// this submission_id has already been acted on.
func CheckIdempotent(store *immutablestore.Store, submissionDir string) *failclosed.StageError {
	if err := store.EnsureOutDirReady(submissionDir); err != nil {
		if storeErr, ok := err.(*immutablestore.Error); ok && storeErr.Code == immutablestore.CodeOutDirNotEmpty {
			return fail(reasoncode.IdempotencyDuplicateSubmission, "a submission already exists for this binding_hash", err)
		}
		return fail(reasoncode.SubmitFailClosedRequired, "unable to prepare submission directory", err)
	}
	return nil
}

// AssertLineage extracts and requires engine_id, source_intent_id, and
// intent_sha256 from orderPlan. Any of them missing or blank is a lineage
// violation: nothing the kernel submits may be un-attributable to an
// engine and an intent.
func AssertLineage(orderPlan map[string]any) (Lineage, *failclosed.StageError) {
	engineID, _ := orderPlan["engine_id"].(string)
	sourceIntentID, _ := orderPlan["source_intent_id"].(string)
	intentSHA256, _ := orderPlan["intent_sha256"].(string)

	if engineID == "" {
		return Lineage{}, fail(reasoncode.LineageViolation, "order_plan.engine_id is missing or empty", nil)
	}
	if sourceIntentID == "" {
		return Lineage{}, fail(reasoncode.LineageViolation, "order_plan.source_intent_id is missing or empty", nil)
	}
	if intentSHA256 == "" {
		return Lineage{}, fail(reasoncode.LineageViolation, "order_plan.intent_sha256 is missing or empty", nil)
	}
	return Lineage{EngineID: engineID, SourceIntentID: sourceIntentID, IntentSHA256: intentSHA256}, nil
}

// Submit runs the full submission boundary against an already-idempotency
// -checked submission slot: lineage assertion, broker payload digest
// verification, WhatIf + RiskBudgetGate, order submission, and
// assembly of the resulting evidence artifacts.
func Submit(ctx context.Context, in Input, adapter broker.Adapter) (Result, *failclosed.StageError) {
	if in.Env != "PAPER" {
		return Result{}, fail(reasoncode.BrokerEnvNotPaper, fmt.Sprintf("env must be PAPER, got %q", in.Env), nil)
	}
	if _, err := time.Parse(time.RFC3339, in.EvalTimeUTC); err != nil {
		return Result{}, fail(reasoncode.SubmitFailClosedRequired, "eval_time_utc is not a valid Z-suffixed UTC timestamp", err)
	}

	bindingHash, err := hashArtifact(in.BindingRecord)
	if err != nil {
		return Result{}, fail(reasoncode.SubmitFailClosedRequired, "failed to hash binding_record", err)
	}
	submissionID, err := DeriveSubmissionID(bindingHash)
	if err != nil {
		return Result{}, fail(reasoncode.SubmitFailClosedRequired, err.Error(), err)
	}

	lineage, stageErr := AssertLineage(in.OrderPlan)
	if stageErr != nil {
		return Result{}, stageErr
	}

	if err := binding.Verify(in.BindingRecord, in.OrderPlan); err != nil {
		return Result{}, fail(reasoncode.BindingHashMismatch, err.Error(), err)
	}

	if adapter == nil {
		return Result{}, fail(reasoncode.BrokerAdapterNotAvailable, "no broker adapter configured", nil)
	}

	digest, err := binding.RecomputeBrokerPayloadDigest(in.OrderPlan)
	if err != nil {
		return Result{}, fail(reasoncode.SubmitFailClosedRequired, "failed to recompute broker payload digest", err)
	}

	if err := adapter.Connect(ctx); err != nil {
		return Result{}, fail(reasoncode.BrokerAdapterNotAvailable, "broker adapter failed to connect", err)
	}
	defer adapter.Disconnect(ctx)

	whatif, err := adapter.WhatIf(ctx, digest)
	if err != nil {
		return Result{}, fail(reasoncode.WhatifRequired, "broker whatif call failed", err)
	}

	dec := EnforceRiskBudget(in.RiskBudget, whatif.MarginChangeUSD, whatif.NotionalUSD, lineage.EngineID)
	if !dec.Allow {
		return Result{}, fail(dec.Reason, dec.Detail, nil)
	}

	submitRes, err := adapter.Submit(ctx, digest)
	if err != nil {
		return Result{}, fail(reasoncode.SubmitFailClosedRequired, "broker submit call failed", err)
	}
	if in.Env == "PAPER" && hasSynthPrefix(submitRes.Status) {
		return Result{}, fail(reasoncode.SubmitFailClosedRequired, fmt.Sprintf("synthetic status %q forbidden in PAPER mode", submitRes.Status), nil)
	}

	bsrObj := map[string]canonhash.Value{
		"schema_id":        canonhash.Str("broker_submission_record.v3"),
		"schema_version":   canonhash.Str("3"),
		"submission_id":    canonhash.Str(submissionID),
		"submitted_at_utc": canonhash.Str(in.EvalTimeUTC),
		"binding_hash":     canonhash.Str(bindingHash),
		"engine_id":        canonhash.Str(lineage.EngineID),
		"source_intent_id": canonhash.Str(lineage.SourceIntentID),
		"intent_sha256":    canonhash.Str(lineage.IntentSHA256),
		"broker": canonhash.Obj(map[string]canonhash.Value{
			"name":        canonhash.Str("INTERACTIVE_BROKERS"),
			"environment": canonhash.Str("PAPER"),
		}),
		"status":                 canonhash.Str(submitRes.Status),
		"broker_submission_hash": canonhash.Str(submitRes.BrokerSubmissionHash),
		canonhash.SelfHashField:  canonhash.Null(),
	}
	bsrObj, _ = canonhash.InjectSelfHash(bsrObj, canonhash.SelfHashField)
	bsr := canonhash.ToAny(canonhash.Obj(bsrObj)).(map[string]any)

	if submitRes.BrokerSubmissionHash == "" {
		return Result{
			SubmissionID:           submissionID,
			BindingHash:            bindingHash,
			Outcome:                OutcomeSubmissionOnly,
			BrokerSubmissionRecord: bsr,
		}, nil
	}

	evtObj := map[string]canonhash.Value{
		"schema_id":               canonhash.Str("execution_event_record.v1"),
		"schema_version":          canonhash.Str("1"),
		"created_at_utc":          canonhash.Str(in.EvalTimeUTC),
		"event_time_utc":          canonhash.Str(in.EvalTimeUTC),
		"binding_hash":           canonhash.Str(bindingHash),
		"broker_submission_hash": canonhash.Str(submitRes.BrokerSubmissionHash),
		"status":                 canonhash.Str(submitRes.Status),
		canonhash.SelfHashField:  canonhash.Null(),
	}
	evtObj, _ = canonhash.InjectSelfHash(evtObj, canonhash.SelfHashField)
	evt := canonhash.ToAny(canonhash.Obj(evtObj)).(map[string]any)

	return Result{
		SubmissionID:           submissionID,
		BindingHash:            bindingHash,
		Outcome:                OutcomeSuccess,
		BrokerSubmissionRecord: bsr,
		ExecutionEventRecord:   evt,
	}, nil
}

func hasSynthPrefix(status string) bool {
	return len(status) >= 5 && status[:5] == "SYNTH"
}

func hashArtifact(obj map[string]any) (string, error) {
	cp := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		cp[k] = v
	}
	cp[canonhash.SelfHashField] = nil
	raw, err := json.Marshal(cp)
	if err != nil {
		return "", err
	}
	value, err := canonhash.Parse(raw)
	if err != nil {
		return "", err
	}
	return canonhash.CanonicalHash(value), nil
}
