// Copyright 2025 Constellation 2.0
//
// Package reasoncode is the closed enumeration of reason codes every
// VetoRecord and FailureRecord draws from. It is deliberately closed: a
// stage builder can only emit a code defined here, and Valid exists so the
// FailClosedController can refuse to write an artifact carrying an
// unrecognized code rather than silently widen the enumeration.
package reasoncode

// Code is a closed kernel reason code.
type Code string

const (
	OptionsOnlyViolation           Code = "C2_OPTIONS_ONLY_VIOLATION"
	DefinedRiskRequired            Code = "C2_DEFINED_RISK_REQUIRED"
	ExitPolicyRequired             Code = "C2_EXIT_POLICY_REQUIRED"
	FreshnessCertInvalidOrExpired  Code = "C2_FRESHNESS_CERT_INVALID_OR_EXPIRED"
	MappingFailClosedRequired      Code = "C2_MAPPING_FAIL_CLOSED_REQUIRED"
	SubmitFailClosedRequired       Code = "C2_SUBMIT_FAIL_CLOSED_REQUIRED"
	DeterminismCanonicalizeFailed  Code = "C2_DETERMINISM_CANONICALIZATION_FAILED"
	NondeterministicSelectionRule  Code = "C2_NONDETERMINISTIC_SELECTION_RULE"
	PriceDeterminismFailed         Code = "C2_PRICE_DETERMINISM_FAILED"
	BindingHashMismatch            Code = "C2_BINDING_HASH_MISMATCH"
	BrokerEnvNotPaper              Code = "C2_BROKER_ENV_NOT_PAPER"
	BrokerAdapterNotAvailable      Code = "C2_BROKER_ADAPTER_NOT_AVAILABLE"
	WhatifRequired                 Code = "C2_WHATIF_REQUIRED"
	RiskBudgetSchemaInvalid        Code = "C2_RISK_BUDGET_SCHEMA_INVALID"
	RiskBudgetExceeded             Code = "C2_RISK_BUDGET_EXCEEDED"
	IdempotencyDuplicateSubmission Code = "C2_IDEMPOTENCY_DUPLICATE_SUBMISSION"
	LineageViolation               Code = "C2_LINEAGE_VIOLATION"
	SingleWriterViolation          Code = "C2_SINGLE_WRITER_VIOLATION"
	KillSwitchActive               Code = "C2_KILL_SWITCH_ACTIVE"
)

var all = map[Code]struct{}{
	OptionsOnlyViolation:           {},
	DefinedRiskRequired:            {},
	ExitPolicyRequired:             {},
	FreshnessCertInvalidOrExpired:  {},
	MappingFailClosedRequired:      {},
	SubmitFailClosedRequired:       {},
	DeterminismCanonicalizeFailed:  {},
	NondeterministicSelectionRule:  {},
	PriceDeterminismFailed:         {},
	BindingHashMismatch:            {},
	BrokerEnvNotPaper:              {},
	BrokerAdapterNotAvailable:      {},
	WhatifRequired:                 {},
	RiskBudgetSchemaInvalid:        {},
	RiskBudgetExceeded:             {},
	IdempotencyDuplicateSubmission: {},
	LineageViolation:               {},
	SingleWriterViolation:          {},
	KillSwitchActive:               {},
}

// Valid reports whether c belongs to the closed enumeration.
func Valid(c Code) bool {
	_, ok := all[c]
	return ok
}
