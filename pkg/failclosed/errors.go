// Copyright 2025 Constellation 2.0
//
// Package failclosed converts any error raised inside a pipeline stage
// into a schema-valid VetoRecord or FailureRecord and never lets a stage
// emit partial success. StageError carries its reason code as a typed
// field assigned at the point of construction -- there is no string
// matching on error messages anywhere in this package or its callers.
package failclosed

import (
	"fmt"

	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
)

// Boundary names which side of the broker network boundary a veto
// occurred on, per the kernel's error taxonomy.
type Boundary string

const (
	BoundaryMapping Boundary = "MAPPING"
	BoundarySubmit  Boundary = "SUBMIT"
	// BoundaryNone marks a stage with no broker-network boundary at all
	// (SnapshotBuilder, FreshnessBuilder, PositionsBuilder, and friends).
	// These stages fail closed with a FailureRecord rather than a
	// boundary-tagged VetoRecord, so Boundary is carried on StageError only
	// for uniformity, never inspected by BuildFailureRecord.
	BoundaryNone Boundary = "NONE"
)

// StageError is the one error type every builder in this repository
// raises on a fail-closed path. Reason is assigned by the builder at the
// point of the return, never recovered later by inspecting Detail or
// Cause -- this is the kernel's resolution of the classic
// substring-sniffing anti-pattern.
type StageError struct {
	Boundary      Boundary
	Reason        reasoncode.Code
	Detail        string
	PartialHashes map[string]string
	Cause         error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s[boundary=%s]: %s: %v", e.Reason, e.Boundary, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s[boundary=%s]: %s", e.Reason, e.Boundary, e.Detail)
}

func (e *StageError) Unwrap() error { return e.Cause }

// New builds a StageError with an explicit reason code. It panics if
// reason does not belong to the closed reasoncode enumeration -- a
// programmer error, never something that should surface as a veto with a
// garbage code.
func New(boundary Boundary, reason reasoncode.Code, detail string, cause error) *StageError {
	if !reasoncode.Valid(reason) {
		panic(fmt.Sprintf("failclosed: reason code %q is not in the closed enumeration", reason))
	}
	return &StageError{Boundary: boundary, Reason: reason, Detail: detail, Cause: cause}
}

// WithPartialHashes attaches whatever upstream hashes a stage managed to
// compute before failing, so the resulting VetoRecord carries as much
// lineage context as is honestly available.
func (e *StageError) WithPartialHashes(hashes map[string]string) *StageError {
	cp := make(map[string]string, len(hashes))
	for k, v := range hashes {
		cp[k] = v
	}
	e.PartialHashes = cp
	return e
}
