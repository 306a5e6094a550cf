// Copyright 2025 Constellation 2.0
//
// Package freshness builds a FreshnessCertificate v1 bound to an
// OptionsChainSnapshot v1: issued_at_utc and valid_from_utc both equal
// the snapshot's as_of_utc, valid_until_utc is as_of_utc plus a policy
// max-age window, and snapshot_hash binds the certificate to the exact
// snapshot bytes it was issued against. No wall-clock read ever enters
// the certificate -- every timestamp here is derived from the snapshot's
// own as_of_utc.
package freshness

import (
	"fmt"
	"time"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

// Policy bounds the certificate's validity window. MaxAgeSeconds must be
// in [1, 86400]; ClockSkewToleranceSeconds in [0, 3600], matching the
// original capture-time sanity bounds.
type Policy struct {
	MaxAgeSeconds             int
	ClockSkewToleranceSeconds int
}

// Result is a built certificate plus its canonical hash.
type Result struct {
	Certificate map[string]any
	Hash        string
}

func fail(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryNone, reasoncode.DeterminismCanonicalizeFailed, detail, cause)
}

// BuildFreshnessCertificate issues a certificate bound to snapshot (the
// already-canonicalized snapshot object tree, as produced by
// pkg/builders/snapshot) and snapshotHash (its canonical hash). registry
// may be nil to skip schema validation.
func BuildFreshnessCertificate(snapshot map[string]any, snapshotHash string, policy Policy, registry *schemagate.Registry) (Result, *failclosed.StageError) {
	if policy.MaxAgeSeconds < 1 || policy.MaxAgeSeconds > 86400 {
		return Result{}, fail(fmt.Sprintf("policy.max_age_seconds %d out of range [1, 86400]", policy.MaxAgeSeconds), nil)
	}
	if policy.ClockSkewToleranceSeconds < 0 || policy.ClockSkewToleranceSeconds > 3600 {
		return Result{}, fail(fmt.Sprintf("policy.clock_skew_tolerance_seconds %d out of range [0, 3600]", policy.ClockSkewToleranceSeconds), nil)
	}

	asOfUTC, ok := snapshot["as_of_utc"].(string)
	if !ok || asOfUTC == "" {
		return Result{}, fail("snapshot.as_of_utc is missing or not a string", nil)
	}
	asOf, err := time.Parse(time.RFC3339, asOfUTC)
	if err != nil {
		return Result{}, fail("snapshot.as_of_utc is not a valid Z-suffixed UTC timestamp", err)
	}

	provenance, ok := snapshot["provenance"].(map[string]any)
	if !ok {
		return Result{}, fail("snapshot.provenance is missing or not an object", nil)
	}
	source, _ := provenance["source"].(string)
	captureMethod, _ := provenance["capture_method"].(string)
	if source == "" {
		return Result{}, fail("snapshot.provenance.source is missing or empty", nil)
	}
	if captureMethod == "" {
		return Result{}, fail("snapshot.provenance.capture_method is missing or empty", nil)
	}

	issuedAt := asOf
	validFrom := asOf
	validUntil := asOf.Add(time.Duration(policy.MaxAgeSeconds) * time.Second)

	obj := map[string]canonhash.Value{
		"schema_id":          canonhash.Str("freshness_certificate.v1"),
		"schema_version":     canonhash.Str("1"),
		"issued_at_utc":      canonhash.Str(formatUTCZ(issuedAt)),
		"valid_from_utc":     canonhash.Str(formatUTCZ(validFrom)),
		"valid_until_utc":    canonhash.Str(formatUTCZ(validUntil)),
		"snapshot_hash":      canonhash.Str(snapshotHash),
		"snapshot_as_of_utc": canonhash.Str(formatUTCZ(asOf)),
		"source":             canonhash.Str(source),
		"capture_method":     canonhash.Str(captureMethod),
		"policy": canonhash.Obj(map[string]canonhash.Value{
			"max_age_seconds":              canonhash.Int(int64(policy.MaxAgeSeconds)),
			"clock_skew_tolerance_seconds": canonhash.Int(int64(policy.ClockSkewToleranceSeconds)),
		}),
		canonhash.SelfHashField: canonhash.Null(),
	}
	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("freshness_certificate.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return Result{}, fail("certificate failed schema validation", err)
		}
	}

	return Result{Certificate: canonhash.ToAny(canonhash.Obj(obj)).(map[string]any), Hash: hash}, nil
}

func formatUTCZ(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
