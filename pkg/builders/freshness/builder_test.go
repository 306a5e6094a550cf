package freshness

import "testing"

func sampleSnapshot() map[string]any {
	return map[string]any{
		"as_of_utc": "2026-02-13T21:50:00Z",
		"provenance": map[string]any{
			"source":         "IB_GATEWAY",
			"capture_method": "POLL",
		},
	}
}

func TestBuildFreshnessCertificateDerivesWindowFromSnapshot(t *testing.T) {
	r, err := BuildFreshnessCertificate(sampleSnapshot(), "deadbeef", Policy{MaxAgeSeconds: 300, ClockSkewToleranceSeconds: 5}, nil)
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	if r.Certificate["valid_from_utc"] != "2026-02-13T21:50:00Z" {
		t.Fatalf("expected valid_from_utc == snapshot.as_of_utc, got %v", r.Certificate["valid_from_utc"])
	}
	if r.Certificate["valid_until_utc"] != "2026-02-13T21:55:00Z" {
		t.Fatalf("expected valid_until_utc == as_of_utc + max_age_seconds, got %v", r.Certificate["valid_until_utc"])
	}
	if r.Certificate["snapshot_hash"] != "deadbeef" {
		t.Fatalf("expected certificate bound to supplied snapshot_hash, got %v", r.Certificate["snapshot_hash"])
	}
}

func TestBuildFreshnessCertificateIsDeterministic(t *testing.T) {
	snap := sampleSnapshot()
	r1, err1 := BuildFreshnessCertificate(snap, "deadbeef", Policy{MaxAgeSeconds: 300, ClockSkewToleranceSeconds: 5}, nil)
	if err1 != nil {
		t.Fatalf("unexpected failure: %v", err1)
	}
	r2, err2 := BuildFreshnessCertificate(snap, "deadbeef", Policy{MaxAgeSeconds: 300, ClockSkewToleranceSeconds: 5}, nil)
	if err2 != nil {
		t.Fatalf("unexpected failure: %v", err2)
	}
	if r1.Hash != r2.Hash {
		t.Fatalf("certificate hash not stable across invocations: %s vs %s", r1.Hash, r2.Hash)
	}
}

func TestBuildFreshnessCertificateRejectsMaxAgeOutOfRange(t *testing.T) {
	_, err := BuildFreshnessCertificate(sampleSnapshot(), "deadbeef", Policy{MaxAgeSeconds: 0, ClockSkewToleranceSeconds: 5}, nil)
	if err == nil {
		t.Fatal("expected failure for max_age_seconds == 0")
	}
}

func TestBuildFreshnessCertificateRejectsMissingProvenance(t *testing.T) {
	snap := sampleSnapshot()
	delete(snap, "provenance")
	_, err := BuildFreshnessCertificate(snap, "deadbeef", Policy{MaxAgeSeconds: 300, ClockSkewToleranceSeconds: 5}, nil)
	if err == nil {
		t.Fatal("expected failure for missing provenance")
	}
}
