package binding

import "testing"

func sampleOrderPlan() map[string]any {
	return map[string]any{
		"schema_id":      "order_plan.v1",
		"schema_version": "1",
		"legs": []any{
			map[string]any{
				"action":       "SELL",
				"right":        "P",
				"strike":       "100.00",
				"expiry_utc":   "2026-03-20T21:00:00Z",
				"contract_key": "XYZ|2026-03-20|P|100.00",
			},
			map[string]any{
				"action":       "BUY",
				"right":        "P",
				"strike":       "95.00",
				"expiry_utc":   "2026-03-20T21:00:00Z",
				"contract_key": "XYZ|2026-03-20|P|95.00",
			},
		},
		"order_terms": map[string]any{
			"limit_price": "1.95",
		},
	}
}

func TestRecomputeBrokerPayloadDigestIsDeterministic(t *testing.T) {
	plan := sampleOrderPlan()
	d1, err1 := RecomputeBrokerPayloadDigest(plan)
	if err1 != nil {
		t.Fatalf("unexpected failure: %v", err1)
	}
	d2, err2 := RecomputeBrokerPayloadDigest(plan)
	if err2 != nil {
		t.Fatalf("unexpected failure: %v", err2)
	}
	if d1 != d2 {
		t.Fatalf("digest not stable across invocations: %s vs %s", d1, d2)
	}
}

func TestVerifyAcceptsMatchingDigest(t *testing.T) {
	plan := sampleOrderPlan()
	digest, err := RecomputeBrokerPayloadDigest(plan)
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	bindingRecord := map[string]any{
		"broker_payload_digest": map[string]any{
			"digest_sha256": digest,
			"format":        "IB_BAG_V1",
		},
	}
	if err := Verify(bindingRecord, plan); err != nil {
		t.Fatalf("expected matching digest to verify, got: %v", err)
	}
}

func TestVerifyRejectsMismatchedDigest(t *testing.T) {
	plan := sampleOrderPlan()
	bindingRecord := map[string]any{
		"broker_payload_digest": map[string]any{
			"digest_sha256": "0000000000000000000000000000000000000000000000000000000000000000",
			"format":        "IB_BAG_V1",
		},
	}
	if err := Verify(bindingRecord, plan); err == nil {
		t.Fatal("expected digest mismatch to be rejected")
	}
}

func TestVerifyDetectsTamperedLimitPrice(t *testing.T) {
	plan := sampleOrderPlan()
	digest, err := RecomputeBrokerPayloadDigest(plan)
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	bindingRecord := map[string]any{
		"broker_payload_digest": map[string]any{
			"digest_sha256": digest,
			"format":        "IB_BAG_V1",
		},
	}

	tampered := sampleOrderPlan()
	tampered["order_terms"].(map[string]any)["limit_price"] = "2.50"
	if err := Verify(bindingRecord, tampered); err == nil {
		t.Fatal("expected a changed limit_price to invalidate the bound digest")
	}
}
