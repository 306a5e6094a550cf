package mapper

import (
	"testing"

	"github.com/constellation2/evidence-kernel/pkg/failclosed"
)

func sampleIntent() OptionsIntent {
	return OptionsIntent{
		SchemaID:       "options_intent.v2",
		SchemaVersion:  "2",
		IntentID:       "intent-001",
		EngineID:       "VOL_INCOME",
		SourceIntentID: "src-001",
		Strategy: Strategy{
			Structure: "VERTICAL_SPREAD",
			Right:     "PUT",
			Direction: "CREDIT",
		},
		SelectionPolicy: SelectionPolicy{
			ExpiryPolicy:    ExpiryPolicy{Mode: "DTE_WINDOW", DTEMin: 20, DTEMax: 40},
			WidthPolicy:     WidthPolicy{WidthUSD: "5.00"},
			LiquidityPolicy: LiquidityPolicy{MinOpenInterest: 10, MinVolume: 1, MaxSpreadUSD: "0.50"},
			PricingPolicy:   PricingPolicy{OffsetUSD: "0.05", RoundingMode: "ROUND_DOWN"},
		},
		Risk:       RiskSpec{Contracts: 1, Multiplier: 100},
		ExitPolicy: ExitPolicy{PolicyID: "exit-standard-v1"},
	}
}

func sampleChain() OptionsChainSnapshot {
	return OptionsChainSnapshot{
		SchemaID: "options_chain_snapshot.v1",
		AsOfUTC:  "2026-02-13T21:50:00Z",
		Underlying: Underlying{
			Symbol:    "XYZ",
			SpotPrice: "100.00",
		},
		Contracts: []Contract{
			{ExpiryUTC: "2026-03-20T21:00:00Z", Right: "P", Strike: "100.00", Bid: "2.00", Ask: "2.10", OpenInterest: 500, Volume: 50, ContractKey: "XYZ|2026-03-20|P|100.00"},
			{ExpiryUTC: "2026-03-20T21:00:00Z", Right: "P", Strike: "95.00", Bid: "1.00", Ask: "1.10", OpenInterest: 500, Volume: 50, ContractKey: "XYZ|2026-03-20|P|95.00"},
			{ExpiryUTC: "2026-04-17T21:00:00Z", Right: "P", Strike: "100.00", Bid: "3.00", Ask: "3.10", OpenInterest: 500, Volume: 50, ContractKey: "XYZ|2026-04-17|P|100.00"},
		},
	}
}

func sampleCert(chainAsOf string) FreshnessCertificate {
	return FreshnessCertificate{
		SchemaID:        "freshness_certificate.v1",
		SnapshotHash:    "", // filled by caller after hashing the chain
		SnapshotAsOfUTC: chainAsOf,
		ValidFromUTC:    "2026-02-13T21:50:00Z",
		ValidUntilUTC:   "2026-02-13T21:55:00Z",
	}
}

func baseInput(t *testing.T, nowUTC string) Input {
	t.Helper()
	chain := sampleChain()

	_, chainHash, err := hashInput(nil, "", chain)
	if err != nil {
		t.Fatalf("failed to hash chain fixture: %v", err)
	}

	cert := sampleCert(chain.AsOfUTC)
	cert.SnapshotHash = chainHash

	return Input{
		Intent:   sampleIntent(),
		Chain:    chain,
		Cert:     cert,
		NowUTC:   nowUTC,
		TickSize: "0.01",
	}
}

func TestMapVerticalSpreadIsDeterministic(t *testing.T) {
	in := baseInput(t, "2026-02-13T21:52:00Z")

	r1, err1 := MapVerticalSpread(in, Schemas{})
	if err1 != nil {
		t.Fatalf("unexpected veto on first invocation: %v", err1)
	}
	r2, err2 := MapVerticalSpread(in, Schemas{})
	if err2 != nil {
		t.Fatalf("unexpected veto on second invocation: %v", err2)
	}

	if r1.OrderPlanHash != r2.OrderPlanHash {
		t.Fatalf("order_plan hash not stable across invocations: %s vs %s", r1.OrderPlanHash, r2.OrderPlanHash)
	}
	if r1.MappingLedgerHash != r2.MappingLedgerHash {
		t.Fatalf("mapping_ledger hash not stable across invocations: %s vs %s", r1.MappingLedgerHash, r2.MappingLedgerHash)
	}
	if r1.BindingHash != r2.BindingHash {
		t.Fatalf("binding_record hash not stable across invocations: %s vs %s", r1.BindingHash, r2.BindingHash)
	}
}

func TestMapVerticalSpreadSelectsNearestExpiryAndStrikes(t *testing.T) {
	in := baseInput(t, "2026-02-13T21:52:00Z")

	r, stageErr := MapVerticalSpread(in, Schemas{})
	if stageErr != nil {
		t.Fatalf("unexpected veto: %v", stageErr)
	}

	legs, ok := r.OrderPlan["legs"].([]any)
	if !ok || len(legs) != 2 {
		t.Fatalf("expected exactly 2 legs, got %#v", r.OrderPlan["legs"])
	}
	short := legs[0].(map[string]any)
	long := legs[1].(map[string]any)

	if short["action"] != "SELL" || long["action"] != "BUY" {
		t.Fatalf("expected short=SELL, long=BUY; got short=%v long=%v", short["action"], long["action"])
	}
	if short["strike"] != "100.00" {
		t.Fatalf("expected short strike 100.00 (highest liquid strike <= spot), got %v", short["strike"])
	}
	if long["strike"] != "95.00" {
		t.Fatalf("expected long strike 95.00 (short - width), got %v", long["strike"])
	}
	if short["expiry_utc"] != "2026-03-20T21:00:00Z" {
		t.Fatalf("expected nearest (lexicographically-earliest) expiry selected, got %v", short["expiry_utc"])
	}
}

func TestMapVerticalSpreadVetoesOnExpiredFreshness(t *testing.T) {
	in := baseInput(t, "2026-02-13T22:00:00Z")

	_, stageErr := MapVerticalSpread(in, Schemas{})
	if stageErr == nil {
		t.Fatal("expected a veto for now_utc outside the certificate validity window")
	}
	if stageErr.Boundary != failclosed.BoundaryMapping {
		t.Fatalf("expected MAPPING boundary, got %s", stageErr.Boundary)
	}
	if string(stageErr.Reason) != "C2_FRESHNESS_CERT_INVALID_OR_EXPIRED" {
		t.Fatalf("expected freshness reason code, got %s", stageErr.Reason)
	}
}

func TestMapVerticalSpreadVetoesOnMissingExitPolicy(t *testing.T) {
	in := baseInput(t, "2026-02-13T21:52:00Z")
	in.Intent.ExitPolicy.PolicyID = ""
	// No need to recompute the freshness cert binding: intent changes do not
	// affect chain/cert hashes, only the intent itself.

	_, stageErr := MapVerticalSpread(in, Schemas{})
	if stageErr == nil {
		t.Fatal("expected a veto for missing exit_policy.policy_id")
	}
	if string(stageErr.Reason) != "C2_EXIT_POLICY_REQUIRED" {
		t.Fatalf("expected exit policy reason code, got %s", stageErr.Reason)
	}
}

func TestMapVerticalSpreadVetoesWhenCounterpartStrikeMissing(t *testing.T) {
	in := baseInput(t, "2026-02-13T21:52:00Z")
	in.Intent.SelectionPolicy.WidthPolicy.WidthUSD = "37.00" // no contract at 63.00

	_, stageErr := MapVerticalSpread(in, Schemas{})
	if stageErr == nil {
		t.Fatal("expected a veto when no counterpart strike exists at the required width")
	}
	if string(stageErr.Reason) != "C2_NONDETERMINISTIC_SELECTION_RULE" {
		t.Fatalf("expected selection-rule reason code, got %s", stageErr.Reason)
	}
}
