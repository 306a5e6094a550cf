package snapshot

import "testing"

func sampleRaw() RawInput {
	return RawInput{
		AsOfUTC: "2026-02-13T21:50:00Z",
		Underlying: RawUnderlying{
			Symbol:      "XYZ",
			SpotPrice:   "100.00",
			SpotAsOfUTC: "2026-02-13T21:50:00Z",
		},
		Provenance: RawProvenance{
			Source:        "IB_GATEWAY",
			CaptureMethod: "POLL",
			CaptureHost:   "host-1",
			CaptureRunID:  "run-1",
		},
		Policy: RawPolicy{
			DTEMethod: "CALENDAR_DAYS_UTC",
			LiquidityPolicy: RawLiquidityPolicy{
				MinOpenInterest: 10,
				MinVolume:       1,
				MaxBidAskSpread: "0.50",
			},
			PricingPolicy: RawPricingPolicy{MidDefinition: "(bid+ask)/2"},
		},
		Contracts: []RawContract{
			{
				ExpiryUTC: "2026-03-20T21:00:00Z", Right: "PUT", Strike: "100.00",
				Bid: "2.00", Ask: "2.10", OpenInterest: 500, Volume: 50,
				IB: RawIBContract{ConID: 1, LocalSymbol: "XYZ 260320P00100000", TradingClass: "XYZ", Exchange: "CBOE", Currency: "USD", Multiplier: 100},
			},
			{
				ExpiryUTC: "2026-03-20T21:00:00Z", Right: "PUT", Strike: "95.00",
				Bid: "1.00", Ask: "1.10", OpenInterest: 5, Volume: 0,
				IB: RawIBContract{ConID: 2, LocalSymbol: "XYZ 260320P00095000", TradingClass: "XYZ", Exchange: "CBOE", Currency: "USD", Multiplier: 100},
			},
		},
	}
}

func TestBuildOptionsChainSnapshotIsDeterministic(t *testing.T) {
	raw := sampleRaw()

	r1, err1 := BuildOptionsChainSnapshot(raw, nil)
	if err1 != nil {
		t.Fatalf("unexpected failure: %v", err1)
	}
	r2, err2 := BuildOptionsChainSnapshot(raw, nil)
	if err2 != nil {
		t.Fatalf("unexpected failure: %v", err2)
	}
	if r1.Hash != r2.Hash {
		t.Fatalf("snapshot hash not stable across invocations: %s vs %s", r1.Hash, r2.Hash)
	}
}

func TestBuildOptionsChainSnapshotSortsContractsAndComputesLiquidity(t *testing.T) {
	raw := sampleRaw()
	r, err := BuildOptionsChainSnapshot(raw, nil)
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}

	contracts := r.Snapshot["contracts"].([]any)
	if len(contracts) != 2 {
		t.Fatalf("expected 2 contracts, got %d", len(contracts))
	}
	first := contracts[0].(map[string]any)
	if first["strike"] != "100.00" {
		t.Fatalf("expected contracts sorted by contract_key; \"100.00\" sorts before \"95.00\" lexicographically, got %v first", first["strike"])
	}

	features := r.Snapshot["derived"].(map[string]any)["features"].([]any)
	f0 := features[0].(map[string]any)
	if f0["is_liquid"] != true {
		t.Fatalf("expected the 100.00-strike contract (oi=500, vol=50, spread=0.10) to be liquid")
	}
	f1 := features[1].(map[string]any)
	if f1["is_liquid"] != false {
		t.Fatalf("expected the 95.00-strike contract (oi=5 < min_oi=10) to be illiquid")
	}
}

func TestBuildOptionsChainSnapshotRejectsEmptyContracts(t *testing.T) {
	raw := sampleRaw()
	raw.Contracts = nil
	_, err := BuildOptionsChainSnapshot(raw, nil)
	if err == nil {
		t.Fatal("expected failure for empty contracts")
	}
}

func TestBuildOptionsChainSnapshotRejectsInvalidRight(t *testing.T) {
	raw := sampleRaw()
	raw.Contracts[0].Right = "STRADDLE"
	_, err := BuildOptionsChainSnapshot(raw, nil)
	if err == nil {
		t.Fatal("expected failure for invalid right")
	}
}
