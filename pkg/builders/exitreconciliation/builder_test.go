package exitreconciliation

import "testing"

func baseInput() Input {
	return Input{
		DayUTC:                "2026-02-13",
		ProducedAtUTC:         "2026-02-13T00:00:00Z",
		PositionsSnapshotHash: "snaphash",
		IntentsAvailable:      true,
		IntentsDirHash:        "intentshash",
	}
}

func TestBuildReportEmitsObligationForSilentEngine(t *testing.T) {
	in := baseInput()
	in.OpenPositions = []PositionObligationInput{
		{PositionID: "pos-1", EngineID: "TREND", InstrumentKind: "EQUITY", Underlying: "ABC", Currency: "USD"},
	}

	res, stageErr := BuildReport(in, nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	if res.Status != StatusOK {
		t.Fatalf("expected OK status, got %s", res.Status)
	}
	obligations, _ := res.Object["obligations"].([]any)
	if len(obligations) != 1 {
		t.Fatalf("expected 1 obligation, got %d", len(obligations))
	}
	ob, _ := obligations[0].(map[string]any)
	if ob["recommended_exposure_type"] != "LONG_EQUITY" {
		t.Fatalf("expected LONG_EQUITY for an EQUITY position, got %v", ob["recommended_exposure_type"])
	}
}

func TestBuildReportSkipsEngineWithExplicitIntent(t *testing.T) {
	in := baseInput()
	in.EnginesWithIntent = map[string]bool{"TREND": true}
	in.OpenPositions = []PositionObligationInput{
		{PositionID: "pos-1", EngineID: "TREND", InstrumentKind: "EQUITY", Underlying: "ABC"},
	}

	res, stageErr := BuildReport(in, nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	obligations, _ := res.Object["obligations"].([]any)
	if len(obligations) != 0 {
		t.Fatalf("expected 0 obligations when engine has filed intent, got %d", len(obligations))
	}
}

func TestBuildReportDegradesOnMissingIntentsDir(t *testing.T) {
	in := baseInput()
	in.IntentsAvailable = false
	in.IntentsDirHash = ""

	res, stageErr := BuildReport(in, nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	if res.Status != StatusDegradedMissingEngineIntents {
		t.Fatalf("expected degraded status, got %s", res.Status)
	}
}

func TestBuildReportOptionsPlanMapsToShortVolDefined(t *testing.T) {
	in := baseInput()
	in.OpenPositions = []PositionObligationInput{
		{PositionID: "pos-2", EngineID: "VOL_INCOME", InstrumentKind: "OPTIONS_PLAN", Underlying: "XYZ"},
	}

	res, stageErr := BuildReport(in, nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	obligations, _ := res.Object["obligations"].([]any)
	ob, _ := obligations[0].(map[string]any)
	if ob["recommended_exposure_type"] != "SHORT_VOL_DEFINED" {
		t.Fatalf("expected SHORT_VOL_DEFINED for an options-plan position, got %v", ob["recommended_exposure_type"])
	}
}

func TestBuildReportFailsClosedOnBlankEngineID(t *testing.T) {
	in := baseInput()
	in.OpenPositions = []PositionObligationInput{
		{PositionID: "pos-3", InstrumentKind: "EQUITY", Underlying: "ABC"},
	}

	_, stageErr := BuildReport(in, nil)
	if stageErr == nil {
		t.Fatal("expected a fail-closed error for a position with no engine_id")
	}
}

func TestBuildReportOrdersObligationsByEngineThenPosition(t *testing.T) {
	in := baseInput()
	in.OpenPositions = []PositionObligationInput{
		{PositionID: "pos-z", EngineID: "TREND", InstrumentKind: "EQUITY", Underlying: "ABC"},
		{PositionID: "pos-a", EngineID: "TREND", InstrumentKind: "EQUITY", Underlying: "ABC"},
	}

	res, stageErr := BuildReport(in, nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	obligations, _ := res.Object["obligations"].([]any)
	first, _ := obligations[0].(map[string]any)
	if first["position_id"] != "pos-a" {
		t.Fatalf("expected pos-a first, got %v", first["position_id"])
	}
}
