package reporting

import (
	"strings"
	"testing"

	"github.com/constellation2/evidence-kernel/pkg/builders/marketcalendar"
)

func baseInput() Input {
	return Input{
		DayUTC:        "2026-02-13",
		ProducedAtUTC: "2026-02-13T00:00:00Z",
		Exchange:      "NYSE",
		TradingDay:    marketcalendar.LabelTradingDay,
		NAV:           NAVInput{Status: "OK", NAVTotal: "5000.00", CashTotal: "5000.00"},
		Exposure:      ExposureInput{Status: "OK", TotalDefinedRisk: "300.00"},
		Attribution: AttributionInput{
			Status: "OK",
			ByEngine: []EngineAttributionRow{
				{EngineID: "TREND", RealizedPnLToDate: "0.00", UnrealizedPnL: "0.00", DefinedRiskExposure: "0.00", PositionsCount: 1},
			},
		},
		Allocation:         AllocationInput{TotalDecisions: 3, AllowedDecisions: 2, BlockedDecisions: 1},
		ExitReconciliation: ExitReconciliationInput{Status: "OK", ObligationCount: 0},
	}
}

func TestBuildSummaryRendersAllSections(t *testing.T) {
	res, stageErr := BuildSummary(baseInput(), nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	if !strings.Contains(res.Text, "TREND:") {
		t.Fatalf("expected the TREND engine row in rendered text, got:\n%s", res.Text)
	}
	if !strings.Contains(res.Text, "Trading Day: TRADING_DAY") {
		t.Fatalf("expected a trading day label, got:\n%s", res.Text)
	}
	if res.Object["schema_id"] != "daily_portfolio_summary.v1" {
		t.Fatalf("expected schema_id daily_portfolio_summary.v1, got %v", res.Object["schema_id"])
	}
}

func TestBuildSummaryRendersNoneForEmptyAttribution(t *testing.T) {
	in := baseInput()
	in.Attribution.ByEngine = nil

	res, stageErr := BuildSummary(in, nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	if !strings.Contains(res.Text, "ATTRIBUTION (Status: OK) ---\nNone") {
		t.Fatalf("expected None for empty attribution rows, got:\n%s", res.Text)
	}
}

func TestBuildSummarySortsEngineRows(t *testing.T) {
	in := baseInput()
	in.Attribution.ByEngine = []EngineAttributionRow{
		{EngineID: "VOL_INCOME"},
		{EngineID: "TREND"},
	}

	res, stageErr := BuildSummary(in, nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	attribution, _ := res.Object["attribution"].(map[string]any)
	byEngine, _ := attribution["by_engine"].([]any)
	first, _ := byEngine[0].(map[string]any)
	if first["engine_id"] != "TREND" {
		t.Fatalf("expected TREND sorted first, got %v", first["engine_id"])
	}
}

func TestBuildSummaryRequiresDayUTC(t *testing.T) {
	in := baseInput()
	in.DayUTC = ""

	_, stageErr := BuildSummary(in, nil)
	if stageErr == nil {
		t.Fatal("expected a fail-closed error for a blank day_utc")
	}
}
