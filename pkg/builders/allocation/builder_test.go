package allocation

import "testing"

func TestBuildDecisionAllowsWithinEffectiveCap(t *testing.T) {
	in := DecisionInput{
		Intent:             Intent{IntentID: "intent-1", EngineID: "VOL_INCOME", TargetNotionalPct: "0.10"},
		EngineCapPct:       "0.40",
		DrawdownPct:        "-0.12",
		AccountingStatusOK: true,
	}

	res, stageErr := BuildDecision(in, nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	if !res.Allowed {
		t.Fatalf("expected decision to be allowed, got %v", res.Object)
	}
	if res.Object["effective_cap_pct"] != "0.200000" {
		t.Fatalf("expected effective_cap_pct 0.200000 (0.40 * 0.50 drawdown mult), got %v", res.Object["effective_cap_pct"])
	}
}

func TestBuildDecisionBlocksAboveEffectiveCap(t *testing.T) {
	in := DecisionInput{
		Intent:             Intent{IntentID: "intent-2", EngineID: "TREND", TargetNotionalPct: "0.35"},
		EngineCapPct:       "0.40",
		DrawdownPct:        "-0.20",
		AccountingStatusOK: true,
	}

	res, stageErr := BuildDecision(in, nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	if res.Allowed {
		t.Fatalf("expected decision to be blocked, got %v", res.Object)
	}
	if res.Object["decision"] != "BLOCK" {
		t.Fatalf("expected decision BLOCK, got %v", res.Object["decision"])
	}
}

func TestBuildDecisionExitAlwaysAllowedEvenDegraded(t *testing.T) {
	in := DecisionInput{
		Intent:             Intent{IntentID: "intent-3", EngineID: "TREND", TargetNotionalPct: "0"},
		EngineCapPct:       "0.40",
		AccountingStatusOK: false,
	}

	res, stageErr := BuildDecision(in, nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	if !res.Allowed {
		t.Fatalf("expected an EXIT intent to always be allowed, got %v", res.Object)
	}
}

func TestBuildDecisionBlocksOnDegradedAccountingForNonExit(t *testing.T) {
	in := DecisionInput{
		Intent:             Intent{IntentID: "intent-4", EngineID: "TREND", TargetNotionalPct: "0.05"},
		EngineCapPct:       "0.40",
		AccountingStatusOK: false,
	}

	res, stageErr := BuildDecision(in, nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	if res.Allowed {
		t.Fatalf("expected decision blocked under degraded accounting, got %v", res.Object)
	}
}

func TestBuildDecisionAppliesRiskEnvelopeMultiplier(t *testing.T) {
	in := DecisionInput{
		Intent:                 Intent{IntentID: "intent-5", EngineID: "MEAN_REVERSION", TargetNotionalPct: "0.15"},
		EngineCapPct:           "0.20",
		RiskEnvelopeMultiplier: "0.50",
		AccountingStatusOK:     true,
	}

	res, stageErr := BuildDecision(in, nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	if res.Object["effective_cap_pct"] != "0.100000" {
		t.Fatalf("expected effective_cap_pct 0.100000 (0.20 * 1.00 drawdown * 0.50 envelope), got %v", res.Object["effective_cap_pct"])
	}
	if res.Allowed {
		t.Fatalf("expected 0.15 target to exceed a 0.10 effective cap, got allowed=%v", res.Allowed)
	}
}

func TestBuildSummaryAggregatesByEngine(t *testing.T) {
	rows := []SummaryRow{
		{IntentID: "i1", EngineID: "TREND", Allowed: true},
		{IntentID: "i2", EngineID: "TREND", Allowed: false},
		{IntentID: "i3", EngineID: "VOL_INCOME", Allowed: true},
	}

	res, stageErr := BuildSummary("2026-02-13", "2026-02-13T00:00:00Z", rows, nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	summary, _ := res.Object["summary"].(map[string]any)
	if summary["total_decisions"] != int64(3) || summary["allowed_decisions"] != int64(2) || summary["blocked_decisions"] != int64(1) {
		t.Fatalf("unexpected summary totals: %v", summary)
	}
	byEngine, _ := summary["by_engine"].([]any)
	if len(byEngine) != 2 {
		t.Fatalf("expected 2 engine rows, got %d", len(byEngine))
	}
}

func TestBuildSummaryRequiresDayUTC(t *testing.T) {
	_, stageErr := BuildSummary("", "2026-02-13T00:00:00Z", nil, nil)
	if stageErr == nil {
		t.Fatal("expected a fail-closed error for a blank day_utc")
	}
}
