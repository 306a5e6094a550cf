package submit

import (
	"github.com/constellation2/evidence-kernel/pkg/decimalcodec"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
)

// RiskBudgetDecision is the RiskBudgetGate's verdict on a single WhatIf
// projection.
type RiskBudgetDecision struct {
	Allow  bool
	Reason reasoncode.Code
	Detail string
}

// EnforceRiskBudget compares a broker WhatIf projection (margin and
// notional, both decimal strings) against riskBudget's portfolio-level
// caps, or engineID's per-engine caps when riskBudget carries an
// engine_limits entry for it. Any budget or projection value that is not
// a well-formed decimal string is itself a fail-closed condition --
// RiskBudgetSchemaInvalid, never a silent fallback to the portfolio cap.
func EnforceRiskBudget(riskBudget map[string]any, whatifMarginChangeUSD, whatifNotionalUSD, engineID string) RiskBudgetDecision {
	capMargin, capNotional, err := budgetCaps(riskBudget, engineID)
	if err != nil {
		return RiskBudgetDecision{Allow: false, Reason: reasoncode.RiskBudgetSchemaInvalid, Detail: err.Error()}
	}

	margin, err := decimalcodec.Parse(whatifMarginChangeUSD, "whatif_margin_change_usd")
	if err != nil {
		return RiskBudgetDecision{Allow: false, Reason: reasoncode.RiskBudgetSchemaInvalid, Detail: err.Error()}
	}
	notional, err := decimalcodec.Parse(whatifNotionalUSD, "whatif_notional_usd")
	if err != nil {
		return RiskBudgetDecision{Allow: false, Reason: reasoncode.RiskBudgetSchemaInvalid, Detail: err.Error()}
	}

	if margin.Cmp(capMargin) > 0 {
		return RiskBudgetDecision{
			Allow:  false,
			Reason: reasoncode.RiskBudgetExceeded,
			Detail: "projected margin " + decimalcodec.Format2dp(margin) + " exceeds cap " + decimalcodec.Format2dp(capMargin),
		}
	}
	if notional.Cmp(capNotional) > 0 {
		return RiskBudgetDecision{
			Allow:  false,
			Reason: reasoncode.RiskBudgetExceeded,
			Detail: "projected notional " + decimalcodec.Format2dp(notional) + " exceeds cap " + decimalcodec.Format2dp(capNotional),
		}
	}

	return RiskBudgetDecision{Allow: true}
}

func budgetCaps(riskBudget map[string]any, engineID string) (decimalcodec.Decimal, decimalcodec.Decimal, error) {
	if engineID != "" {
		if limits, ok := riskBudget["engine_limits"].(map[string]any); ok {
			if perEngine, ok := limits[engineID].(map[string]any); ok {
				m, err := decimalcodec.Parse(perEngine["max_margin_usd"], "engine_limits."+engineID+".max_margin_usd")
				if err != nil {
					return decimalcodec.Zero(), decimalcodec.Zero(), err
				}
				n, err := decimalcodec.Parse(perEngine["max_notional_usd"], "engine_limits."+engineID+".max_notional_usd")
				if err != nil {
					return decimalcodec.Zero(), decimalcodec.Zero(), err
				}
				return m, n, nil
			}
		}
	}

	m, err := decimalcodec.Parse(riskBudget["max_margin_usd"], "max_margin_usd")
	if err != nil {
		return decimalcodec.Zero(), decimalcodec.Zero(), err
	}
	n, err := decimalcodec.Parse(riskBudget["max_notional_usd"], "max_notional_usd")
	if err != nil {
		return decimalcodec.Zero(), decimalcodec.Zero(), err
	}
	return m, n, nil
}
