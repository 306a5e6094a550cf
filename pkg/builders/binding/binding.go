// Copyright 2025 Constellation 2.0
//
// Package binding recomputes the deterministic Interactive Brokers BAG
// order payload digest that pkg/builders/mapper embeds in a
// binding_record.v2, from the order_plan.v1 alone. It exists so the
// submission boundary can independently verify -- without trusting the
// mapper's own arithmetic -- that the broker payload it is about to send
// hashes to exactly the digest the mapper bound the intent to.
package binding

import (
	"fmt"
	"strings"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
)

// RecomputeBrokerPayloadDigest rebuilds the ib_bag_payload_v1 object from
// orderPlan's own legs and order_terms, and returns its canonical hash.
// The underlying symbol is not carried on order_plan.v1 directly; it is
// recovered from the first leg's contract_key, which every snapshot
// builder constructs as "SYMBOL|EXPIRY|RIGHT|STRIKE".
func RecomputeBrokerPayloadDigest(orderPlan map[string]any) (string, error) {
	legsAny, ok := orderPlan["legs"].([]any)
	if !ok || len(legsAny) != 2 {
		return "", fmt.Errorf("order_plan.legs must be an array of exactly 2 legs")
	}

	legs := make([]canonhash.Value, 0, 2)
	var underlying string
	for i, l := range legsAny {
		leg, ok := l.(map[string]any)
		if !ok {
			return "", fmt.Errorf("order_plan.legs[%d] is not an object", i)
		}
		action, _ := leg["action"].(string)
		right, _ := leg["right"].(string)
		strike, _ := leg["strike"].(string)
		expiryUTC, _ := leg["expiry_utc"].(string)
		contractKey, _ := leg["contract_key"].(string)
		if action == "" || right == "" || strike == "" || expiryUTC == "" || contractKey == "" {
			return "", fmt.Errorf("order_plan.legs[%d] is missing a required field", i)
		}
		if i == 0 {
			sym, err := symbolFromContractKey(contractKey)
			if err != nil {
				return "", err
			}
			underlying = sym
		}
		legs = append(legs, canonhash.Obj(map[string]canonhash.Value{
			"action":       canonhash.Str(action),
			"right":        canonhash.Str(right),
			"strike":       canonhash.Str(strike),
			"expiry_utc":   canonhash.Str(expiryUTC),
			"contract_key": canonhash.Str(contractKey),
		}))
	}

	terms, ok := orderPlan["order_terms"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("order_plan.order_terms is missing or not an object")
	}
	limitPrice, _ := terms["limit_price"].(string)
	if limitPrice == "" {
		return "", fmt.Errorf("order_plan.order_terms.limit_price is missing or empty")
	}

	payload := canonhash.Obj(map[string]canonhash.Value{
		"kind":        canonhash.Str("ib_bag_payload_v1"),
		"underlying":  canonhash.Str(underlying),
		"legs":        canonhash.Arr(legs...),
		"limit_price": canonhash.Str(limitPrice),
	})

	return canonhash.CanonicalHash(payload), nil
}

// Verify recomputes the broker payload digest from orderPlan and checks it
// against the digest_sha256 carried on bindingRecord.broker_payload_digest.
// A non-nil error means the binding record was built against a different
// broker payload than the order_plan now in hand.
func Verify(bindingRecord map[string]any, orderPlan map[string]any) error {
	recomputed, err := RecomputeBrokerPayloadDigest(orderPlan)
	if err != nil {
		return fmt.Errorf("failed to recompute broker payload digest: %w", err)
	}

	digestObj, ok := bindingRecord["broker_payload_digest"].(map[string]any)
	if !ok {
		return fmt.Errorf("binding_record.broker_payload_digest is missing or not an object")
	}
	bound, _ := digestObj["digest_sha256"].(string)
	if bound == "" {
		return fmt.Errorf("binding_record.broker_payload_digest.digest_sha256 is missing")
	}
	if bound != recomputed {
		return fmt.Errorf("broker payload digest mismatch: bound %s, recomputed %s", bound, recomputed)
	}
	return nil
}

func symbolFromContractKey(contractKey string) (string, error) {
	parts := strings.SplitN(contractKey, "|", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", fmt.Errorf("contract_key %q does not carry a leading underlying symbol", contractKey)
	}
	return parts[0], nil
}
