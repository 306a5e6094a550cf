package snapshot

import (
	"fmt"
	"sort"
	"time"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/decimalcodec"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

// Result is a built snapshot plus its canonical hash.
type Result struct {
	Snapshot map[string]any
	Hash     string
}

// fail wraps every error path in this builder as a StageError carrying
// DeterminismCanonicalizeFailed -- the closed enumeration has no
// snapshot-specific codes, and a malformed or unparseable raw capture is,
// at root, a canonicalization failure: the builder could not deterministically
// turn the input into canonical form. Boundary is BoundaryNone since this
// stage sits upstream of any broker network boundary; callers write a
// FailureRecord, not a VetoRecord.
func fail(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryNone, reasoncode.DeterminismCanonicalizeFailed, detail, cause)
}

// BuildOptionsChainSnapshot normalizes raw into a schema-shaped
// options_chain_snapshot.v1 artifact: every price/strike is formatted to a
// fixed 2dp string, contract_key is derived and contracts are sorted by
// it, and per-contract liquidity/DTE/mid features are computed in the
// same order. registry may be nil to skip schema validation.
func BuildOptionsChainSnapshot(raw RawInput, registry *schemagate.Registry) (Result, *failclosed.StageError) {
	if raw.Policy.DTEMethod != "CALENDAR_DAYS_UTC" {
		return Result{}, fail(fmt.Sprintf("unsupported dte_method %q", raw.Policy.DTEMethod), nil)
	}
	if raw.Policy.PricingPolicy.MidDefinition != "(bid+ask)/2" {
		return Result{}, fail(fmt.Sprintf("unsupported mid_definition %q", raw.Policy.PricingPolicy.MidDefinition), nil)
	}
	if len(raw.Contracts) < 1 {
		return Result{}, fail("contracts must not be empty", nil)
	}

	asOfUTC, err := normalizeUTCZ(raw.AsOfUTC)
	if err != nil {
		return Result{}, fail("as_of_utc is not a valid Z-suffixed UTC timestamp", err)
	}
	spotAsOfUTC, err := normalizeUTCZ(raw.Underlying.SpotAsOfUTC)
	if err != nil {
		return Result{}, fail("underlying.spot_as_of_utc is not a valid Z-suffixed UTC timestamp", err)
	}
	spotPrice, err := decimalcodec.Parse(raw.Underlying.SpotPrice, "underlying.spot_price")
	if err != nil {
		return Result{}, fail("failed to parse underlying.spot_price", err)
	}
	maxSpread, err := decimalcodec.Parse(raw.Policy.LiquidityPolicy.MaxBidAskSpread, "policy.liquidity_policy.max_bid_ask_spread")
	if err != nil {
		return Result{}, fail("failed to parse policy.liquidity_policy.max_bid_ask_spread", err)
	}

	type normalized struct {
		contractKey string
		expiryUTC   string
		strike      decimalcodec.Decimal
		right       string
		bid         decimalcodec.Decimal
		ask         decimalcodec.Decimal
		openInt     int64
		volume      int64
		ib          RawIBContract
	}

	rows := make([]normalized, 0, len(raw.Contracts))
	for i, c := range raw.Contracts {
		if c.Right != "CALL" && c.Right != "PUT" {
			return Result{}, fail(fmt.Sprintf("contracts[%d].right must be CALL or PUT", i), nil)
		}
		expiryUTC, err := normalizeUTCZ(c.ExpiryUTC)
		if err != nil {
			return Result{}, fail(fmt.Sprintf("contracts[%d].expiry_utc is not a valid Z-suffixed UTC timestamp", i), err)
		}
		strike, err := decimalcodec.Parse(c.Strike, fmt.Sprintf("contracts[%d].strike", i))
		if err != nil {
			return Result{}, fail(fmt.Sprintf("failed to parse contracts[%d].strike", i), err)
		}
		bid, err := decimalcodec.Parse(c.Bid, fmt.Sprintf("contracts[%d].bid", i))
		if err != nil {
			return Result{}, fail(fmt.Sprintf("failed to parse contracts[%d].bid", i), err)
		}
		ask, err := decimalcodec.Parse(c.Ask, fmt.Sprintf("contracts[%d].ask", i))
		if err != nil {
			return Result{}, fail(fmt.Sprintf("failed to parse contracts[%d].ask", i), err)
		}
		if c.OpenInterest < 0 || c.Volume < 0 {
			return Result{}, fail(fmt.Sprintf("contracts[%d] open_interest/volume must be non-negative", i), nil)
		}
		if c.IB.ConID < 1 {
			return Result{}, fail(fmt.Sprintf("contracts[%d].ib.conId must be a positive integer", i), nil)
		}
		if c.IB.Multiplier != 100 {
			return Result{}, fail(fmt.Sprintf("contracts[%d].ib.multiplier must be 100", i), nil)
		}

		ck := contractKey(raw.Underlying.Symbol, expiryUTC, c.Right, decimalcodec.Format2dp(strike))
		rows = append(rows, normalized{
			contractKey: ck,
			expiryUTC:   expiryUTC,
			strike:      strike,
			right:       c.Right,
			bid:         bid,
			ask:         ask,
			openInt:     c.OpenInterest,
			volume:      c.Volume,
			ib:          c.IB,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].contractKey < rows[j].contractKey })

	contractVals := make([]canonhash.Value, len(rows))
	featureVals := make([]canonhash.Value, len(rows))
	for i, r := range rows {
		contractVals[i] = canonhash.Obj(map[string]canonhash.Value{
			"contract_key":  canonhash.Str(r.contractKey),
			"expiry_utc":    canonhash.Str(r.expiryUTC),
			"strike":        canonhash.Str(decimalcodec.Format2dp(r.strike)),
			"right":         canonhash.Str(r.right),
			"bid":           canonhash.Str(decimalcodec.Format2dp(r.bid)),
			"ask":           canonhash.Str(decimalcodec.Format2dp(r.ask)),
			"open_interest": canonhash.Int(r.openInt),
			"volume":        canonhash.Int(r.volume),
			"ib": canonhash.Obj(map[string]canonhash.Value{
				"conId":        canonhash.Int(r.ib.ConID),
				"localSymbol":  canonhash.Str(r.ib.LocalSymbol),
				"tradingClass": canonhash.Str(r.ib.TradingClass),
				"exchange":     canonhash.Str(r.ib.Exchange),
				"currency":     canonhash.Str(r.ib.Currency),
				"multiplier":   canonhash.Int(100),
			}),
		})

		dte, err := dteDaysCalendar(asOfUTC, r.expiryUTC)
		if err != nil {
			return Result{}, fail(fmt.Sprintf("contract %s expires before as_of_utc", r.contractKey), err)
		}
		spread, err := decimalcodec.Sub2dp(r.ask, r.bid, "derived.bid_ask_spread")
		if err != nil {
			return Result{}, fail(fmt.Sprintf("contract %s has ask < bid", r.contractKey), err)
		}
		mid, err := decimalcodec.Mid2dp(r.bid, r.ask, "derived.mid")
		if err != nil {
			return Result{}, fail(fmt.Sprintf("contract %s mid computation failed", r.contractKey), err)
		}
		isLiquid := r.openInt >= raw.Policy.LiquidityPolicy.MinOpenInterest &&
			r.volume >= raw.Policy.LiquidityPolicy.MinVolume &&
			spread.Cmp(maxSpread) <= 0

		featureVals[i] = canonhash.Obj(map[string]canonhash.Value{
			"contract_key":   canonhash.Str(r.contractKey),
			"dte_days":       canonhash.Int(int64(dte)),
			"is_liquid":      canonhash.Bool(isLiquid),
			"bid_ask_spread": canonhash.Str(decimalcodec.Format2dp(spread)),
			"mid":            canonhash.Str(decimalcodec.Format2dp(mid)),
		})
	}

	obj := map[string]canonhash.Value{
		"schema_id":      canonhash.Str("options_chain_snapshot.v1"),
		"schema_version": canonhash.Str("1"),
		"as_of_utc":      canonhash.Str(asOfUTC),
		"underlying": canonhash.Obj(map[string]canonhash.Value{
			"symbol":         canonhash.Str(raw.Underlying.Symbol),
			"spot_price":     canonhash.Str(decimalcodec.Format2dp(spotPrice)),
			"spot_as_of_utc": canonhash.Str(spotAsOfUTC),
		}),
		"contracts": canonhash.Arr(contractVals...),
		"derived": canonhash.Obj(map[string]canonhash.Value{
			"derivation_policy": canonhash.Obj(map[string]canonhash.Value{
				"dte_method": canonhash.Str("CALENDAR_DAYS_UTC"),
				"liquidity_policy": canonhash.Obj(map[string]canonhash.Value{
					"min_open_interest":  canonhash.Int(raw.Policy.LiquidityPolicy.MinOpenInterest),
					"min_volume":         canonhash.Int(raw.Policy.LiquidityPolicy.MinVolume),
					"max_bid_ask_spread": canonhash.Str(decimalcodec.Format2dp(maxSpread)),
				}),
				"pricing_policy": canonhash.Obj(map[string]canonhash.Value{
					"mid_definition": canonhash.Str("(bid+ask)/2"),
				}),
			}),
			"features": canonhash.Arr(featureVals...),
		}),
		"provenance": canonhash.Obj(map[string]canonhash.Value{
			"source":          canonhash.Str(raw.Provenance.Source),
			"capture_method":  canonhash.Str(raw.Provenance.CaptureMethod),
			"capture_host":    canonhash.Str(raw.Provenance.CaptureHost),
			"capture_run_id":  canonhash.Str(raw.Provenance.CaptureRunID),
		}),
		canonhash.SelfHashField: canonhash.Null(),
	}

	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("options_chain_snapshot.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return Result{}, fail("snapshot failed schema validation", err)
		}
	}

	return Result{Snapshot: canonhash.ToAny(canonhash.Obj(obj)).(map[string]any), Hash: hash}, nil
}

func contractKey(symbol, expiryUTC, right, strike2dp string) string {
	return symbol + "|" + expiryUTC + "|" + right + "|" + strike2dp
}

func normalizeUTCZ(ts string) (string, error) {
	if ts == "" {
		return "", fmt.Errorf("timestamp is empty")
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return "", err
	}
	return t.UTC().Format("2006-01-02T15:04:05Z"), nil
}

func dteDaysCalendar(asOfUTC, expiryUTC string) (int, error) {
	asOf, err := time.Parse(time.RFC3339, asOfUTC)
	if err != nil {
		return 0, err
	}
	exp, err := time.Parse(time.RFC3339, expiryUTC)
	if err != nil {
		return 0, err
	}
	asOfDate := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	expDate := time.Date(exp.Year(), exp.Month(), exp.Day(), 0, 0, 0, 0, time.UTC)
	d := int(expDate.Sub(asOfDate).Hours() / 24)
	if d < 0 {
		return 0, fmt.Errorf("expiry is before as_of")
	}
	return d, nil
}
