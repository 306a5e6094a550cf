package mapper

import (
	"sort"
	"time"

	"github.com/constellation2/evidence-kernel/pkg/decimalcodec"
)

// liquidContract pairs a chain Contract with its parsed strike, so
// selection logic never re-parses strings mid-comparison.
type liquidContract struct {
	contract Contract
	strike   decimalcodec.Decimal
}

// filterLiquid keeps contracts matching right, passing the liquidity
// filter (open_interest >= min_oi, volume >= min_vol, ask-bid <=
// max_spread), and whose expiry falls inside [dte_min, dte_max] relative
// to asOf. Rows failing to parse a decimal field are dropped rather than
// silently coerced -- an unparseable chain row can never become a
// candidate leg.
func filterLiquid(contracts []Contract, right string, liq LiquidityPolicy, expiry ExpiryPolicy, asOfUTC string) ([]liquidContract, error) {
	maxSpread, err := decimalcodec.Parse(liq.MaxSpreadUSD, "selection_policy.liquidity_policy.max_spread_usd")
	if err != nil {
		return nil, err
	}
	asOf, err := parseDateOnly(asOfUTC)
	if err != nil {
		return nil, err
	}

	out := make([]liquidContract, 0, len(contracts))
	for _, c := range contracts {
		if c.Right != right {
			continue
		}
		if c.OpenInterest < liq.MinOpenInterest || c.Volume < liq.MinVolume {
			continue
		}
		bid, err := decimalcodec.Parse(c.Bid, "contract.bid")
		if err != nil {
			continue
		}
		ask, err := decimalcodec.Parse(c.Ask, "contract.ask")
		if err != nil {
			continue
		}
		if ask.Cmp(bid) < 0 {
			continue
		}
		spread := ask.Sub(bid)
		if spread.Cmp(maxSpread) > 0 {
			continue
		}
		expDate, err := parseDateOnly(c.ExpiryUTC)
		if err != nil {
			continue
		}
		dte := daysBetween(asOf, expDate)
		if dte < expiry.DTEMin || dte > expiry.DTEMax {
			continue
		}
		strike, err := decimalcodec.Parse(c.Strike, "contract.strike")
		if err != nil {
			continue
		}
		out = append(out, liquidContract{contract: c, strike: strike})
	}
	return out, nil
}

func parseDateOnly(isoUTC string) (time.Time, error) {
	return time.Parse(time.RFC3339, isoUTC)
}

func daysBetween(from, to time.Time) int {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// selectExpiry returns the lexicographically-earliest expiry_utc among
// candidates, which for ISO-8601 timestamps is equivalent to minimum DTE.
func selectExpiry(candidates []liquidContract) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	best := candidates[0].contract.ExpiryUTC
	for _, c := range candidates[1:] {
		if c.contract.ExpiryUTC < best {
			best = c.contract.ExpiryUTC
		}
	}
	return best, true
}

func withExpiry(candidates []liquidContract, expiryUTC string) []liquidContract {
	out := make([]liquidContract, 0, len(candidates))
	for _, c := range candidates {
		if c.contract.ExpiryUTC == expiryUTC {
			out = append(out, c)
		}
	}
	return out
}

// sortByStrikeThenKey breaks ties deterministically on (strike,
// contract_key) lexicographic order -- strike compared numerically,
// contract_key compared as a plain string.
func sortByStrikeThenKey(cands []liquidContract) {
	sort.Slice(cands, func(i, j int) bool {
		cmp := cands[i].strike.Cmp(cands[j].strike)
		if cmp != 0 {
			return cmp < 0
		}
		return cands[i].contract.ContractKey < cands[j].contract.ContractKey
	})
}

// selectionOutcome is the pair of legs MapVerticalSpread assembles into an
// OrderPlan: short is always the sold leg, long always the bought leg,
// regardless of whether the strategy nets a credit or a debit.
type selectionOutcome struct {
	short liquidContract
	long  liquidContract
}

// selectStrikes implements the CREDIT/DEBIT strike-selection rules,
// including the required-counterpart lookup with identical 2dp strike
// formatting.
func selectStrikes(cands []liquidContract, spot decimalcodec.Decimal, strategy Strategy, width decimalcodec.Decimal) (selectionOutcome, bool) {
	sortByStrikeThenKey(cands)
	if len(cands) == 0 {
		return selectionOutcome{}, false
	}

	switch {
	case strategy.Direction == "CREDIT" && strategy.Right == "PUT":
		short, ok := highestAtOrBelow(cands, spot)
		if !ok {
			return selectionOutcome{}, false
		}
		target := short.strike.Sub(width)
		long, ok := findByFormattedStrike(cands, target)
		if !ok {
			return selectionOutcome{}, false
		}
		return selectionOutcome{short: short, long: long}, true

	case strategy.Direction == "CREDIT" && strategy.Right == "CALL":
		short, ok := lowestAtOrAbove(cands, spot)
		if !ok {
			return selectionOutcome{}, false
		}
		target := short.strike.Add(width)
		long, ok := findByFormattedStrike(cands, target)
		if !ok {
			return selectionOutcome{}, false
		}
		return selectionOutcome{short: short, long: long}, true

	case strategy.Direction == "DEBIT" && strategy.Right == "CALL":
		near, ok := nearestToSpot(cands, spot)
		if !ok {
			return selectionOutcome{}, false
		}
		target := near.strike.Add(width)
		far, ok := findByFormattedStrike(cands, target)
		if !ok {
			return selectionOutcome{}, false
		}
		return selectionOutcome{short: far, long: near}, true

	case strategy.Direction == "DEBIT" && strategy.Right == "PUT":
		near, ok := nearestToSpot(cands, spot)
		if !ok {
			return selectionOutcome{}, false
		}
		target := near.strike.Sub(width)
		far, ok := findByFormattedStrike(cands, target)
		if !ok {
			return selectionOutcome{}, false
		}
		return selectionOutcome{short: far, long: near}, true

	default:
		return selectionOutcome{}, false
	}
}

func highestAtOrBelow(cands []liquidContract, spot decimalcodec.Decimal) (liquidContract, bool) {
	var best liquidContract
	found := false
	for _, c := range cands {
		if c.strike.Cmp(spot) > 0 {
			continue
		}
		if !found || c.strike.Cmp(best.strike) > 0 {
			best, found = c, true
		}
	}
	return best, found
}

func lowestAtOrAbove(cands []liquidContract, spot decimalcodec.Decimal) (liquidContract, bool) {
	var best liquidContract
	found := false
	for _, c := range cands {
		if c.strike.Cmp(spot) < 0 {
			continue
		}
		if !found || c.strike.Cmp(best.strike) < 0 {
			best, found = c, true
		}
	}
	return best, found
}

func nearestToSpot(cands []liquidContract, spot decimalcodec.Decimal) (liquidContract, bool) {
	var best liquidContract
	var bestDist decimalcodec.Decimal
	found := false
	for _, c := range cands {
		dist := c.strike.Sub(spot).Abs()
		if !found || dist.Cmp(bestDist) < 0 {
			best, bestDist, found = c, dist, true
		}
	}
	return best, found
}

// findByFormattedStrike requires the counterpart strike to exist in the
// liquid candidate set with identical 2dp formatting to target.
func findByFormattedStrike(cands []liquidContract, target decimalcodec.Decimal) (liquidContract, bool) {
	want := decimalcodec.Format2dp(target)
	for _, c := range cands {
		if decimalcodec.Format2dp(c.strike) == want {
			return c, true
		}
	}
	return liquidContract{}, false
}
