package accounting

import (
	"sort"

	"github.com/constellation2/evidence-kernel/pkg/decimalcodec"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
)

func fail(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryNone, reasoncode.LineageViolation, detail, cause)
}

func requireDay(in Input) *failclosed.StageError {
	if in.DayUTC == "" {
		return fail("day_utc is required", nil)
	}
	if in.ProducedAtUTC == "" {
		return fail("produced_at_utc is required", nil)
	}
	return nil
}

// centsToDollarString converts cents to a whole-dollar decimal string,
// failing closed through the kernel's cents-to-dollars rule rather than
// ever truncating a fractional cent.
func centsToDollarString(cents int64, field string) (string, error) {
	d, err := decimalcodec.CentsToWholeDollars(cents, field)
	if err != nil {
		return "", err
	}
	return decimalcodec.Format2dp(d), nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
