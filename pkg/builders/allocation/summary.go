package allocation

import (
	"sort"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

// BuildSummary aggregates a day's allocation decisions into one
// allocation_summary.v1 artifact: total/allowed/blocked counts overall
// and per engine. registry may be nil to skip schema validation. The
// caller is responsible for writing the built object through the
// mutable latest-pointer path -- this is the kernel's sole mutable
// write, and it happens one layer up from the pure builders.
func BuildSummary(dayUTC, producedAtUTC string, rows []SummaryRow, registry *schemagate.Registry) (SummaryResult, *failclosed.StageError) {
	if dayUTC == "" {
		return SummaryResult{}, fail("day_utc is required", nil)
	}
	if producedAtUTC == "" {
		return SummaryResult{}, fail("produced_at_utc is required", nil)
	}

	type engineCounts struct {
		total, allowed, blocked int64
	}
	byEngine := map[string]*engineCounts{}
	order := []string{}

	var total, allowed, blocked int64
	for _, r := range rows {
		total++
		if r.Allowed {
			allowed++
		} else {
			blocked++
		}

		c, ok := byEngine[r.EngineID]
		if !ok {
			c = &engineCounts{}
			byEngine[r.EngineID] = c
			order = append(order, r.EngineID)
		}
		c.total++
		if r.Allowed {
			c.allowed++
		} else {
			c.blocked++
		}
	}
	sort.Strings(order)

	engineRows := make([]canonhash.Value, 0, len(order))
	for _, engineID := range order {
		c := byEngine[engineID]
		engineRows = append(engineRows, canonhash.Obj(map[string]canonhash.Value{
			"engine_id": canonhash.Str(engineID),
			"total":     canonhash.Int(c.total),
			"allowed":   canonhash.Int(c.allowed),
			"blocked":   canonhash.Int(c.blocked),
		}))
	}

	obj := map[string]canonhash.Value{
		"schema_id":      canonhash.Str("allocation_summary.v1"),
		"schema_version": canonhash.Str("1"),
		"day_utc":        canonhash.Str(dayUTC),
		"produced_utc":   canonhash.Str(producedAtUTC),
		"status":         canonhash.Str("OK"),
		"reason_codes":   canonhash.Arr(),
		"summary": canonhash.Obj(map[string]canonhash.Value{
			"total_decisions":   canonhash.Int(total),
			"allowed_decisions": canonhash.Int(allowed),
			"blocked_decisions": canonhash.Int(blocked),
			"by_engine":         canonhash.Arr(engineRows...),
		}),
		canonhash.SelfHashField: canonhash.Null(),
	}
	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("allocation_summary.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return SummaryResult{}, fail("allocation_summary failed schema validation", err)
		}
	}

	return SummaryResult{
		Object: canonhash.ToAny(canonhash.Obj(obj)).(map[string]any),
		Hash:   hash,
	}, nil
}
