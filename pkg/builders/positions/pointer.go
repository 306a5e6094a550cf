package positions

import (
	"sort"
	"strconv"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

// Candidate is one positions snapshot available for a day, at whatever
// schema version produced it.
type Candidate struct {
	SchemaID      string
	SchemaVersion int64
	Hash          string
}

// PointerResult is a built positions_effective_pointer.v1 artifact.
type PointerResult struct {
	Object map[string]any
	Hash   string
}

// SelectEffectivePointer picks the highest-schema-version candidate
// available for dayUTC and binds a positions_effective_pointer.v1 to its
// hash. Candidates with no rows at all is a fail-closed condition: nothing
// downstream can reconcile positions for a day with no snapshot.
func SelectEffectivePointer(dayUTC, producedAtUTC string, candidates []Candidate, registry *schemagate.Registry) (PointerResult, *failclosed.StageError) {
	if len(candidates) == 0 {
		return PointerResult{}, failclosed.New(failclosed.BoundaryNone, reasoncode.LineageViolation, "no positions snapshot found for day", nil)
	}

	best := make([]Candidate, len(candidates))
	copy(best, candidates)
	sort.Slice(best, func(i, j int) bool { return best[i].SchemaVersion > best[j].SchemaVersion })
	selected := best[0]

	obj := map[string]canonhash.Value{
		"schema_id":      canonhash.Str("positions_effective_pointer.v1"),
		"schema_version": canonhash.Str("1"),
		"day_utc":        canonhash.Str(dayUTC),
		"produced_utc":   canonhash.Str(producedAtUTC),
		"status":         canonhash.Str("OK"),
		"selection": canonhash.Obj(map[string]canonhash.Value{
			"selected_schema_id":      canonhash.Str(selected.SchemaID),
			"selected_schema_version": canonhash.Str(strconv.FormatInt(selected.SchemaVersion, 10)),
		}),
		"pointers": canonhash.Obj(map[string]canonhash.Value{
			"snapshot_hash": canonhash.Str(selected.Hash),
		}),
		canonhash.SelfHashField: canonhash.Null(),
	}
	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("positions_effective_pointer.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return PointerResult{}, failclosed.New(failclosed.BoundaryNone, reasoncode.LineageViolation, "positions_effective_pointer failed schema validation", err)
		}
	}

	return PointerResult{Object: canonhash.ToAny(canonhash.Obj(obj)).(map[string]any), Hash: hash}, nil
}
