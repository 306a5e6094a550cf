package schemagate

import (
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validate checks instance against schemaName's compiled schema.
// It returns a *BoundaryError for anything preventing validation from
// running at all (unknown schema, IO failure, compile failure), and a
// *ValidationError carrying a deterministic first-error serialization
// (path, schema_path, message) when the instance itself is non-conformant.
// A nil return means the instance is valid.
func (r *Registry) Validate(schemaName string, instance any) error {
	sch, err := r.compile(schemaName)
	if err != nil {
		return err
	}

	if err := sch.Validate(instance); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return newBoundary(schemaName, "validator returned an unexpected error type", err)
		}
		leaf := firstLeaf(ve)
		return &ValidationError{
			SchemaName: schemaName,
			Path:       joinLocation(leaf.InstanceLocation),
			SchemaPath: joinLocation(leaf.KeywordLocation),
			Message:    leaf.Error(),
		}
	}

	return nil
}

// firstLeaf deterministically walks a (possibly tree-shaped) validation
// error down to a single leaf cause, so two runs over the same invalid
// instance always report the same first error regardless of any
// non-deterministic ordering inside the validator's own tree construction.
// Leaves are ordered first by instance location, then by keyword
// location, and the lexicographically smallest is chosen at each level.
func firstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	current := ve
	for len(current.Causes) > 0 {
		sorted := append([]*jsonschema.ValidationError(nil), current.Causes...)
		sort.Slice(sorted, func(i, j int) bool {
			li := joinLocation(sorted[i].InstanceLocation)
			lj := joinLocation(sorted[j].InstanceLocation)
			if li != lj {
				return li < lj
			}
			return joinLocation(sorted[i].KeywordLocation) < joinLocation(sorted[j].KeywordLocation)
		})
		current = sorted[0]
	}
	return current
}

func joinLocation(loc []string) string {
	out := ""
	for _, seg := range loc {
		out += "/" + seg
	}
	if out == "" {
		return "/"
	}
	return out
}
