package schemagate

import "fmt"

// BoundaryError covers every failure that happens before an instance is
// even checked against a schema: an unknown schema name, an unreadable
// schema file, or a schema that fails to compile. These are environment
// or configuration failures, never a property of the data being
// validated, and the kernel's FailClosedController treats them
// differently from a ValidationError.
type BoundaryError struct {
	SchemaName string
	Detail     string
	Cause      error
}

func (e *BoundaryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("SCHEMA_BOUNDARY_ERROR[schema=%s]: %s: %v", e.SchemaName, e.Detail, e.Cause)
	}
	return fmt.Sprintf("SCHEMA_BOUNDARY_ERROR[schema=%s]: %s", e.SchemaName, e.Detail)
}

func (e *BoundaryError) Unwrap() error { return e.Cause }

// ValidationError is raised when an instance fails schema validation. It
// carries the deterministic first error extracted from the validator's
// (possibly tree-shaped) error output -- the same leaf every run, for the
// same input, regardless of map iteration order inside the validator.
type ValidationError struct {
	SchemaName string
	Path       string
	SchemaPath string
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("SCHEMA_VALIDATION_ERROR[schema=%s] path=%q schema_path=%q message=%q",
		e.SchemaName, e.Path, e.SchemaPath, e.Message)
}

func newBoundary(schemaName, detail string, cause error) *BoundaryError {
	return &BoundaryError{SchemaName: schemaName, Detail: detail, Cause: cause}
}
