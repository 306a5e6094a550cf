// Copyright 2025 Constellation 2.0
//
// Package schemagate implements the kernel's schema discovery, compile,
// and validate boundary: a closed registry mapping schema_name to a file
// under the governance schema tree, backed by a Draft 2020-12 validator,
// with boundary errors kept distinct from instance validation failures.
package schemagate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Registry is a closed mapping from schema_name to the compiled schema
// behind it. It is closed in the sense that Validate refuses any name not
// present in the map it was constructed with -- there is no fallback
// discovery by convention or directory walk.
type Registry struct {
	root    string
	entries map[string]string // schema_name -> path relative to root

	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

// NewRegistry builds a closed registry rooted at schemaRoot. entries maps
// each known schema_name (e.g. "options_intent.v2") to its file path
// relative to schemaRoot.
func NewRegistry(schemaRoot string, entries map[string]string) *Registry {
	cp := make(map[string]string, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return &Registry{
		root:    schemaRoot,
		entries: cp,
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// compile resolves and compiles schemaName's schema, caching the result.
// Any failure here -- unknown name, unreadable file, malformed schema,
// unsupported $schema draft -- is a BoundaryError, never a ValidationError.
func (r *Registry) compile(schemaName string) (*jsonschema.Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sch, ok := r.schemas[schemaName]; ok {
		return sch, nil
	}

	relPath, known := r.entries[schemaName]
	if !known {
		return nil, newBoundary(schemaName, "unknown schema_name", nil)
	}

	fullPath := filepath.Join(r.root, relPath)
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, newBoundary(schemaName, fmt.Sprintf("unable to read schema file %s", fullPath), err)
	}
	defer f.Close()

	compiler := jsonschema.NewCompiler()
	resourceID := "mem://" + schemaName
	if err := compiler.AddResource(resourceID, f); err != nil {
		return nil, newBoundary(schemaName, "malformed schema document", err)
	}

	sch, err := compiler.Compile(resourceID)
	if err != nil {
		return nil, newBoundary(schemaName, "schema compilation failed", err)
	}

	r.schemas[schemaName] = sch
	return sch, nil
}

// KnownSchemas returns the closed set of schema names this registry will
// accept, for diagnostics and tests.
func (r *Registry) KnownSchemas() []string {
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	return out
}
