// Copyright 2025 Constellation 2.0
//
// Package kernel wires together the shared collaborators every stage
// builder depends on: the schema registry, the immutable store, the
// fail-closed controller, producer identity, and an injectable clock.
package kernel

import (
	"fmt"
	"time"

	"github.com/constellation2/evidence-kernel/pkg/config"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/immutablestore"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

// Clock returns the current instant as a Z-suffixed ISO-8601 string. It
// exists so builders never call time.Now directly -- every stage's notion
// of "now" is injected, which is what makes S1/S2 in the testable
// properties reproducible.
type Clock func() string

// SystemClock returns the wall-clock time in UTC, Z-suffixed.
func SystemClock() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// FixedClock returns a Clock that always answers ts, used by tests and by
// any stage invocation that is handed an explicit now_utc.
func FixedClock(ts string) Clock {
	return func() string { return ts }
}

// Kernel bundles the shared context every stage builder needs.
type Kernel struct {
	Config     *config.Config
	Store      *immutablestore.Store
	Schemas    *schemagate.Registry
	FailClosed *failclosed.Controller
	Now        Clock
}

// New builds a Kernel from a loaded Config and a set of known schema
// names mapped to their file paths under cfg.SchemaRoot.
func New(cfg *config.Config, schemaEntries map[string]string, now Clock) *Kernel {
	store := immutablestore.New(cfg.TruthRoot)
	schemas := schemagate.NewRegistry(cfg.SchemaRoot, schemaEntries)
	controller := failclosed.New(store, schemas, cfg.Producer())

	if now == nil {
		now = SystemClock
	}

	return &Kernel{
		Config:     cfg,
		Store:      store,
		Schemas:    schemas,
		FailClosed: controller,
		Now:        now,
	}
}

// DayAnchorPath returns the canonical path whose embedded producer.git_sha
// acts as the day's producer lock anchor, conventionally the first
// artifact a stage writes for stageDir on a given day.
func (k *Kernel) DayAnchorPath(stageDir, day, filename string) string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Config.TruthRoot, stageDir, day, filename)
}
