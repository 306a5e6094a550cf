package kernel

import (
	"testing"

	"github.com/constellation2/evidence-kernel/pkg/config"
)

func TestNewBuildsKernelWithSystemClockByDefault(t *testing.T) {
	cfg := &config.Config{
		RepoRoot:       "/srv",
		TruthRoot:      t.TempDir(),
		SchemaRoot:     t.TempDir(),
		ProducerGitSHA: "sha",
	}
	k := New(cfg, map[string]string{}, nil)
	if k.Now == nil {
		t.Fatal("expected a default clock to be set")
	}
	if k.Store == nil || k.Schemas == nil || k.FailClosed == nil {
		t.Fatal("expected store, schemas, and fail-closed controller to be wired")
	}
}

func TestFixedClockReturnsConstantTimestamp(t *testing.T) {
	clock := FixedClock("2026-02-13T21:52:00Z")
	if clock() != "2026-02-13T21:52:00Z" {
		t.Fatalf("unexpected clock output: %s", clock())
	}
}
