package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
repo_root: /srv/kernel
truth_root: /srv/kernel/runtime/truth
schema_root: /srv/kernel/schemas
producer_repo: constellation2/evidence-kernel
producer_git_sha: deadbeefcafe
producer_module: kernel
engine_caps:
  C2_TREND_EQ_PRIMARY_V1: "0.40"
  C2_VOL_INCOME_DEFINED_RISK_V1: "0.40"
  C2_MEAN_REVERSION_EQ_V1: "0.20"
log_level: info
metrics_addr: ":9090"
`

func TestLoadParsesAllFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RepoRoot != "/srv/kernel" {
		t.Fatalf("unexpected repo_root: %s", cfg.RepoRoot)
	}
	if cfg.EngineCaps["C2_TREND_EQ_PRIMARY_V1"] != "0.40" {
		t.Fatalf("unexpected engine cap: %v", cfg.EngineCaps)
	}
	producer := cfg.Producer()
	if producer["git_sha"] != "deadbeefcafe" {
		t.Fatalf("unexpected producer: %v", producer)
	}
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for missing required fields")
	}
}
