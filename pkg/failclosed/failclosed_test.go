package failclosed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/constellation2/evidence-kernel/pkg/immutablestore"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
)

func TestNewPanicsOnInvalidReasonCode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for invalid reason code")
		}
	}()
	New(BoundaryMapping, reasoncode.Code("NOT_A_REAL_CODE"), "x", nil)
}

func TestWriteVetoProducesDeterministicHashAndExitCode(t *testing.T) {
	root := t.TempDir()
	store := immutablestore.New(root)
	ctrl := New(store, nil, map[string]string{"repo": "constellation2", "git_sha": "abc123", "module": "kernel"})

	stageErr := New(BoundaryMapping, reasoncode.FreshnessCertInvalidOrExpired, "freshness window expired", nil)
	outDir := filepath.Join(root, "execution_evidence_v1", "submissions", "2026-02-13", "deadbeef")

	exit, err := ctrl.WriteVeto(outDir, "2026-02-13T22:00:00Z", stageErr, VetoInputs{IntentHash: "h1"}, []string{"p1"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exit != ExitVetoMapping {
		t.Fatalf("expected ExitVetoMapping, got %v", exit)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "veto_record.v1.json"))
	if err != nil {
		t.Fatalf("expected veto record to be written: %v", err)
	}
	if !strings.Contains(string(data), "C2_FRESHNESS_CERT_INVALID_OR_EXPIRED") {
		t.Fatalf("expected reason code in written artifact, got %s", data)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Fatal("expected artifact to end with a single trailing newline")
	}
}

func TestWriteVetoRefusesNonEmptyOutDir(t *testing.T) {
	root := t.TempDir()
	store := immutablestore.New(root)
	ctrl := New(store, nil, map[string]string{"repo": "r", "git_sha": "s", "module": "m"})

	outDir := filepath.Join(root, "bundle")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "existing.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	stageErr := New(BoundarySubmit, reasoncode.RiskBudgetExceeded, "over cap", nil)
	exit, err := ctrl.WriteVeto(outDir, "2026-02-13T22:00:00Z", stageErr, VetoInputs{}, nil, "")
	if err == nil {
		t.Fatal("expected error for non-empty output directory")
	}
	if exit != ExitHardFail {
		t.Fatalf("expected ExitHardFail, got %v", exit)
	}
}

func TestWriteFailureReturnsHardFailExit(t *testing.T) {
	root := t.TempDir()
	store := immutablestore.New(root)
	ctrl := New(store, nil, map[string]string{"repo": "r", "git_sha": "s", "module": "m"})

	stageErr := New(BoundaryMapping, reasoncode.SingleWriterViolation, "concurrent writer detected", nil)
	outDir := filepath.Join(root, "accounting_v1", "failures", "2026-02-13")

	exit, err := ctrl.WriteFailure(outDir, "2026-02-13T22:00:00Z", stageErr, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exit != ExitHardFail {
		t.Fatalf("expected ExitHardFail, got %v", exit)
	}
}

func TestStatusLine(t *testing.T) {
	if got := StatusLine(true, "ALLOCATION", "", ""); got != "OK: ALLOCATION_WRITTEN" {
		t.Fatalf("unexpected status line: %q", got)
	}
	if got := StatusLine(false, "", "C2_KILL_SWITCH_ACTIVE", "kill switch engaged"); got != "FAIL: C2_KILL_SWITCH_ACTIVE: kill switch engaged" {
		t.Fatalf("unexpected status line: %q", got)
	}
}
