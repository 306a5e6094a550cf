package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/constellation2/evidence-kernel/pkg/fingerprint"
)

type fakeKV struct {
	data map[string][]byte
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string][]byte{}} }

func (f *fakeKV) Get(key []byte) ([]byte, error) { return f.data[string(key)], nil }
func (f *fakeKV) Set(key, value []byte) error {
	f.data[string(key)] = value
	return nil
}

func TestHandleStageStatusReportsProcessed(t *testing.T) {
	store := fingerprint.NewStore(newFakeKV())
	if err := store.MarkProcessed("2026-02-13", "accounting", "deadbeef"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := NewStatusHandlers(store)

	req := httptest.NewRequest(http.MethodGet, "/api/stage-status?day_utc=2026-02-13&stage=accounting", nil)
	rec := httptest.NewRecorder()
	h.HandleStageStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"processed":true`) || !strings.Contains(body, `"artifact_hash":"deadbeef"`) {
		t.Fatalf("expected processed=true and artifact_hash in body, got %s", body)
	}
}

func TestHandleStageStatusRequiresQueryParams(t *testing.T) {
	h := NewStatusHandlers(fingerprint.NewStore(newFakeKV()))
	req := httptest.NewRequest(http.MethodGet, "/api/stage-status", nil)
	rec := httptest.NewRecorder()
	h.HandleStageStatus(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleHealthzReportsOK(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	HandleHealthz(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"status":"OK"}` {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
