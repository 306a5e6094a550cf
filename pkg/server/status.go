// Copyright 2025 Constellation 2.0
//
// Package server is a minimal read-only HTTP status surface. The
// kernel's own evidence is the flat-file truth tree; this server
// exists only to give the fingerprint store a consumer -- it answers
// "what happened for day X" from
// already-written state, and writes nothing of its own.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/constellation2/evidence-kernel/pkg/fingerprint"
)

// StatusHandlers exposes read-only status endpoints backed by the
// fingerprint store.
type StatusHandlers struct {
	fingerprints *fingerprint.Store
}

// NewStatusHandlers builds StatusHandlers around an existing
// fingerprint store.
func NewStatusHandlers(fingerprints *fingerprint.Store) *StatusHandlers {
	return &StatusHandlers{fingerprints: fingerprints}
}

type stageStatusResponse struct {
	DayUTC       string `json:"day_utc"`
	Stage        string `json:"stage"`
	Processed    bool   `json:"processed"`
	ArtifactHash string `json:"artifact_hash,omitempty"`
}

// HandleStageStatus handles GET /api/stage-status?day_utc=...&stage=...
func (h *StatusHandlers) HandleStageStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.fingerprints == nil {
		http.Error(w, `{"error":"fingerprint store not available"}`, http.StatusInternalServerError)
		return
	}

	dayUTC := r.URL.Query().Get("day_utc")
	stage := r.URL.Query().Get("stage")
	if dayUTC == "" || stage == "" {
		http.Error(w, `{"error":"day_utc and stage are required"}`, http.StatusBadRequest)
		return
	}

	hash, done, err := h.fingerprints.Processed(dayUTC, stage)
	if err != nil {
		http.Error(w, `{"error":"failed to read fingerprint store"}`, http.StatusInternalServerError)
		return
	}

	resp := stageStatusResponse{DayUTC: dayUTC, Stage: stage, Processed: done, ArtifactHash: hash}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// HandleHealthz handles GET /healthz -- a bare liveness check with no
// dependency on any of the kernel's stores.
func HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"OK"}`))
}
