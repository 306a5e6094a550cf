// Copyright 2025 Constellation 2.0
//
// Package anchor defines the AnchorAdapter contract: an optional,
// out-of-fail-closed-hot-path publish of a day batch's Merkle root to
// an external chain for independent corroboration. Like BrokerAdapter,
// this is contract-only from the kernel's perspective -- no builder or
// gate ever calls it directly, and a day's artifacts are already
// complete and hashed before any AnchorAdapter runs. A publish failure
// here is operational noise, never a reason to veto a day's evidence.
package anchor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Request is a day batch anchor publish request.
type Request struct {
	DayUTC     string
	MerkleRoot string
	// CorrelationID identifies this publish attempt across logs and
	// external-chain lookups. It is operational metadata only and is
	// never part of any hashed artifact.
	CorrelationID string
}

// Receipt is what a successful (or attempted) publish returns.
type Receipt struct {
	CorrelationID   string
	TransactionHash string
	Confirmed       bool
	PublishedUTC    string
}

// Adapter is the contract every external anchor transport implements.
type Adapter interface {
	Name() string
	PublishDayBatch(ctx context.Context, req Request) (Receipt, error)
}

// NewCorrelationID mints a fresh correlation id for a publish attempt.
func NewCorrelationID() string {
	return uuid.NewString()
}

// ErrEmptyMerkleRoot is returned by an Adapter when asked to publish a
// request with no merkle root.
var ErrEmptyMerkleRoot = fmt.Errorf("anchor: merkle_root is required")

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
