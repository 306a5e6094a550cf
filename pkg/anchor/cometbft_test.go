package anchor

import (
	"context"
	"testing"

	coretypes "github.com/cometbft/cometbft/rpc/core/types"
)

type fakeCmtBroadcaster struct {
	lastTx []byte
	result *coretypes.ResultBroadcastTx
	err    error
}

func (f *fakeCmtBroadcaster) BroadcastTxSync(ctx context.Context, tx []byte) (*coretypes.ResultBroadcastTx, error) {
	f.lastTx = tx
	return f.result, f.err
}

func TestCometBFTAnchorAdapterPublishesMerkleRoot(t *testing.T) {
	client := &fakeCmtBroadcaster{result: &coretypes.ResultBroadcastTx{Code: 0, Hash: []byte{0xDE, 0xAD, 0xBE, 0xEF}}}
	adapter, err := NewCometBFTAnchorAdapter(client)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	receipt, err := adapter.PublishDayBatch(context.Background(), Request{DayUTC: "2026-02-13", MerkleRoot: "deadbeef", CorrelationID: "corr-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(client.lastTx) != "deadbeef" {
		t.Fatalf("expected merkle root as the broadcast payload, got %s", client.lastTx)
	}
	if receipt.TransactionHash == "" {
		t.Fatal("expected a non-empty transaction hash")
	}
}

func TestCometBFTAnchorAdapterFailsOnMempoolRejection(t *testing.T) {
	client := &fakeCmtBroadcaster{result: &coretypes.ResultBroadcastTx{Code: 1, Log: "invalid tx"}}
	adapter, err := NewCometBFTAnchorAdapter(client)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = adapter.PublishDayBatch(context.Background(), Request{DayUTC: "2026-02-13", MerkleRoot: "deadbeef"})
	if err == nil {
		t.Fatal("expected an error for a mempool-rejected transaction")
	}
}

func TestCometBFTAnchorAdapterRejectsEmptyMerkleRoot(t *testing.T) {
	adapter, err := NewCometBFTAnchorAdapter(&fakeCmtBroadcaster{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = adapter.PublishDayBatch(context.Background(), Request{DayUTC: "2026-02-13"})
	if err != ErrEmptyMerkleRoot {
		t.Fatalf("expected ErrEmptyMerkleRoot, got %v", err)
	}
}
