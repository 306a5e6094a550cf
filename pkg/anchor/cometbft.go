package anchor

import (
	"context"
	"fmt"

	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
)

// cmtBroadcaster is the narrow slice of a CometBFT RPC http.Client this
// adapter needs, letting tests exercise it against a fake broadcaster
// instead of a live node.
type cmtBroadcaster interface {
	BroadcastTxSync(ctx context.Context, tx []byte) (*coretypes.ResultBroadcastTx, error)
}

// CometBFTAnchorAdapter publishes a day batch's Merkle root as a raw
// transaction to a CometBFT application's mempool via BroadcastTxSync.
// The application's own ABCI logic (out of this kernel's scope)
// decides how the transaction is interpreted and committed.
type CometBFTAnchorAdapter struct {
	client cmtBroadcaster
}

// NewCometBFTAnchorAdapter builds an adapter around an existing
// cmtBroadcaster-shaped client (typically rpc/client/http's *http.HTTP).
func NewCometBFTAnchorAdapter(client cmtBroadcaster) (*CometBFTAnchorAdapter, error) {
	if client == nil {
		return nil, fmt.Errorf("anchor: cometbft client cannot be nil")
	}
	return &CometBFTAnchorAdapter{client: client}, nil
}

// Name identifies this adapter in logs and metrics labels.
func (a *CometBFTAnchorAdapter) Name() string { return "cometbft" }

// PublishDayBatch broadcasts req.MerkleRoot as the transaction payload
// and reports mempool acceptance; it does not wait for the transaction
// to be included in a block.
func (a *CometBFTAnchorAdapter) PublishDayBatch(ctx context.Context, req Request) (Receipt, error) {
	if req.MerkleRoot == "" {
		return Receipt{}, ErrEmptyMerkleRoot
	}

	res, err := a.client.BroadcastTxSync(ctx, []byte(req.MerkleRoot))
	if err != nil {
		return Receipt{}, fmt.Errorf("anchor: BroadcastTxSync failed: %w", err)
	}
	if res.Code != 0 {
		return Receipt{}, fmt.Errorf("anchor: mempool rejected transaction: code=%d log=%s", res.Code, res.Log)
	}

	return Receipt{
		CorrelationID:   req.CorrelationID,
		TransactionHash: cmtbytes.HexBytes(res.Hash).String(),
		Confirmed:       false,
		PublishedUTC:    now(),
	}, nil
}
