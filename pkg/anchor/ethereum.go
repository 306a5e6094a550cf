package anchor

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ethTransactor is the narrow slice of *ethclient.Client this adapter
// needs. Defining it as an interface lets tests exercise the adapter
// against a fake client-shaped stand-in instead of a live node.
type ethTransactor interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	NetworkID(ctx context.Context) (*big.Int, error)
}

// EthereumAnchorAdapter publishes a day batch's Merkle root as calldata
// to a configured contract address on an Ethereum-compatible chain.
type EthereumAnchorAdapter struct {
	client          ethTransactor
	contractAddress common.Address
	signingKey      []byte // ECDSA private key bytes; never logged, never hashed into any artifact
	fromAddress     common.Address
}

// NewEthereumAnchorAdapter builds an adapter around an existing
// ethTransactor-shaped client (typically *ethclient.Client).
func NewEthereumAnchorAdapter(client ethTransactor, contractAddress common.Address, signingKey []byte) (*EthereumAnchorAdapter, error) {
	if client == nil {
		return nil, fmt.Errorf("anchor: ethereum client cannot be nil")
	}
	privKey, err := crypto.ToECDSA(signingKey)
	if err != nil {
		return nil, fmt.Errorf("anchor: invalid ethereum signing key: %w", err)
	}
	return &EthereumAnchorAdapter{
		client:          client,
		contractAddress: contractAddress,
		signingKey:      signingKey,
		fromAddress:     crypto.PubkeyToAddress(privKey.PublicKey),
	}, nil
}

// Name identifies this adapter in logs and metrics labels.
func (a *EthereumAnchorAdapter) Name() string { return "ethereum" }

// PublishDayBatch sends req.MerkleRoot as calldata in a plain value
// transfer to the anchor contract address -- the contract's own logic
// (out of this kernel's scope) is responsible for interpreting and
// recording the calldata on-chain.
func (a *EthereumAnchorAdapter) PublishDayBatch(ctx context.Context, req Request) (Receipt, error) {
	if req.MerkleRoot == "" {
		return Receipt{}, ErrEmptyMerkleRoot
	}

	privKey, err := crypto.ToECDSA(a.signingKey)
	if err != nil {
		return Receipt{}, fmt.Errorf("anchor: invalid ethereum signing key: %w", err)
	}

	chainID, err := a.client.NetworkID(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("anchor: failed to fetch chain id: %w", err)
	}
	nonce, err := a.client.PendingNonceAt(ctx, a.fromAddress)
	if err != nil {
		return Receipt{}, fmt.Errorf("anchor: failed to fetch nonce: %w", err)
	}
	gasPrice, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("anchor: failed to fetch gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &a.contractAddress,
		Value:    big.NewInt(0),
		Gas:      60000,
		GasPrice: gasPrice,
		Data:     []byte(req.MerkleRoot),
	})

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), privKey)
	if err != nil {
		return Receipt{}, fmt.Errorf("anchor: failed to sign transaction: %w", err)
	}

	if err := a.client.SendTransaction(ctx, signedTx); err != nil {
		return Receipt{}, fmt.Errorf("anchor: failed to send transaction: %w", err)
	}

	return Receipt{
		CorrelationID:   req.CorrelationID,
		TransactionHash: signedTx.Hash().Hex(),
		Confirmed:       false,
		PublishedUTC:    now(),
	}, nil
}
