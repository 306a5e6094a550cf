package anchor

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type fakeEthTransactor struct {
	sent []*types.Transaction
}

func (f *fakeEthTransactor) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 1, nil
}

func (f *fakeEthTransactor) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeEthTransactor) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeEthTransactor) NetworkID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1337), nil
}

func testSigningKey(t *testing.T) []byte {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("unexpected error generating test key: %v", err)
	}
	return crypto.FromECDSA(key)
}

func TestEthereumAnchorAdapterPublishesCalldata(t *testing.T) {
	client := &fakeEthTransactor{}
	adapter, err := NewEthereumAnchorAdapter(client, common.HexToAddress("0x1111111111111111111111111111111111111111"), testSigningKey(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	receipt, err := adapter.PublishDayBatch(context.Background(), Request{DayUTC: "2026-02-13", MerkleRoot: "deadbeef", CorrelationID: "corr-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("expected exactly 1 transaction sent, got %d", len(client.sent))
	}
	if string(client.sent[0].Data()) != "deadbeef" {
		t.Fatalf("expected merkle root as calldata, got %s", client.sent[0].Data())
	}
	if receipt.CorrelationID != "corr-1" {
		t.Fatalf("expected correlation id to round-trip, got %s", receipt.CorrelationID)
	}
}

func TestEthereumAnchorAdapterRejectsEmptyMerkleRoot(t *testing.T) {
	adapter, err := NewEthereumAnchorAdapter(&fakeEthTransactor{}, common.Address{}, testSigningKey(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = adapter.PublishDayBatch(context.Background(), Request{DayUTC: "2026-02-13"})
	if err != ErrEmptyMerkleRoot {
		t.Fatalf("expected ErrEmptyMerkleRoot, got %v", err)
	}
}
