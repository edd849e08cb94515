package waveportal

import (
	"context"

	bind "github.com/ethereum/go-ethereum/accounts/abi/bind/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Transaction is a submitted wave.
type Transaction struct {
	Hash   common.Hash
	client *Client
}

// Wait blocks until the transaction is mined or ctx is done. A mined but
// reverted transaction returns its receipt together with ErrReverted.
func (t *Transaction) Wait(ctx context.Context) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, t.client.backend, t.Hash)
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, ErrReverted
	}
	t.client.logger.Debug("Wave mined", "hash", t.Hash.Hex(), "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed)
	return receipt, nil
}
