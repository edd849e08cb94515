// Package wallet talks to whatever holds the user's keys: a JSON-RPC wallet
// endpoint or a local keystore. It mirrors the EIP-1193 account requests a
// browser extension answers.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNoWallet means there is no wallet to ask, or it holds no accounts.
	ErrNoWallet = errors.New("no wallet available")
	// ErrUserRejected means the user declined the connection or signing prompt.
	ErrUserRejected = errors.New("user rejected the request")
)

// TxRequest is a state-changing call to be signed by the wallet.
type TxRequest struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Gas   uint64
	Value *big.Int
}

// Provider is the wallet seen by the rest of the app.
type Provider interface {
	// Accounts returns already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	// RequestAccounts prompts the user to authorize accounts.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// SendTransaction signs and broadcasts req, returning the tx hash.
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
}

// CheckExistingConnection returns the first already-authorized account.
func CheckExistingConnection(ctx context.Context, p Provider) (common.Address, bool, error) {
	if p == nil {
		return common.Address{}, false, ErrNoWallet
	}
	accounts, err := p.Accounts(ctx)
	if err != nil {
		return common.Address{}, false, err
	}
	if len(accounts) == 0 {
		return common.Address{}, false, nil
	}
	return accounts[0], true, nil
}

// Connect prompts for authorization and returns the first approved account.
func Connect(ctx context.Context, p Provider) (common.Address, error) {
	if p == nil {
		return common.Address{}, ErrNoWallet
	}
	accounts, err := p.RequestAccounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, ErrNoWallet
	}
	return accounts[0], nil
}
