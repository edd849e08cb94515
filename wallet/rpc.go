package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// JSON-RPC error codes a wallet endpoint may return
const (
	codeUserRejected   = 4001   // EIP-1193
	codeMethodNotFound = -32601 // JSON-RPC 2.0
)

// Caller is the subset of *rpc.Client used by RPCProvider.
type Caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// RPCProvider asks a JSON-RPC endpoint that manages accounts (a dev node or a
// desktop wallet) for accounts and signatures.
type RPCProvider struct {
	c Caller
}

// NewRPCProvider wraps c, usually ethclient.Client.Client().
func NewRPCProvider(c Caller) *RPCProvider {
	return &RPCProvider{c: c}
}

func (p *RPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	if p == nil || p.c == nil {
		return nil, ErrNoWallet
	}
	var accounts []common.Address
	if err := p.c.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("eth_accounts: %w", classify(err))
	}
	return accounts, nil
}

func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if p == nil || p.c == nil {
		return nil, ErrNoWallet
	}
	var accounts []common.Address
	err := p.c.CallContext(ctx, &accounts, "eth_requestAccounts")
	if errorCode(err) == codeMethodNotFound {
		// Plain nodes expose their unlocked accounts without a prompt.
		return p.Accounts(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("eth_requestAccounts: %w", classify(err))
	}
	if len(accounts) == 0 {
		return nil, ErrNoWallet
	}
	return accounts, nil
}

type sendTxArgs struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Gas   hexutil.Uint64 `json:"gas"`
	Value *hexutil.Big   `json:"value,omitempty"`
	Data  hexutil.Bytes  `json:"data"`
}

func (p *RPCProvider) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	if p == nil || p.c == nil {
		return common.Hash{}, ErrNoWallet
	}
	args := sendTxArgs{
		From: req.From,
		To:   req.To,
		Gas:  hexutil.Uint64(req.Gas),
		Data: req.Data,
	}
	if req.Value != nil {
		args.Value = (*hexutil.Big)(req.Value)
	}

	var hash common.Hash
	if err := p.c.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("eth_sendTransaction: %w", classify(err))
	}
	return hash, nil
}

func errorCode(err error) int {
	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode()
	}
	return 0
}

func classify(err error) error {
	if errorCode(err) == codeUserRejected {
		return errors.Join(ErrUserRejected, err)
	}
	return err
}
