package main

import (
	"context"
	"math/big"

	"wave-portal-tui/rpc"
	"wave-portal-tui/waveportal"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// -------------------- TEA MESSAGES --------------------
// All custom message types for The Elm Architecture

// logInitMsg signals that log viewport should be initialized
type logInitMsg struct{}

// rpcConnectedMsg contains result of RPC connection attempt
type rpcConnectedMsg struct {
	client *rpc.Client
	err    error
}

// accountsMsg carries the account found by a connection check or a connect request
type accountsMsg struct {
	account  common.Address
	found    bool
	prompted bool
	err      error
}

// keystoreUnlockedMsg reports the start-up unlock with the environment passphrase
type keystoreUnlockedMsg struct {
	account common.Address
	err     error
}

// totalLoadedMsg contains the contract counter
type totalLoadedMsg struct {
	total *big.Int
	err   error
}

// wavesLoadedMsg contains the full wave history
type wavesLoadedMsg struct {
	waves []waveportal.Wave
	err   error
}

// waveSubmittedMsg is sent once the wallet returned a transaction hash
type waveSubmittedMsg struct {
	tx  *waveportal.Transaction
	err error
}

// waveMinedMsg is sent once the submitted wave has a receipt
type waveMinedMsg struct {
	hash    common.Hash
	receipt *types.Receipt
	err     error
}

// subscribedMsg contains the live NewWave subscription made under ctx
type subscribedMsg struct {
	ctx context.Context
	sub *waveportal.Subscription
	err error
}

// subscriptionClosedMsg is sent when a subscription's delivery loop exits
type subscriptionClosedMsg struct {
	sub *waveportal.Subscription
	err error
}

// newWaveMsg carries one wave forwarded under ctx
type newWaveMsg struct {
	ctx  context.Context
	wave waveportal.Wave
}

// passphraseRequest asks the UI to unlock a keystore account
type passphraseRequest struct {
	account accounts.Account
	reply   chan passphraseReply
}

type passphraseReply struct {
	passphrase string
	err        error
}

// passphraseRequestMsg delivers a passphraseRequest to the update loop
type passphraseRequestMsg struct {
	req passphraseRequest
}

// clipboardCopiedMsg indicates clipboard copy completed
type clipboardCopiedMsg struct {
	what string
	err  error
}

// clearCopiedMsg hides the copy confirmation
type clearCopiedMsg struct{}
