package main

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"wave-portal-tui/config"
	"wave-portal-tui/wallet"
	"wave-portal-tui/waveportal"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

// chain is an in-memory WavePortal node.
type chain struct {
	mu    sync.Mutex
	total *big.Int
	logs  chan<- types.Log
	ready chan struct{}
	// endStream closes the event stream right after subscribing
	endStream bool
}

// waveRecord mirrors the contract's Wave tuple for packing call results.
type waveRecord struct {
	Waver     common.Address
	Message   string
	Timestamp *big.Int
}

func newChain(total int64) *chain {
	return &chain{total: big.NewInt(total), ready: make(chan struct{})}
}

func (c *chain) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bytes.HasPrefix(msg.Data, waveportal.ABI.Methods["getTotalWaves"].ID) {
		return waveportal.ABI.Methods["getTotalWaves"].Outputs.Pack(c.total)
	}
	if bytes.HasPrefix(msg.Data, waveportal.ABI.Methods["getAllWaves"].ID) {
		return waveportal.ABI.Methods["getAllWaves"].Outputs.Pack([]waveRecord{})
	}
	return nil, nil
}

func (c *chain) CodeAt(ctx context.Context, account common.Address, block *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (c *chain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = new(big.Int).Add(c.total, big.NewInt(1))
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash}, nil
}

func (c *chain) BlockNumber(ctx context.Context) (uint64, error) { return 1, nil }

func (c *chain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (c *chain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	c.mu.Lock()
	c.logs = ch
	end := c.endStream
	c.mu.Unlock()
	close(c.ready)
	return event.NewSubscription(func(unsub <-chan struct{}) error {
		if end {
			return nil
		}
		<-unsub
		return nil
	}), nil
}

type stubWallet struct {
	sent []wallet.TxRequest
}

func (w *stubWallet) Accounts(context.Context) ([]common.Address, error) {
	return []common.Address{accountA}, nil
}
func (w *stubWallet) RequestAccounts(context.Context) ([]common.Address, error) {
	return []common.Address{accountA}, nil
}
func (w *stubWallet) SendTransaction(ctx context.Context, req wallet.TxRequest) (common.Hash, error) {
	w.sent = append(w.sent, req)
	return txHash, nil
}

// syncBuffer is written by subscription goroutines and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestSession(c *chain, w *stubWallet, out io.Writer) *session {
	contract := common.HexToAddress(config.DefaultContractAddress)
	return &session{
		env:    config.Env{ContractAddress: contract.Hex()},
		wallet: w,
		portal: waveportal.New(contract, c, w, waveportal.WithPollInterval(time.Millisecond)),
		logger: log.New(io.Discard),
		out:    out,
	}
}

func TestNewAppCommands(t *testing.T) {
	app := newApp()

	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
		assert.NotNil(t, c.Action)
	}
	assert.Equal(t, []string{"wave", "total", "list", "watch"}, names)
	assert.NotNil(t, app.Action, "TUI runs without a subcommand")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	app := newApp()

	var got config.Env
	app.Action = func(ctx context.Context, c *cli.Command) error {
		got = applyFlags(config.Env{RPCURL: "http://env", GasLimit: 300000}, c)
		return nil
	}

	err := app.Run(t.Context(), []string{"waveportal", "--rpc", "http://flag", "--gas-limit", "50000", "--wallet", "keystore"})
	require.NoError(t, err)

	assert.Equal(t, "http://flag", got.RPCURL)
	assert.Equal(t, uint64(50000), got.GasLimit)
	assert.Equal(t, config.WalletKeystore, got.Wallet)
}

func TestHeadlessRequiresRPC(t *testing.T) {
	t.Setenv("ETH_RPC_URL", "")

	err := newApp().Run(t.Context(), []string{"waveportal", "total"})

	assert.ErrorIs(t, err, ErrNoRPC)
}

func TestHeadlessRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("WAVE_CONTRACT_ADDRESS", "not-an-address")

	err := newApp().Run(t.Context(), []string{"waveportal", "total"})

	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestHeadlessWaveRejectsLongMessage(t *testing.T) {
	err := newApp().Run(t.Context(), []string{"waveportal", "wave", strings.Repeat("a", 141)})

	assert.ErrorIs(t, err, waveportal.ErrMessageTooLong)
}

func TestSessionWave(t *testing.T) {
	c := newChain(2)
	w := &stubWallet{}
	var out bytes.Buffer

	err := newTestSession(c, w, &out).wave(t.Context(), "hi")
	require.NoError(t, err)

	require.Len(t, w.sent, 1)
	assert.Equal(t, accountA, w.sent[0].From)
	assert.Equal(t, uint64(waveportal.DefaultGasLimit), w.sent[0].Gas)
	assert.Equal(t, "Total waves 3\n", out.String())
}

func TestSessionWatch(t *testing.T) {
	c := newChain(0)
	out := &syncBuffer{}
	s := newTestSession(c, &stubWallet{}, out)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.watch(ctx) }()

	<-c.ready
	data, err := waveportal.ABI.Events["NewWave"].Inputs.NonIndexed().Pack(big.NewInt(1000), "hi")
	require.NoError(t, err)
	c.logs <- types.Log{
		Address: s.portal.Address(),
		Topics:  []common.Hash{waveportal.ABI.Events["NewWave"].ID, common.BytesToHash(accountA.Bytes())},
		Data:    data,
	}

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), accountA.Hex()+"\t")
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "\thi\n")

	cancel()
	assert.NoError(t, <-done)
}

func TestSessionWatchStreamClosed(t *testing.T) {
	c := newChain(0)
	c.endStream = true
	s := newTestSession(c, &stubWallet{}, io.Discard)

	done := make(chan error, 1)
	go func() { done <- s.watch(t.Context()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrWatchEnded)
	case <-time.After(2 * time.Second):
		t.Fatal("watch kept waiting on a closed stream")
	}
}

func TestFormatWaveLine(t *testing.T) {
	w := waveportal.Wave{Address: accountA, Timestamp: time.Unix(1000, 0), Message: "hi"}

	parts := strings.Split(formatWaveLine(w), "\t")

	require.Len(t, parts, 3)
	assert.Equal(t, accountA.Hex(), parts[0])
	assert.Equal(t, "hi", parts[2])
}
