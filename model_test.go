package main

import (
	"context"
	"math/big"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wave-portal-tui/config"
	"wave-portal-tui/rpc"
	"wave-portal-tui/wallet"
	"wave-portal-tui/waveportal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	accountA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	txHash   = common.HexToHash("0x01")
)

func newTestModel(t *testing.T) *model {
	t.Helper()
	env := config.Env{
		ContractAddress: config.DefaultContractAddress,
		GasLimit:        waveportal.DefaultGasLimit,
		ExplorerURL:     "https://rinkeby.etherscan.io",
	}
	m := newModel(env, filepath.Join(t.TempDir(), config.FileName))
	t.Cleanup(m.cancel)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return &m
}

// withPortal binds the model to an in-memory contract holding total waves.
func withPortal(m *model, total int64) {
	m.portal = waveportal.New(common.HexToAddress(config.DefaultContractAddress), newChain(total), &stubWallet{})
}

// collect runs cmd and flattens batches into the messages they produce.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestDisconnectedShowsConnectOnly(t *testing.T) {
	m := newTestModel(t)

	view := m.View()
	assert.Contains(t, view, "Connect Wallet")
	assert.NotContains(t, view, "Total waves")
	assert.NotContains(t, view, "No waves yet")
}

func TestExistingAccountIsAdopted(t *testing.T) {
	m := newTestModel(t)

	m.Update(accountsMsg{account: accountA, found: true})

	assert.Equal(t, accountA, m.state.Account)
	assert.False(t, m.connecting)
	view := m.View()
	assert.Contains(t, view, "Total waves 0")
	assert.NotContains(t, view, "Connect Wallet")
}

func TestNoExistingAccountLeavesStateUnchanged(t *testing.T) {
	m := newTestModel(t)

	m.Update(accountsMsg{found: false})

	assert.False(t, m.state.Connected())
}

func TestConnectWithoutWallet(t *testing.T) {
	m := newTestModel(t)

	_, cmd := m.Update(key("c"))

	assert.Nil(t, cmd)
	assert.False(t, m.connecting)
	assert.False(t, m.state.Connected())
}

func TestConnectRejected(t *testing.T) {
	m := newTestModel(t)
	m.connecting = true

	m.Update(accountsMsg{prompted: true, err: wallet.ErrUserRejected})

	assert.False(t, m.connecting)
	assert.False(t, m.state.Connected())
}

func TestInputLimitedTo140Characters(t *testing.T) {
	m := newTestModel(t)

	m.input.SetValue(strings.Repeat("a", 141))

	assert.Len(t, []rune(m.input.Value()), waveportal.MaxMessageLength)
}

func TestWaveLifecycle(t *testing.T) {
	m := newTestModel(t)
	m.Update(accountsMsg{account: accountA, found: true})
	m.input.SetValue("hi")

	_, cmd := m.Update(waveSubmittedMsg{tx: &waveportal.Transaction{Hash: txHash}})
	require.NotNil(t, cmd, "waits for the receipt")
	assert.True(t, m.state.Pending)
	assert.Equal(t, txHash, m.lastTx)
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.View(), "Mining...")

	withPortal(m, 7)
	_, cmd = m.Update(waveMinedMsg{hash: txHash, receipt: &types.Receipt{GasUsed: 26000}})
	assert.False(t, m.state.Pending)

	var loadedTotal, loadedWaves bool
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case totalLoadedMsg:
			loadedTotal = true
		case wavesLoadedMsg:
			loadedWaves = true
		}
		m.Update(msg)
	}
	assert.True(t, loadedTotal, "total is re-read")
	assert.True(t, loadedWaves, "history is re-read")
	assert.Equal(t, "7", m.state.TotalString())
	assert.Contains(t, m.View(), "Total waves 7")
}

func TestRevertedWaveClearsPending(t *testing.T) {
	m := newTestModel(t)
	m.Update(accountsMsg{account: accountA, found: true})
	m.Update(waveSubmittedMsg{tx: &waveportal.Transaction{Hash: txHash}})

	_, cmd := m.Update(waveMinedMsg{hash: txHash, err: waveportal.ErrReverted})

	assert.Nil(t, cmd, "no re-read after a failed wave")
	assert.False(t, m.state.Pending)
}

func TestRejectedSubmissionKeepsState(t *testing.T) {
	m := newTestModel(t)
	m.Update(accountsMsg{account: accountA, found: true})
	m.submitting = true

	m.Update(waveSubmittedMsg{err: wallet.ErrUserRejected})

	assert.False(t, m.submitting)
	assert.False(t, m.state.Pending)
	assert.Equal(t, common.Hash{}, m.lastTx)
}

func TestSubmitGatedWhilePending(t *testing.T) {
	m := newTestModel(t)
	m.Update(accountsMsg{account: accountA, found: true})
	m.state.BeginPending()
	m.composing = true

	_, cmd := m.Update(key("enter"))

	assert.Nil(t, cmd)
	assert.False(t, m.submitting)
}

func TestNewWaveAppendsAtEnd(t *testing.T) {
	m := newTestModel(t)
	m.Update(accountsMsg{account: accountA, found: true})
	m.wavesCtx, m.stopWavesF = context.WithCancel(m.ctx)
	m.waveCh = make(chan waveportal.Wave, 1)
	m.Update(wavesLoadedMsg{waves: []waveportal.Wave{
		{Address: accountA, Timestamp: time.Unix(10, 0), Message: "first"},
	}})

	incoming := waveportal.Wave{Address: accountA, Timestamp: time.Unix(1000, 0), Message: "hi"}
	_, cmd := m.Update(newWaveMsg{ctx: m.wavesCtx, wave: incoming})

	assert.NotNil(t, cmd, "listener is re-armed")
	require.Len(t, m.state.Waves, 2)
	assert.Equal(t, incoming, m.state.Waves[1])
	assert.Contains(t, m.View(), "Message: hi")
}

func TestFailedReadsAreSwallowed(t *testing.T) {
	m := newTestModel(t)
	m.Update(accountsMsg{account: accountA, found: true})
	m.Update(totalLoadedMsg{total: big.NewInt(3)})

	m.Update(totalLoadedMsg{err: waveportal.ErrNoContract})
	m.Update(wavesLoadedMsg{err: waveportal.ErrNoContract})

	assert.Equal(t, "3", m.state.TotalString())
	assert.Empty(t, m.state.Waves)
}

func TestComposeToggle(t *testing.T) {
	m := newTestModel(t)
	m.Update(key("i"))
	assert.False(t, m.composing, "no input before an account is connected")

	m.Update(accountsMsg{account: accountA, found: true})
	m.Update(key("i"))
	assert.True(t, m.composing)

	m.Update(key("q"))
	assert.Equal(t, "q", m.input.Value(), "keys go to the input while composing")

	m.Update(key("esc"))
	assert.False(t, m.composing)
}

func TestUnlockFormRejects(t *testing.T) {
	m := newTestModel(t)
	reply := make(chan passphraseReply, 1)

	_, cmd := m.Update(passphraseRequestMsg{req: passphraseRequest{
		account: accounts.Account{Address: accountA},
		reply:   reply,
	}})
	assert.NotNil(t, cmd, "listener is re-armed")
	require.NotNil(t, m.unlockForm)

	m.Update(key("esc"))

	assert.Nil(t, m.unlockForm)
	got := <-reply
	assert.ErrorIs(t, got.err, wallet.ErrUserRejected)
}

func TestPassphrasePrompter(t *testing.T) {
	requests := make(chan passphraseRequest)
	prompt := passphrasePrompter(requests)

	t.Run("answered", func(t *testing.T) {
		go func() {
			req := <-requests
			req.reply <- passphraseReply{passphrase: "hunter2"}
		}()

		got, err := prompt(t.Context(), accounts.Account{Address: accountA})
		require.NoError(t, err)
		assert.Equal(t, "hunter2", got)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := prompt(ctx, accounts.Account{Address: accountA})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSettingsActivateSwitchesEndpoint(t *testing.T) {
	m := newTestModel(t)
	m.rpcURLs = []config.RPCUrl{
		{Name: "one", URL: "http://127.0.0.1:1", Active: true},
		{Name: "two", URL: "http://127.0.0.1:2"},
	}
	m.Update(key("s"))
	require.Equal(t, config.PageSettings, m.activePage)

	m.Update(key("down"))
	_, cmd := m.Update(key("enter"))

	assert.NotNil(t, cmd, "dials the new endpoint")
	assert.Equal(t, "http://127.0.0.1:2", m.rpcURL)
	assert.True(t, m.rpcConnecting)
	assert.False(t, m.rpcURLs[0].Active)
	assert.True(t, m.rpcURLs[1].Active)

	saved := config.Load(m.configPath)
	assert.Equal(t, "http://127.0.0.1:2", saved.ActiveRPC(""))
}

func TestSettingsDeleteActiveRefused(t *testing.T) {
	m := newTestModel(t)
	m.rpcURLs = []config.RPCUrl{{Name: "one", URL: "http://127.0.0.1:1", Active: true}}
	m.activePage = config.PageSettings

	m.Update(key("d"))

	assert.Len(t, m.rpcURLs, 1)
}

func TestLogPanel(t *testing.T) {
	m := newTestModel(t)
	m.Update(key("l"))
	require.True(t, m.logEnabled)

	m.Update(logInitMsg{})
	m.Update(accountsMsg{account: accountA, found: true})

	out := m.logBuffer.String()
	assert.Contains(t, out, "Logger enabled")
	assert.Contains(t, out, accountA.Hex())
	assert.True(t, config.Load(m.configPath).Logger, "toggle is persisted")
}

func TestStoppedWavesDeliverNothing(t *testing.T) {
	m := newTestModel(t)
	m.wavesCtx, m.stopWavesF = context.WithCancel(m.ctx)
	m.waveCh = make(chan waveportal.Wave, 1)
	wait := waitForWave(m.wavesCtx, m.waveCh)

	m.teardown()

	assert.Nil(t, wait(), "no message once the listener is stopped")
	assert.Nil(t, m.stopWavesF)
}

func TestWaveFromStoppedListenerDropped(t *testing.T) {
	m := newTestModel(t)
	m.Update(accountsMsg{account: accountA, found: true})
	staleCtx, stop := context.WithCancel(m.ctx)
	stop()
	m.wavesCtx, m.stopWavesF = context.WithCancel(m.ctx)

	_, cmd := m.Update(newWaveMsg{ctx: staleCtx, wave: waveportal.Wave{Address: accountA, Message: "late"}})

	assert.Nil(t, cmd, "no second listener is armed")
	assert.Empty(t, m.state.Waves)
}

func TestSameAccountIsNotReloaded(t *testing.T) {
	m := newTestModel(t)
	withPortal(m, 1)

	_, cmd := m.Update(accountsMsg{account: accountA, found: true})
	assert.NotNil(t, cmd, "first adoption loads the board")

	_, cmd = m.Update(accountsMsg{account: accountA, found: true})
	assert.Nil(t, cmd, "re-check after a reconnect issues no second load")

	other := common.HexToAddress("0x000000000000000000000000000000000000000b")
	_, cmd = m.Update(accountsMsg{account: other, found: true})
	assert.NotNil(t, cmd)
	assert.Equal(t, other, m.state.Account)
}

func TestHeaderShowsPollingTransport(t *testing.T) {
	m := newTestModel(t)
	m.rpcURL = "http://127.0.0.1:8545"
	m.rpcConnected = true
	m.ethClient = &rpc.Client{URL: m.rpcURL}
	m.sub = &waveportal.Subscription{}

	assert.Contains(t, m.globalHeader(), "polling")

	m.ethClient.URL = "ws://127.0.0.1:8546"
	assert.Contains(t, m.globalHeader(), "live")
}
