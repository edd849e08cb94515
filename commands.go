package main

import (
	"context"
	"errors"
	"time"

	"wave-portal-tui/helpers"
	"wave-portal-tui/rpc"
	"wave-portal-tui/wallet"
	"wave-portal-tui/waveportal"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- COMMAND FUNCTIONS --------------------
// Functions that return tea.Cmd for async operations

const (
	callTimeout    = 30 * time.Second
	connectTimeout = 5 * time.Minute
)

// connectRPC establishes an RPC connection to the Ethereum node
func connectRPC(url string) tea.Cmd {
	return func() tea.Msg {
		result := rpc.Connect(url)
		return rpcConnectedMsg{client: result.Client, err: result.Error}
	}
}

// initLogViewport initializes the log viewport
func initLogViewport() tea.Cmd {
	return func() tea.Msg {
		return logInitMsg{}
	}
}

// checkExistingConnection looks for an already-authorized account without prompting
func checkExistingConnection(ctx context.Context, p wallet.Provider) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		addr, found, err := wallet.CheckExistingConnection(ctx, p)
		return accountsMsg{account: addr, found: found, err: err}
	}
}

// connectWallet asks the wallet to authorize an account
func connectWallet(ctx context.Context, p wallet.Provider) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		addr, err := wallet.Connect(ctx, p)
		return accountsMsg{account: addr, found: err == nil, prompted: true, err: err}
	}
}

// unlockKeystore unlocks the first keystore account with the passphrase from the environment
func unlockKeystore(ks *wallet.KeystoreProvider, passphrase string) tea.Cmd {
	return func() tea.Msg {
		addr, err := ks.UnlockFirst(passphrase)
		return keystoreUnlockedMsg{account: addr, err: err}
	}
}

// loadTotal reads the wave counter
func loadTotal(ctx context.Context, portal *waveportal.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		total, err := portal.TotalWaves(ctx)
		return totalLoadedMsg{total: total, err: err}
	}
}

// loadWaves reads the wave history
func loadWaves(ctx context.Context, portal *waveportal.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		waves, err := portal.AllWaves(ctx)
		return wavesLoadedMsg{waves: waves, err: err}
	}
}

// submitWave sends the wave transaction through the wallet
func submitWave(ctx context.Context, portal *waveportal.Client, from common.Address, message string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		tx, err := portal.SubmitWave(ctx, from, message)
		return waveSubmittedMsg{tx: tx, err: err}
	}
}

// waitMined blocks until the submitted wave is in a block
func waitMined(ctx context.Context, tx *waveportal.Transaction) tea.Cmd {
	return func() tea.Msg {
		receipt, err := tx.Wait(ctx)
		return waveMinedMsg{hash: tx.Hash, receipt: receipt, err: err}
	}
}

// subscribeWaves registers the NewWave listener. Waves are forwarded into ch
// until ctx is canceled.
func subscribeWaves(ctx context.Context, portal *waveportal.Client, ch chan<- waveportal.Wave) tea.Cmd {
	return func() tea.Msg {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		sub, err := portal.Subscribe(callCtx, func(w waveportal.Wave) {
			helpers.Send(ctx, ch, w)
		})
		return subscribedMsg{ctx: ctx, sub: sub, err: err}
	}
}

// waitForWave delivers the next forwarded wave. It is re-armed after every wave.
func waitForWave(ctx context.Context, ch <-chan waveportal.Wave) tea.Cmd {
	return func() tea.Msg {
		w, ok := helpers.Receive(ctx, ch)
		if !ok {
			return nil
		}
		return newWaveMsg{ctx: ctx, wave: w}
	}
}

// watchSubscription reports when the delivery loop of sub exits
func watchSubscription(sub *waveportal.Subscription) tea.Cmd {
	return func() tea.Msg {
		<-sub.Done()
		select {
		case err := <-sub.Err():
			return subscriptionClosedMsg{sub: sub, err: err}
		default:
			return subscriptionClosedMsg{sub: sub}
		}
	}
}

// passphrasePrompter hands keystore unlock requests to the update loop and
// waits for the form's answer.
func passphrasePrompter(requests chan<- passphraseRequest) wallet.PassphrasePrompt {
	return func(ctx context.Context, account accounts.Account) (string, error) {
		req := passphraseRequest{account: account, reply: make(chan passphraseReply, 1)}
		if !helpers.Send(ctx, requests, req) {
			return "", ctx.Err()
		}
		reply, ok := helpers.Receive(ctx, req.reply)
		if !ok {
			return "", errors.Join(wallet.ErrUserRejected, ctx.Err())
		}
		return reply.passphrase, reply.err
	}
}

// waitForPassphraseRequest delivers the next unlock request. It is re-armed after every request.
func waitForPassphraseRequest(ctx context.Context, requests <-chan passphraseRequest) tea.Cmd {
	return func() tea.Msg {
		req, ok := helpers.Receive(ctx, requests)
		if !ok {
			return nil
		}
		return passphraseRequestMsg{req: req}
	}
}

// copyToClipboard copies text to clipboard
func copyToClipboard(what, text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardCopiedMsg{what: what, err: clipboard.WriteAll(text)}
	}
}

// clearCopied waits 2 seconds then clears the clipboard feedback
func clearCopied() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return clearCopiedMsg{}
	})
}
