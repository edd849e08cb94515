package main

import (
	"errors"
	"fmt"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	logview "wave-portal-tui/views/log"
	"wave-portal-tui/views/settings"
	"wave-portal-tui/views/unlock"
	"wave-portal-tui/wallet"
	"wave-portal-tui/waveportal"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- UPDATE --------------------

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "ctrl+c" {
		return m, m.quit()
	}

	// The unlock form owns the keyboard while a wallet prompt is outstanding
	if m.unlockForm != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, m.updateUnlockForm(msg)
		}
	}

	if m.activePage == config.PageSettings && m.settingsAdding && m.form != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, m.updateSettingsForm(msg)
		}
	}

	switch msg := msg.(type) {

	case logInitMsg:
		if !m.logEnabled {
			return m, nil
		}
		m.logReady = true
		m.addLog("info", "Logger enabled")
		return m, nil

	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		m.input.Width = helpers.Max(20, msg.Width-24)
		if m.logEnabled {
			// Width accounts for border and padding
			m.logViewport.Width = helpers.Max(0, msg.Width-6)
			m.logViewport.Height = logview.PanelHeight(msg.Height)
			m.updateLogViewport()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		var cmds []tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		if m.logEnabled && !m.logReady {
			m.logSpinner, cmd = m.logSpinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		// Background goroutines log too; pick their lines up
		m.updateLogViewport()
		return m, tea.Batch(cmds...)

	case rpcConnectedMsg:
		if msg.client != nil && msg.client.URL != m.rpcURL {
			// A connection to an endpoint that was switched away from
			msg.client.Close()
			return m, nil
		}
		m.rpcConnecting = false
		if msg.err != nil {
			m.rpcConnected = false
			m.addLog("error", fmt.Sprintf("RPC connection failed: `%s`", msg.err.Error()))
			return m, nil
		}
		m.bind(msg.client)
		m.rpcConnected = true
		m.addLog("success", fmt.Sprintf("RPC connected to `%s`", msg.client.URL))
		if !msg.client.SupportsSubscriptions() {
			m.addLog("debug", "Transport has no push notifications, new waves are polled")
		}

		cmds := []tea.Cmd{m.startWaves(), checkExistingConnection(m.ctx, m.provider)}
		if m.state.Connected() {
			cmds = append(cmds, m.refresh())
		}
		return m, tea.Batch(cmds...)

	case keystoreUnlockedMsg:
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Keystore unlock failed: %s", msg.err))
			return m, nil
		}
		m.addLog("success", fmt.Sprintf("Unlocked keystore account `%s`", msg.account.Hex()))
		if m.portal != nil {
			return m, checkExistingConnection(m.ctx, m.provider)
		}
		return m, nil

	case accountsMsg:
		if msg.prompted {
			m.connecting = false
		}
		if msg.err != nil {
			switch {
			case errors.Is(msg.err, wallet.ErrUserRejected):
				m.addLog("warning", "Wallet connection rejected")
			case errors.Is(msg.err, wallet.ErrNoWallet):
				m.addLog("error", "Make sure you have a wallet! "+msg.err.Error())
			default:
				m.addLog("error", fmt.Sprintf("Wallet request failed: %s", msg.err))
			}
			return m, nil
		}
		if !msg.found {
			m.addLog("info", "No authorized account found")
			return m, nil
		}
		if msg.account == m.state.Account {
			// Reconnects re-check the wallet; the reads were already issued
			m.addLog("debug", fmt.Sprintf("Account `%s` still authorized", msg.account.Hex()))
			return m, nil
		}
		if !m.state.AdoptAccount(msg.account) {
			return m, nil
		}
		m.addLog("success", fmt.Sprintf("Found an authorized account: `%s`", msg.account.Hex()))
		return m, m.refresh()

	case totalLoadedMsg:
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Reading total waves failed: %s", msg.err))
			return m, nil
		}
		m.state.SetTotal(msg.total)
		m.addLog("debug", fmt.Sprintf("Retrieved total wave count: %s", m.state.TotalString()))
		return m, nil

	case wavesLoadedMsg:
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Reading waves failed: %s", msg.err))
			return m, nil
		}
		m.state.ReplaceWaves(msg.waves)
		m.addLog("debug", fmt.Sprintf("Retrieved %d waves", len(msg.waves)))
		return m, nil

	case waveSubmittedMsg:
		m.submitting = false
		if msg.err != nil {
			if errors.Is(msg.err, wallet.ErrUserRejected) {
				m.addLog("warning", "Wave rejected in the wallet")
			} else {
				m.addLog("error", fmt.Sprintf("Wave failed: %s", msg.err))
			}
			return m, nil
		}
		m.state.BeginPending()
		m.lastTx = msg.tx.Hash
		m.input.Reset()
		m.addLog("info", fmt.Sprintf("Mining... `%s`", msg.tx.Hash.Hex()))
		return m, waitMined(m.ctx, msg.tx)

	case waveMinedMsg:
		m.state.EndPending()
		if msg.err != nil {
			if errors.Is(msg.err, waveportal.ErrReverted) {
				m.addLog("error", fmt.Sprintf("Wave reverted: `%s`", msg.hash.Hex()))
			} else {
				m.addLog("error", fmt.Sprintf("Waiting for `%s` failed: %s", msg.hash.Hex(), msg.err))
			}
			return m, nil
		}
		if msg.receipt != nil {
			m.addLog("success", fmt.Sprintf("Mined -- `%s` (gas used %d)", msg.hash.Hex(), msg.receipt.GasUsed))
		} else {
			m.addLog("success", fmt.Sprintf("Mined -- `%s`", msg.hash.Hex()))
		}
		return m, m.refresh()

	case subscribedMsg:
		if msg.ctx != m.wavesCtx || msg.ctx.Err() != nil {
			if msg.sub != nil {
				msg.sub.Unsubscribe()
			}
			return m, nil
		}
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Listening for new waves failed: %s", msg.err))
			return m, nil
		}
		m.sub = msg.sub
		m.addLog("debug", "Listening for new waves")
		return m, watchSubscription(msg.sub)

	case subscriptionClosedMsg:
		if msg.sub != m.sub {
			return m, nil
		}
		m.sub = nil
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Stopped listening for new waves: %s", msg.err))
		}
		return m, nil

	case newWaveMsg:
		if msg.ctx != m.wavesCtx {
			// Forwarded by a subscription that was since torn down
			return m, nil
		}
		m.state.AppendWave(msg.wave)
		m.addLog("info", fmt.Sprintf("NewWave from `%s`: %s", helpers.ShortenAddr(msg.wave.Address.Hex()), msg.wave.Message))
		return m, waitForWave(m.wavesCtx, m.waveCh)

	case passphraseRequestMsg:
		m.unlockForm = unlock.CreateForm(msg.req.account.Address.Hex())
		m.unlockReply = msg.req.reply
		return m, waitForPassphraseRequest(m.ctx, m.promptCh)

	case clipboardCopiedMsg:
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Copy failed: %s", msg.err))
			return m, nil
		}
		m.copiedMsg = "Copied " + msg.what
		m.addLog("info", "Copied "+msg.what+" to clipboard")
		return m, clearCopied()

	case clearCopiedMsg:
		m.copiedMsg = ""
		return m, nil

	case tea.KeyMsg:
		switch m.activePage {
		case config.PageSettings:
			return m, m.updateSettingsKeys(msg)
		default:
			return m, m.updatePortalKeys(msg)
		}
	}

	// Blink and other internal messages of whichever input is live
	var cmd tea.Cmd
	switch {
	case m.unlockForm != nil:
		cmd = m.updateUnlockForm(msg)
	case m.settingsAdding && m.form != nil:
		cmd = m.updateSettingsForm(msg)
	case m.composing:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *model) updatePortalKeys(msg tea.KeyMsg) tea.Cmd {
	if m.composing {
		switch msg.String() {
		case "enter":
			return m.submit()
		case "esc":
			m.composing = false
			m.input.Blur()
			return nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return cmd
	}

	switch msg.String() {
	case "q", "esc":
		return m.quit()

	case "c":
		return m.connect()

	case "i", "enter", "tab":
		if !m.state.Connected() {
			return nil
		}
		m.composing = true
		return m.input.Focus()

	case "r":
		return m.refresh()

	case "y":
		if m.lastTx != (common.Hash{}) {
			return copyToClipboard("transaction hash", m.lastTx.Hex())
		}
		if m.state.Connected() {
			return copyToClipboard("account", m.state.Account.Hex())
		}

	case "v":
		m.showQR = !m.showQR

	case "s":
		m.activePage = config.PageSettings

	case "l":
		return m.toggleLog()

	case "pgup", "pgdown":
		if m.logEnabled && m.logReady {
			var cmd tea.Cmd
			m.logViewport, cmd = m.logViewport.Update(msg)
			return cmd
		}
	}
	return nil
}

func (m *model) updateSettingsKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		if m.selectedRPCIdx > 0 {
			m.selectedRPCIdx--
		}

	case "down", "j":
		if m.selectedRPCIdx < len(m.rpcURLs)-1 {
			m.selectedRPCIdx++
		}

	case "enter":
		cfg := config.Config{RPCURLs: m.rpcURLs, Logger: m.logEnabled}
		if !cfg.Activate(m.selectedRPCIdx) {
			return nil
		}
		m.rpcURLs = cfg.RPCURLs
		m.saveConfig()
		selected := m.rpcURLs[m.selectedRPCIdx]
		m.addLog("info", fmt.Sprintf("Switching RPC to `%s`", selected.Name))
		return m.switchRPC(selected.URL)

	case "a":
		m.settingsAdding = true
		m.form = settings.CreateAddForm()

	case "d":
		if m.selectedRPCIdx < 0 || m.selectedRPCIdx >= len(m.rpcURLs) {
			return nil
		}
		removed := m.rpcURLs[m.selectedRPCIdx]
		if removed.Active {
			m.addLog("warning", "Activate another endpoint before deleting the active one")
			return nil
		}
		m.rpcURLs = append(m.rpcURLs[:m.selectedRPCIdx], m.rpcURLs[m.selectedRPCIdx+1:]...)
		if m.selectedRPCIdx >= len(m.rpcURLs) {
			m.selectedRPCIdx = helpers.Max(0, len(m.rpcURLs)-1)
		}
		m.saveConfig()
		m.addLog("info", fmt.Sprintf("Deleted RPC endpoint `%s`", removed.Name))

	case "l":
		return m.toggleLog()

	case "esc", "q":
		m.activePage = config.PagePortal
	}
	return nil
}

func (m *model) updateSettingsForm(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		m.settingsAdding = false
		m.form = nil
		return nil
	}

	form, cmd := m.form.Update(msg)
	f, ok := form.(*huh.Form)
	if !ok {
		return cmd
	}
	m.form = f

	switch m.form.State {
	case huh.StateCompleted:
		if settings.TempName != "" && settings.TempURL != "" {
			m.rpcURLs = append(m.rpcURLs, config.RPCUrl{Name: settings.TempName, URL: settings.TempURL})
			m.saveConfig()
			m.addLog("success", fmt.Sprintf("Added RPC endpoint: `%s` (%s)", settings.TempName, settings.TempURL))
		}
		m.settingsAdding = false
		m.form = nil
		return nil
	case huh.StateAborted:
		m.settingsAdding = false
		m.form = nil
		return nil
	}
	return cmd
}

func (m *model) updateUnlockForm(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		m.answerUnlock(passphraseReply{err: wallet.ErrUserRejected})
		return nil
	}

	form, cmd := m.unlockForm.Update(msg)
	f, ok := form.(*huh.Form)
	if !ok {
		return cmd
	}
	m.unlockForm = f

	switch m.unlockForm.State {
	case huh.StateCompleted:
		m.answerUnlock(passphraseReply{passphrase: unlock.TempPassphrase})
		return nil
	case huh.StateAborted:
		m.answerUnlock(passphraseReply{err: wallet.ErrUserRejected})
		return nil
	}
	return cmd
}

// answerUnlock sends the form result to the waiting prompt and closes the form
func (m *model) answerUnlock(reply passphraseReply) {
	if m.unlockReply != nil {
		m.unlockReply <- reply
	}
	unlock.TempPassphrase = ""
	m.unlockReply = nil
	m.unlockForm = nil
}

// -------------------- ACTIONS --------------------

// connect asks the wallet for an account
func (m *model) connect() tea.Cmd {
	if m.state.Connected() || m.connecting {
		return nil
	}
	if m.provider == nil {
		m.addLog("error", "Make sure you have a wallet! No RPC connection yet")
		return nil
	}
	m.connecting = true
	m.addLog("info", "Requesting wallet access")
	return connectWallet(m.ctx, m.provider)
}

// submit sends the composed message
func (m *model) submit() tea.Cmd {
	if !m.state.Connected() || m.state.Pending || m.submitting {
		return nil
	}
	if m.portal == nil {
		m.addLog("error", "Wave portal contract not available: no RPC connection")
		return nil
	}

	message := m.input.Value()
	if err := waveportal.ValidateMessage(message); err != nil {
		m.addLog("warning", err.Error())
		return nil
	}

	m.submitting = true
	m.composing = false
	m.input.Blur()
	m.addLog("info", fmt.Sprintf("Waving from `%s`", helpers.ShortenAddr(m.state.Account.Hex())))
	return submitWave(m.ctx, m.portal, m.state.Account, message)
}

// refresh re-reads the total and the wave list
func (m *model) refresh() tea.Cmd {
	if m.portal == nil || !m.state.Connected() {
		return nil
	}
	return tea.Batch(loadTotal(m.ctx, m.portal), loadWaves(m.ctx, m.portal))
}

// switchRPC drops the current connection and dials url
func (m *model) switchRPC(url string) tea.Cmd {
	m.teardown()
	m.rpcURL = url
	m.rpcConnecting = true
	return connectRPC(url)
}

func (m *model) toggleLog() tea.Cmd {
	m.logEnabled = !m.logEnabled
	m.saveConfig()
	if m.logEnabled && !m.logReady {
		return tea.Batch(initLogViewport(), m.logSpinner.Tick)
	}
	return nil
}

func (m *model) quit() tea.Cmd {
	if m.unlockReply != nil {
		m.answerUnlock(passphraseReply{err: wallet.ErrUserRejected})
	}
	m.teardown()
	m.cancel()
	return tea.Quit
}

func (m *model) saveConfig() {
	if err := config.Save(m.configPath, config.Config{RPCURLs: m.rpcURLs, Logger: m.logEnabled}); err != nil {
		m.addLog("error", fmt.Sprintf("Saving settings failed: %s", err))
	}
}

// addLog adds a log entry with timestamp and type
func (m *model) addLog(logType, message string) {
	if !m.logEnabled || !m.logReady || m.logger == nil {
		return
	}

	switch logType {
	case "info":
		m.logger.Info(message)
	case "success":
		m.logger.Info("✓", "msg", message)
	case "error":
		m.logger.Error(message)
	case "warning":
		m.logger.Warn(message)
	case "debug":
		m.logger.Debug(message)
	default:
		m.logger.Print(message)
	}

	m.updateLogViewport()
}

// updateLogViewport refreshes the viewport content with log output
func (m *model) updateLogViewport() {
	if !m.logReady || m.logBuffer == nil {
		return
	}

	content := m.logBuffer.String()
	if len(content) == m.logLen {
		return
	}
	m.logLen = len(content)
	m.logViewport.SetContent(content)
	m.logViewport.GotoBottom()
}
