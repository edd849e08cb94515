package main

import (
	"strings"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	"wave-portal-tui/styles"
	logview "wave-portal-tui/views/log"
	"wave-portal-tui/views/portal"
	"wave-portal-tui/views/settings"
	"wave-portal-tui/views/tx"
	"wave-portal-tui/views/unlock"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- VIEW --------------------

func (m *model) globalHeader() string {
	availableWidth := helpers.Max(0, m.w-8) // Account for panel padding

	var addrDisplay string
	if m.state.Connected() {
		addrDisplay = lipgloss.NewStyle().
			Foreground(cAccent2).
			Bold(true).
			Render("Account: " + helpers.FadeString(helpers.ShortenAddr(m.state.Account.Hex()), styles.CFadeFrom, styles.CFadeTo))
	} else {
		addrDisplay = lipgloss.NewStyle().
			Foreground(cMuted).
			Render("Account: not connected")
	}

	var statusIcon, statusText string
	statusColor := lipgloss.Color("#c01c28")
	switch {
	case m.rpcURL == "":
		statusIcon, statusText = "○", "No RPC"
	case m.rpcConnecting:
		statusIcon, statusText = "○", "Connecting..."
	case !m.rpcConnected:
		statusIcon, statusText = "○", "Connection Failed"
	default:
		statusIcon, statusColor = "●", cAccent
		for _, r := range m.rpcURLs {
			if r.Active && r.URL == m.rpcURL {
				statusText = r.Name
				break
			}
		}
		if statusText == "" {
			statusText = "Connected"
		}
		if m.sub != nil {
			if m.ethClient.SupportsSubscriptions() {
				statusText += " · live"
			} else {
				statusText += " · polling"
			}
		}
	}

	rpcDisplay := lipgloss.NewStyle().
		Foreground(statusColor).
		Bold(true).
		Render(statusIcon + " " + statusText)

	titleText := lipgloss.NewStyle().Bold(true).Render(helpers.FadeString("wave portal", "#7EE787", "#82CFFD"))

	addrWidth := lipgloss.Width(addrDisplay)
	rpcWidth := lipgloss.Width(rpcDisplay)
	titleWidth := lipgloss.Width(titleText)
	totalOtherWidth := addrWidth + rpcWidth + titleWidth

	var headerLine string
	if totalOtherWidth+4 > availableWidth {
		// Not enough space, stack vertically
		headerLine = addrDisplay + "\n" + titleText + "\n" + rpcDisplay
	} else {
		remainingSpace := availableWidth - totalOtherWidth
		leftPadding := remainingSpace / 2
		rightPadding := remainingSpace - leftPadding

		headerLine = addrDisplay +
			strings.Repeat(" ", helpers.Max(1, leftPadding)) +
			titleText +
			strings.Repeat(" ", helpers.Max(1, rightPadding)) +
			rpcDisplay
	}

	separator := lipgloss.NewStyle().
		Foreground(cBorder).
		Render(strings.Repeat("─", availableWidth))

	return headerLine + "\n" + separator
}

func (m *model) View() string {
	headerPanel := panelStyle.Width(helpers.Max(0, m.w-2)).Render(m.globalHeader())

	var pageContent, nav string

	switch {
	case m.unlockForm != nil:
		pageContent = unlock.Render(m.unlockForm)
		nav = unlock.Nav(m.w - 2)

	case m.activePage == config.PageSettings:
		settingsContent := settings.Render(m.rpcURLs, m.selectedRPCIdx)
		if m.settingsAdding && m.form != nil {
			settingsContent = titleStyle.Render("RPC Settings") + "\n\n" + m.form.View()
		}
		pageContent = panelStyle.Width(helpers.Max(0, m.w-2)).Render(settingsContent)
		nav = settings.Nav(m.w-2, m.settingsAdding)

	default:
		txPanel := tx.Render(m.lastTxHex(), m.env.ExplorerURL, m.state.Pending, m.showQR, m.copiedMsg)
		sideBySide := txPanel != "" && m.w >= 110

		contentWidth := helpers.Max(0, m.w-2)
		if sideBySide {
			contentWidth = helpers.Max(0, (m.w*6)/10-2)
		}

		portalContent := portal.Render(m.state, m.input, m.spin.View(), contentWidth)
		if m.connecting {
			portalContent += "\n\n" + m.spin.View() + " Waiting for the wallet..."
		}
		if m.submitting {
			portalContent += "\n\n" + m.spin.View() + " Waiting for the wallet to sign..."
		}
		if txPanel != "" && !sideBySide {
			portalContent += "\n\n" + txPanel
		}

		pageContent = panelStyle.Width(contentWidth).Render(portalContent)
		if sideBySide {
			pageContent = lipgloss.JoinHorizontal(lipgloss.Top, pageContent, txPanel)
		}
		nav = portal.Nav(m.w-2, m.state, m.composing)
	}

	sections := []string{headerPanel, pageContent, nav}
	if m.logEnabled {
		sections = append(sections, logview.Render(m.w, m.h, m.logReady, m.logSpinner.View(), m.logViewport))
	}

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// lastTxHex is the last submitted hash, empty before the first wave
func (m *model) lastTxHex() string {
	if m.lastTx == (common.Hash{}) {
		return ""
	}
	return m.lastTx.Hex()
}
