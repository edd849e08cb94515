package tx

import (
	"strings"

	"wave-portal-tui/helpers"
	"wave-portal-tui/rpc"
	"wave-portal-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Render draws the last submitted transaction with a QR code of its explorer
// link. An empty hash renders nothing.
func Render(hash, explorer string, pending, showQR bool, copiedMsg string) string {
	if hash == "" {
		return ""
	}

	status := lipgloss.NewStyle().Foreground(styles.CAccent).Render("mined")
	if pending {
		status = styles.WarnStyle.Render("pending")
	}

	link := rpc.ExplorerTxURL(explorer, hash)
	lines := []string{
		styles.TitleStyle.Render("Last wave") + "  " + status,
		styles.MutedStyle.Render("tx ") + helpers.ShortenAddr(hash),
	}
	if link != "" {
		lines = append(lines, styles.MutedStyle.Render(link))
	}
	if copiedMsg != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(styles.CAccent).Render(copiedMsg))
	}
	if showQR && link != "" {
		lines = append(lines, "", rpc.GenerateQRCode(link))
	}

	return styles.PanelStyle.Render(strings.Join(lines, "\n"))
}
