package log

import (
	"fmt"

	"wave-portal-tui/helpers"
	"wave-portal-tui/styles"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// reservedHeight covers header, nav, panel title and borders.
const reservedHeight = 10

// PanelHeight returns how many log lines fit on a screen of the given height.
func PanelHeight(height int) int {
	available := helpers.Max(5, height-reservedHeight)
	return helpers.Min(available, helpers.Min(height/3, 15))
}

// Render renders the log panel below the portal
func Render(width, height int, ready bool, spinnerView string, vp viewport.Model) string {
	title := styles.TitleStyle.Render("Log")

	panelHeight := PanelHeight(height)
	vp.Height = panelHeight

	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.CBorder).
		Padding(0, 1).
		Width(helpers.Max(0, width-2)).
		Height(panelHeight + 2)

	if !ready {
		return border.Render(title + "\n\n" + "initializing...\n" + spinnerView)
	}

	if vp.TotalLineCount() > vp.Height {
		title += styles.MutedStyle.Render(fmt.Sprintf(" [%d%%]", int(vp.ScrollPercent()*100)))
	}

	return border.Render(title + "\n\n" + vp.View())
}
