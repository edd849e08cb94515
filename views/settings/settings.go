package settings

import (
	"strings"

	"wave-portal-tui/config"
	"wave-portal-tui/styles"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Form values for the add endpoint form
var (
	TempName string
	TempURL  string
)

// Nav returns the navigation bar for settings view
func Nav(width int, adding bool) string {
	var left string
	if adding {
		left = strings.Join([]string{
			styles.Key("Enter") + " next",
			styles.Key("Esc") + " cancel",
		}, "   ")
	} else {
		left = strings.Join([]string{
			styles.Key("↑/↓") + " select",
			styles.Key("Enter") + " activate",
			styles.Key("a") + " add",
			styles.Key("d") + " delete",
			styles.Key("l") + " debug log",
			styles.Key("Esc") + " back",
		}, "   ")
	}

	return styles.NavStyle.Width(width).Render(left)
}

// CreateAddForm creates the form for a new RPC endpoint
func CreateAddForm() *huh.Form {
	TempName = ""
	TempURL = ""

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("RPC Name").
				Description("A friendly name for this RPC endpoint").
				Value(&TempName).
				Placeholder("Local node"),

			huh.NewInput().
				Title("RPC URL").
				Description("http(s):// or ws(s):// for live waves").
				Value(&TempURL).
				Placeholder("wss://rinkeby.infura.io/ws/v3/..."),
		),
	).WithTheme(huh.ThemeCatppuccin())

	form.Init()
	return form
}

// Render renders the RPC settings view
func Render(rpcURLs []config.RPCUrl, selectedIdx int) string {
	h := styles.TitleStyle.Render("RPC Settings")
	muted := lipgloss.NewStyle().Foreground(styles.CMuted)

	lines := []string{h, ""}

	if len(rpcURLs) == 0 {
		lines = append(lines, muted.Render("No RPC URLs configured."))
		lines = append(lines, "")
		lines = append(lines, muted.Render("Press ")+styles.Key("a")+muted.Render(" to add your first RPC URL."))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, muted.Render("Configured RPC Endpoints:"), "")
	for i, rpc := range rpcURLs {
		marker := muted.Render("○ ")
		if rpc.Active {
			marker = lipgloss.NewStyle().Foreground(styles.CAccent).Render("● ")
		}

		nameStyle := lipgloss.NewStyle().Foreground(styles.CText)
		urlStyle := muted
		if i == selectedIdx {
			nameStyle = nameStyle.Background(styles.CPanel).Foreground(styles.CAccent2).Bold(true)
			urlStyle = urlStyle.Background(styles.CPanel)
			marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Render("▶ ")
		}

		lines = append(lines, marker+nameStyle.Render(rpc.Name))
		lines = append(lines, "  "+urlStyle.Render(rpc.URL))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
