package portal

import (
	"strings"

	"wave-portal-tui/board"
	"wave-portal-tui/helpers"
	"wave-portal-tui/styles"
	"wave-portal-tui/waveportal"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

// Nav returns the navigation bar for the portal view
func Nav(width int, s board.State, composing bool) string {
	var keys []string
	switch {
	case !s.Connected():
		keys = []string{
			styles.Key("c") + " connect wallet",
		}
	case composing:
		keys = []string{
			styles.Key("Enter") + " wave",
			styles.Key("Esc") + " stop typing",
		}
	default:
		keys = []string{
			styles.Key("i") + " write",
			styles.Key("r") + " refresh",
			styles.Key("y") + " copy tx",
		}
	}
	if !composing {
		keys = append(keys,
			styles.Key("s")+" settings",
			styles.Key("l")+" debug log",
			styles.Key("q")+" quit",
		)
	}

	return styles.NavStyle.Width(width).Render(strings.Join(keys, "   "))
}

// Render draws the portal from the board state. The input is only shown
// once an account is connected.
func Render(s board.State, in textinput.Model, spinnerView string, width int) string {
	lines := []string{
		styles.TitleStyle.Render("👋 Hey there!"),
		styles.MutedStyle.Render("Connect your wallet, write a message and wave at me."),
		"",
	}

	if !s.Connected() {
		lines = append(lines, RenderConnect())
		return strings.Join(lines, "\n")
	}

	lines = append(lines, RenderCompose(in), "", RenderStatus(s, spinnerView), "", RenderWaves(s.Waves, width))
	return strings.Join(lines, "\n")
}

// RenderConnect is the connect affordance shown without an account.
func RenderConnect() string {
	return styles.ButtonStyle.Render("Connect Wallet") + "  " +
		styles.MutedStyle.Render("press ") + styles.Key("c")
}

// RenderCompose shows the message input, its counter and the submit button.
func RenderCompose(in textinput.Model) string {
	counter := helpers.CharCounter(in.Value(), waveportal.MaxMessageLength)
	counterStyle := styles.MutedStyle
	if len([]rune(in.Value())) >= waveportal.MaxMessageLength {
		counterStyle = styles.WarnStyle
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		in.View(),
		counterStyle.Render(counter),
		"",
		styles.ButtonStyle.Render("Wave at Me"),
	)
}

// RenderStatus shows the mining spinner while a wave is pending, the
// total otherwise.
func RenderStatus(s board.State, spinnerView string) string {
	if s.Pending {
		return spinnerView + " " + styles.WarnStyle.Render("Mining...")
	}
	return styles.TitleStyle.Render("Total waves " + s.TotalString())
}
