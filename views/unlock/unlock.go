package unlock

import (
	"strings"

	"wave-portal-tui/helpers"
	"wave-portal-tui/styles"

	"github.com/charmbracelet/huh"
)

// TempPassphrase stores the passphrase typed into the unlock form
var TempPassphrase string

// CreateForm creates the keystore unlock form for account
func CreateForm(account string) *huh.Form {
	TempPassphrase = ""

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Unlock "+helpers.ShortenAddr(account)).
				Description("Approve the connection with the keystore passphrase").
				EchoMode(huh.EchoModePassword).
				Value(&TempPassphrase),
		),
	).WithTheme(huh.ThemeCatppuccin())

	form.Init()
	return form
}

// Render renders the unlock form
func Render(form *huh.Form) string {
	if form != nil {
		return styles.PanelStyle.Render(form.View())
	}
	return ""
}

// Nav returns the navigation bar while the unlock form is open
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("Enter") + " approve",
		styles.Key("Esc") + " reject",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}
