package portal

import (
	"strings"

	"wave-portal-tui/helpers"
	"wave-portal-tui/styles"
	"wave-portal-tui/waveportal"

	"github.com/charmbracelet/lipgloss"
)

// RenderWaves lists every wave in insertion order.
func RenderWaves(waves []waveportal.Wave, width int) string {
	if len(waves) == 0 {
		return styles.MutedStyle.Render("No waves yet.")
	}

	cardWidth := helpers.Max(20, width-8)
	items := make([]string, 0, len(waves))
	for _, w := range waves {
		items = append(items, RenderWave(w, cardWidth))
	}
	return strings.Join(items, "\n")
}

// RenderWave draws one wave: address, time, message.
func RenderWave(w waveportal.Wave, width int) string {
	addr := lipgloss.NewStyle().Foreground(styles.CAccent2).Render("Address: " + w.Address.Hex())
	ts := styles.MutedStyle.Render("Time: " + helpers.FormatWaveTime(w.Timestamp))
	msg := lipgloss.NewStyle().Foreground(styles.CText).Render("Message: " + w.Message)

	return styles.WaveCardStyle.Width(width).Render(strings.Join([]string{addr, ts, msg}, "\n"))
}
