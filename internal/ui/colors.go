package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cervantesaxel/musicflow/internal/shared"
)

var styles = newPalette(shared.DefaultColor, "#04B575", "#FF0000", "#FFA500")

// palette holds the named [lipgloss.Style] values the views render with.
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
}

func newPalette(title, ok, err, warn string) *palette {
	return &palette{
		title: foreground(title).Bold(true).MarginBottom(1),
		ok:    foreground(ok).Bold(true),
		err:   foreground(err).Bold(true),
		warn:  foreground(warn).Italic(true),
	}
}

func foreground(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// swatch renders a block in the playlist's cover color.
func swatch(color string) string {
	if !shared.IsHexColor(color) {
		color = shared.DefaultColor
	}
	return foreground(color).Render("■")
}
