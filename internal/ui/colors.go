package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Spotify green leads so the export screens match the service they talk to.
const (
	brand  = "#1DB954"
	accent = "#B388FF"
	danger = "#FF5F5F"
	amber  = "#FFB454"
	muted  = "#7A7A7A"
)

var styles = newPalette()

// Palette holds the named [lipgloss.Style] values the views render with.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	user  lipgloss.Style
	bot   lipgloss.Style
}

func newPalette() *Palette {
	return &Palette{
		title: bold(brand).MarginBottom(1),
		ok:    bold(brand),
		err:   bold(danger),
		warn:  fg(amber),
		help:  fg(muted).Italic(true),
		user:  bold(accent),
		bot:   bold(brand),
	}
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func bold(color string) lipgloss.Style {
	return fg(color).Bold(true)
}
