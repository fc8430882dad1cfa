package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// logo is the velveeva banner.
var logo = []string{
	` _   ________ _   ___________   _____ `,
	`| | / / __/ /| | / / __/ __| | / / _ |`,
	`| |/ / _// /_| |/ / _// _/ | |/ / __ |`,
	`|___/___/____|___/___/___/ |___/_/ |_|`,
}

// Header renders the velveeva logo and a subtitle.
type Header struct {
	width    int
	subtitle string
}

// NewHeader creates a new Header.
func NewHeader(subtitle string) *Header {
	return &Header{
		width:    80,
		subtitle: subtitle,
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// View renders the header.
func (h *Header) View() string {
	colors := []string{"#FF6B6B", "#FF8E53", "#FFC857", "#4ECDC4"}

	var styledLines []string
	for i, line := range logo {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(colors[i%len(colors)])).Bold(true)
		styledLines = append(styledLines, style.Render(line))
	}
	block := lipgloss.JoinVertical(lipgloss.Left, styledLines...)

	if h.subtitle != "" {
		sub := lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true).
			Render("~~ " + h.subtitle + " ~~")
		block = lipgloss.JoinVertical(lipgloss.Center, block, sub)
	}

	return lipgloss.NewStyle().
		Width(h.width).
		PaddingBottom(1).
		Render(block)
}

// Height returns the header height in lines.
func (h *Header) Height() int {
	n := len(logo) + 1 // padding
	if h.subtitle != "" {
		n++
	}
	return n
}
