package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatsView displays run statistics: elapsed time, finished task count
// and a progress bar.
type StatsView struct {
	done    int
	total   int
	elapsed time.Duration
	width   int
	height  int

	labelStyle    lipgloss.Style
	valueStyle    lipgloss.Style
	progressFull  lipgloss.Style
	progressEmpty lipgloss.Style
}

// NewStatsView creates a new StatsView instance.
func NewStatsView() *StatsView {
	return &StatsView{
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12),

		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),

		progressFull: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		progressEmpty: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Update handles input messages.
func (s *StatsView) Update(msg tea.Msg) (*StatsView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	}
	return s, nil
}

// View renders the stats display.
func (s *StatsView) View() string {
	var b strings.Builder

	b.WriteString(s.renderRow("Duration:", s.valueStyle.Render(formatDuration(s.elapsed))))
	b.WriteString("\n")

	pct := s.Percent()
	tasks := fmt.Sprintf("%d done / %d total", s.done, s.total)
	b.WriteString(s.renderRow("Tasks:", s.valueStyle.Render(tasks)))
	b.WriteString("\n")
	b.WriteString(s.renderProgressBar(pct, 30))
	b.WriteString("\n")

	return b.String()
}

// Percent returns the finished share of tasks, 0 to 100.
func (s *StatsView) Percent() float64 {
	if s.total == 0 {
		return 0
	}
	return float64(s.done) / float64(s.total) * 100
}

// renderRow renders a label-value pair.
func (s *StatsView) renderRow(label, value string) string {
	return s.labelStyle.Render(label) + " " + value
}

// renderProgressBar renders a progress bar.
func (s *StatsView) renderProgressBar(pct float64, width int) string {
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}

	filled := int(pct / 100 * float64(width))
	empty := width - filled

	bar := s.progressFull.Render(strings.Repeat("█", filled)) +
		s.progressEmpty.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("  %s %.0f%%", bar, pct)
}

// SetProgress sets the finished and total task counts and the elapsed time.
func (s *StatsView) SetProgress(done, total int, elapsed time.Duration) {
	s.done = done
	s.total = total
	s.elapsed = elapsed
}

// SetSize sets the view dimensions.
func (s *StatsView) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatDuration is formatDuration for callers outside the package.
func FormatDuration(d time.Duration) string {
	return formatDuration(d)
}
