package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/velveeva/internal/build"
)

var (
	planTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238"))
	planIndexStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(9)
	planKindStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Width(10)
	planTaskStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true).Width(14)
	planMsgStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// kindMarker returns the gutter marker and label for a stage kind.
func kindMarker(k build.StageKind) (string, string) {
	switch k {
	case build.StageParallel:
		return "╪", "parallel"
	case build.StageChainLink:
		return "│", "then"
	default:
		return "┌", "start"
	}
}

// RenderPlan draws plan as one block per stage. messages supplies task
// display messages and may be nil.
func RenderPlan(plan *build.Plan, messages map[build.TaskID]string) string {
	var b strings.Builder

	requested := make([]string, len(plan.Requested))
	for i, id := range plan.Requested {
		requested[i] = string(id)
	}
	title := fmt.Sprintf("Plan: %d tasks in %d stages", len(plan.Tasks()), plan.Len())
	b.WriteString(planTitleStyle.Render(title))
	b.WriteString("\n")
	if len(requested) > 0 {
		b.WriteString(planMsgStyle.Render("requested: " + strings.Join(requested, ", ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, stage := range plan.Stages {
		marker, label := kindMarker(stage.Kind)
		for i, id := range stage.Tasks {
			index, kind := "", ""
			if i == 0 {
				index = fmt.Sprintf("%s %d", marker, stage.Index)
				kind = label
			} else {
				index = "╪"
			}
			row := lipgloss.JoinHorizontal(lipgloss.Top,
				planIndexStyle.Render(index),
				planKindStyle.Render(kind),
				planTaskStyle.Render(string(id)),
				planMsgStyle.Render(messages[id]),
			)
			b.WriteString(strings.TrimRight(row, " "))
			b.WriteString("\n")
		}
	}

	return b.String()
}
