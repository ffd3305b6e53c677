package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/devflow/pkg/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).PaddingLeft(6)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	statusStyles = map[models.TaskStatus]lipgloss.Style{
		models.TaskStatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		models.TaskStatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		models.TaskStatusDone:       lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.TaskStatusSnoozed:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

// HumanFormatter formats output for human-readable terminal display.
type HumanFormatter struct{}

// NewHumanFormatter creates a new HumanFormatter.
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// FormatList prints one line per task followed by the summary.
func (f *HumanFormatter) FormatList(result models.ListResult) string {
	var sb strings.Builder

	if len(result.Tasks) == 0 {
		sb.WriteString("No tasks found.\n")
	}
	for _, t := range result.Tasks {
		sb.WriteString(f.formatTaskLine(t))
	}

	sb.WriteString("\n")
	sb.WriteString(f.FormatSummary(result.Summary))
	return sb.String()
}

func (f *HumanFormatter) formatTaskLine(t models.Task) string {
	style, ok := statusStyles[t.Status]
	if !ok {
		style = lipgloss.NewStyle()
	}

	line := fmt.Sprintf("%s %s %s\n",
		style.Render(statusIcon(t.Status)),
		idStyle.Render("["+t.ID+"]"),
		t.Title,
	)

	switch {
	case t.Status == models.TaskStatusSnoozed && t.SnoozedUntil != "":
		line += detailStyle.Render("until "+t.SnoozedUntil) + "\n"
	case t.Status == models.TaskStatusDone && t.CompletedAt != "":
		line += detailStyle.Render("completed "+t.CompletedAt) + "\n"
	}
	if t.Description != "" {
		line += detailStyle.Render(t.Description) + "\n"
	}
	return line
}

func statusIcon(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusPending:
		return "[ ]"
	case models.TaskStatusInProgress:
		return "[*]"
	case models.TaskStatusDone:
		return "[x]"
	case models.TaskStatusSnoozed:
		return "[z]"
	default:
		return "[?]"
	}
}

// FormatSummary prints the per-status counts.
func (f *HumanFormatter) FormatSummary(summary models.Summary) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("Tasks: %d", summary.Total)))
	sb.WriteString("\n")
	for _, s := range models.Statuses() {
		sb.WriteString(fmt.Sprintf("  %-12s %d\n", s, summary.Count(s)))
	}
	return sb.String()
}

// FormatMessage formats a simple message.
func (f *HumanFormatter) FormatMessage(msg string) string {
	return msg + "\n"
}

// FormatError formats an error for display.
func (f *HumanFormatter) FormatError(err error) string {
	return errorStyle.Render("Error: "+err.Error()) + "\n"
}
