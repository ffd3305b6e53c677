package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logoStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	titleStyle        = lipgloss.NewStyle().Bold(true)
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("12")).Bold(true)
	hintStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const logo = `
 ____              _____ _
|  _ \  _____   __|  ___| | _____      __
| | | |/ _ \ \ / /| |_  | |/ _ \ \ /\ / /
| |_| |  __/\ V / |  _| | | (_) \ V  V /
|____/ \___| \_/  |_|   |_|\___/ \_/\_/
`

// Files written by the menu's export entries, relative to the current
// directory.
const (
	ReportFile = "tasks.pdf"
	BackupFile = "tasks.db"
)

// Choice is one menu entry. A choice with Options opens them as a submenu;
// otherwise Args is the command line it runs.
type Choice struct {
	Label       string
	Description string
	Args        []string
	Options     []Choice
}

func exportChoices() []Choice {
	return []Choice{
		{Label: "json", Description: "print the task document as JSON", Args: []string{"export", "--format", "json"}},
		{Label: "yaml", Description: "print the task document as YAML", Args: []string{"export", "--format", "yaml"}},
		{Label: "csv", Description: "print one CSV row per task", Args: []string{"export", "--format", "csv"}},
		{Label: "pdf", Description: "write a report to " + ReportFile, Args: []string{"export", "--format", "pdf", "--out", ReportFile}},
		{Label: "sqlite", Description: "write a backup to " + BackupFile, Args: []string{"export", "--format", "sqlite", "--out", BackupFile}},
	}
}

// MenuModel is the start menu. It shows the top-level choices or, after an
// entry with options is picked, that entry's submenu.
type MenuModel struct {
	top      []Choice
	parent   int // index into top of the open submenu, -1 at top level
	cursor   int
	selected []string
	quitting bool
}

func NewMenuModel() MenuModel {
	return MenuModel{
		top: []Choice{
			{Label: "list", Description: "show tasks in this directory", Args: []string{"list"}},
			{Label: "status", Description: "show task counts", Args: []string{"status"}},
			{Label: "mcp", Description: "run the MCP server on stdio", Args: []string{"mcp"}},
			{Label: "serve", Description: "run the HTTP server", Args: []string{"serve"}},
			{Label: "export", Description: "write a task report (pick a format)", Options: exportChoices()},
		},
		parent: -1,
	}
}

func (m MenuModel) choices() []Choice {
	if m.parent >= 0 {
		return m.top[m.parent].Options
	}
	return m.top
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "esc", "backspace", "left", "h":
		if m.parent < 0 {
			if key.String() != "esc" {
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		}
		m.cursor = m.parent
		m.parent = -1

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.choices())-1 {
			m.cursor++
		}

	case "enter", "right", "l":
		c := m.choices()[m.cursor]
		if len(c.Options) > 0 {
			m.parent = m.cursor
			m.cursor = 0
			return m, nil
		}
		m.selected = c.Args
		return m, tea.Quit
	}

	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(logoStyle.Render(logo))
	s.WriteString("\n\n")

	if m.parent >= 0 {
		s.WriteString(titleStyle.Render(m.top[m.parent].Label + ": choose a format"))
		s.WriteString("\n\n")
	}

	for i, c := range m.choices() {
		line := fmt.Sprintf("%-8s %s", c.Label, hintStyle.Render(c.Description))
		if m.cursor == i {
			s.WriteString(selectedItemStyle.Render("> " + line))
		} else {
			s.WriteString(itemStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}

	if m.parent >= 0 {
		s.WriteString("\n(enter to select, esc to go back, q to quit)\n")
	} else {
		s.WriteString("\n(use arrow keys or j/k to navigate, enter to select, q to quit)\n")
	}
	return s.String()
}

// Selected returns the command line of the chosen entry, or nil if the user
// quit.
func (m MenuModel) Selected() []string {
	return m.selected
}

func RunMenu() ([]string, error) {
	p := tea.NewProgram(NewMenuModel())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	return finalModel.(MenuModel).Selected(), nil
}
