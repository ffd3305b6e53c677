package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func press(m MenuModel, keys ...tea.KeyMsg) (MenuModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var model tea.Model
		model, cmd = m.Update(k)
		m = model.(MenuModel)
	}
	return m, cmd
}

var (
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMenuModel(t *testing.T) {
	m := NewMenuModel()

	if m.cursor != 0 {
		t.Errorf("expected cursor 0, got %d", m.cursor)
	}

	m, _ = press(m, runes("j"))
	if m.cursor != 1 {
		t.Errorf("expected cursor 1 after 'j', got %d", m.cursor)
	}

	m, _ = press(m, runes("k"))
	if m.cursor != 0 {
		t.Errorf("expected cursor 0 after 'k', got %d", m.cursor)
	}

	m, cmd := press(m, keyEnter)
	if got := strings.Join(m.Selected(), " "); got != "list" {
		t.Errorf("expected selection 'list', got %q", got)
	}
	if cmd == nil {
		t.Error("expected quit command after enter")
	}

	m, _ = press(m, runes("q"))
	if !m.quitting {
		t.Error("expected quitting true after 'q'")
	}
	if m.View() != "" {
		t.Error("expected empty view after quitting")
	}
}

func TestMenuCursorBounds(t *testing.T) {
	m, _ := press(NewMenuModel(), keyUp)
	if m.cursor != 0 {
		t.Errorf("expected cursor to stay at 0, got %d", m.cursor)
	}

	for i := 0; i < len(m.top)+3; i++ {
		m, _ = press(m, keyDown)
	}
	if m.cursor != len(m.top)-1 {
		t.Errorf("expected cursor at last choice, got %d", m.cursor)
	}
}

func TestMenuExportAsksForFormat(t *testing.T) {
	m := NewMenuModel()
	for i := 0; i < len(m.top); i++ {
		m, _ = press(m, keyDown)
	}

	m, cmd := press(m, keyEnter)
	if cmd != nil || m.Selected() != nil {
		t.Fatalf("expected export to open a submenu, got selection %v", m.Selected())
	}
	view := m.View()
	for _, want := range []string{"choose a format", "yaml", "csv", ReportFile, BackupFile} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in export submenu", want)
		}
	}

	m, cmd = press(m, keyDown, keyEnter)
	if got := strings.Join(m.Selected(), " "); got != "export --format yaml" {
		t.Errorf("expected yaml export, got %q", got)
	}
	if cmd == nil {
		t.Error("expected quit command after choosing a format")
	}
}

func TestMenuExportWritesFiles(t *testing.T) {
	m := NewMenuModel()
	m, _ = press(m, keyDown, keyDown, keyDown, keyDown, keyEnter)
	m, _ = press(m, keyDown, keyDown, keyDown, keyEnter)

	if got := strings.Join(m.Selected(), " "); got != "export --format pdf --out "+ReportFile {
		t.Errorf("expected pdf export to a file, got %q", got)
	}
}

func TestMenuEscGoesBack(t *testing.T) {
	m := NewMenuModel()
	last := len(m.top) - 1
	for i := 0; i < last; i++ {
		m, _ = press(m, keyDown)
	}
	m, _ = press(m, keyEnter, keyDown)

	m, cmd := press(m, keyEsc)
	if m.quitting || cmd != nil {
		t.Fatal("expected esc in a submenu to go back, not quit")
	}
	if m.parent != -1 || m.cursor != last {
		t.Errorf("expected cursor back on export, got parent=%d cursor=%d", m.parent, m.cursor)
	}
	if strings.Contains(m.View(), "choose a format") {
		t.Error("expected the top-level menu after going back")
	}

	m, _ = press(m, keyEsc)
	if !m.quitting {
		t.Error("expected esc at the top level to quit")
	}
}

func TestMenuChoices(t *testing.T) {
	view := NewMenuModel().View()
	for _, want := range []string{"mcp", "serve", "list", "status", "export"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in menu view", want)
		}
	}
}
