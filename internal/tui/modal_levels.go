package tui

import (
	"fmt"
	"strings"

	"github.com/tasklight/tasklight/internal/logparse"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// filterableLevels lists the severities the level filter can toggle,
// most severe first.
func filterableLevels() []string {
	known := logparse.KnownLevels
	levels := make([]string, len(known))
	for i, level := range known {
		levels[len(known)-1-i] = level
	}
	return levels
}

// levelFilterModal toggles which severities the range query includes.
// Edits stay local until Enter commits them; Escape discards.
type levelFilterModal struct {
	dashboard *DashboardModel
	selected  int
	pending   map[string]bool
}

func newLevelFilterModal(m *DashboardModel) *levelFilterModal {
	levels := filterableLevels()
	pending := make(map[string]bool, len(levels))
	for _, level := range levels {
		pending[level] = m.levelFilter == nil || m.levelFilter[level]
	}
	return &levelFilterModal{
		dashboard: m,
		pending:   pending,
	}
}

func (s *levelFilterModal) ID() string { return "levelfilter" }

func (s *levelFilterModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		levels := filterableLevels()
		// Rows 0 and 1 are Select All/None, row 2 is the separator.
		totalItems := len(levels) + 3

		switch msg.String() {
		case "ctrl+c":
			return false, tea.Quit
		case "up", "k":
			if s.selected > 0 {
				s.selected--
				if s.selected == 2 {
					s.selected = 1
				}
			}
			return false, nil
		case "down", "j":
			if s.selected < totalItems-1 {
				s.selected++
				if s.selected == 2 {
					s.selected = 3
				}
			}
			return false, nil
		case " ":
			s.toggle(levels)
			return false, nil
		case "enter":
			if s.enabledCount() == 0 {
				return false, nil
			}
			return true, s.commit(levels)
		case "escape", "esc":
			return true, nil
		}
		return false, nil

	case tea.MouseMsg:
		return false, nil // keyboard only
	}
	return false, nil
}

func (s *levelFilterModal) toggle(levels []string) {
	switch {
	case s.selected == 0:
		for _, level := range levels {
			s.pending[level] = true
		}
	case s.selected == 1:
		for _, level := range levels {
			s.pending[level] = false
		}
	case s.selected >= 3:
		if idx := s.selected - 3; idx < len(levels) {
			s.pending[levels[idx]] = !s.pending[levels[idx]]
		}
	}
}

func (s *levelFilterModal) enabledCount() int {
	n := 0
	for _, enabled := range s.pending {
		if enabled {
			n++
		}
	}
	return n
}

// commit applies the pending toggles and refetches when they changed
// the effective filter.
func (s *levelFilterModal) commit(levels []string) tea.Cmd {
	m := s.dashboard
	changed := false
	for _, level := range levels {
		was := m.levelFilter == nil || m.levelFilter[level]
		if s.pending[level] != was {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	if s.enabledCount() == len(levels) {
		m.levelFilter = nil
	} else {
		m.levelFilter = s.pending
	}
	return m.refetchCmd()
}

func (s *levelFilterModal) View(width, height int) string {
	levels := filterableLevels()

	cursorFor := func(idx int) string {
		if s.selected == idx {
			return "❯ "
		}
		return "  "
	}

	actionStyle := lipgloss.NewStyle().Foreground(ColorWhite)

	var rows []string
	rows = append(rows, cursorFor(0)+actionStyle.Render("Select All"))
	rows = append(rows, cursorFor(1)+actionStyle.Render("Select None"))
	rows = append(rows, "  "+separatorStyle.Render(strings.Repeat("─", 20)))
	for i, level := range levels {
		mark := "[ ]"
		if s.pending[level] {
			mark = "[x]"
		}
		name := lipgloss.NewStyle().Foreground(getSeverityColor(level)).Render(level)
		rows = append(rows, fmt.Sprintf("%s%s %s", cursorFor(3+i), mark, name))
	}

	frameW := 48
	if frameW > width-4 {
		frameW = width - 4
	}
	innerW := frameW - 4

	pane := lipgloss.NewStyle().
		Width(innerW).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorGray).
		Render(strings.Join(rows, "\n"))

	header := lipgloss.NewStyle().
		Width(innerW).
		Foreground(ColorBlue).
		Bold(true).
		Render("Severity Filter")

	hint := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render("Space: Toggle | Enter: Apply | ESC: Cancel")

	frame := lipgloss.NewStyle().
		Width(frameW).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, pane, hint))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, frame)
}
