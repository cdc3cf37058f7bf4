package tui

import (
	"regexp"

	tea "github.com/charmbracelet/bubbletea"
)

// handleFilterKey consumes every key while the filter input is typing.
// Escape abandons the filter, enter keeps it and returns focus to the
// timeline.
func (m *DashboardModel) handleFilterKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		m.stopStream()
		return tea.Quit
	case "escape", "esc":
		m.filterActive = false
		m.filterInput.Blur()
		m.clearFilter()
		return nil
	case "enter":
		m.filterActive = false
		m.filterInput.Blur()
		return nil
	default:
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilterInput()
		return cmd
	}
}

// applyFilterInput recompiles the filter from the input box and
// reprojects the timeline. Invalid patterns keep the last good regex
// until the input compiles again.
func (m *DashboardModel) applyFilterInput() {
	value := m.filterInput.Value()
	if value == "" {
		if m.filterRegex == nil {
			return
		}
		m.filterRegex = nil
		m.filterDirty = true
		m.rebuild()
		return
	}
	regex, err := regexp.Compile(value)
	if err != nil {
		return
	}
	if m.filterRegex != nil && m.filterRegex.String() == regex.String() {
		return
	}
	m.filterRegex = regex
	m.filterDirty = true
	m.rebuild()
}
