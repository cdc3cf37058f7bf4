package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/charmbracelet/lipgloss"
)

// The sidebar lists task scopes: row 0 is the all-tasks view, the rest
// follow the server's volume ordering. Selecting a row rescopes every
// query and reseeds the chart on that task's lifecycle.

func (m *DashboardModel) sidebarRowCount() int {
	return len(m.taskStats) + 1
}

func (m *DashboardModel) sidebarVisibleRows() int {
	rows := m.height - 4 // border, title, divider
	if rows < 1 {
		rows = 1
	}
	return rows
}

// sidebarScrollOffset keeps the cursor row on screen. Render and mouse
// mapping both use it, so clicks always land on the drawn row.
func (m *DashboardModel) sidebarScrollOffset() int {
	visible := m.sidebarVisibleRows()
	total := m.sidebarRowCount()
	if total <= visible {
		return 0
	}
	off := m.sidebarCursor - visible + 1
	if off < 0 {
		off = 0
	}
	if off > total-visible {
		off = total - visible
	}
	return off
}

func (m *DashboardModel) moveSidebarCursor(delta int) {
	m.sidebarCursor += delta
	m.clampTaskCursor()
}

func (m *DashboardModel) clampTaskCursor() {
	if m.sidebarCursor >= m.sidebarRowCount() {
		m.sidebarCursor = m.sidebarRowCount() - 1
	}
	if m.sidebarCursor < 0 {
		m.sidebarCursor = 0
	}
}

// sidebarIndexAt maps a screen y to a sidebar row index.
func (m *DashboardModel) sidebarIndexAt(y int) (int, bool) {
	if y < 3 {
		return 0, false
	}
	idx := y - 3 + m.sidebarScrollOffset()
	if idx >= m.sidebarRowCount() {
		return 0, false
	}
	return idx, true
}

// selectSidebarEntry applies the cursor row as the task scope.
func (m *DashboardModel) selectSidebarEntry() tea.Cmd {
	task := ""
	if m.sidebarCursor > 0 && m.sidebarCursor-1 < len(m.taskStats) {
		task = m.taskStats[m.sidebarCursor-1].Task
	}
	if !m.selectTask(task) {
		return nil
	}
	return m.refetchCmd()
}

func (m *DashboardModel) renderTaskSidebar(height int) string {
	innerW := sidebarWidth - 2
	innerH := height - 2

	lines := []string{
		chartTitleStyle.Render("Tasks"),
		separatorStyle.Render(strings.Repeat("─", innerW)),
	}

	off := m.sidebarScrollOffset()
	visible := m.sidebarVisibleRows()
	for i := off; i < m.sidebarRowCount() && i < off+visible; i++ {
		lines = append(lines, m.renderTaskRow(i, innerW))
	}
	for len(lines) < innerH {
		lines = append(lines, "")
	}
	if len(lines) > innerH {
		lines = lines[:innerH]
	}

	borderColor := ColorGray
	if m.activeSection == SectionSidebar {
		borderColor = ColorBlue
	}
	return lipgloss.NewStyle().
		Width(innerW).
		Height(innerH).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Render(strings.Join(lines, "\n"))
}

func (m *DashboardModel) renderTaskRow(idx, width int) string {
	var name string
	var count, errors int64
	if idx == 0 {
		name = "All tasks"
		for _, s := range m.taskStats {
			count += s.Count
			errors += s.Errors
		}
	} else {
		s := m.taskStats[idx-1]
		name, count, errors = s.Task, s.Count, s.Errors
	}

	marker := "  "
	if idx == m.sidebarCursor && m.activeSection == SectionSidebar {
		marker = lipgloss.NewStyle().Foreground(ColorBlue).Render("❯") + " "
	}

	countText := fmt.Sprintf("%d", count)
	nameW := width - 2 - len(countText) - 1
	if nameW < 4 {
		nameW = 4
	}
	name = padOrTruncate(name, nameW)

	scoped := (idx == 0 && m.selectedTask == "") ||
		(idx > 0 && m.taskStats[idx-1].Task == m.selectedTask)
	if scoped {
		name = lipgloss.NewStyle().Foreground(ColorBlue).Bold(true).Render(name)
	}

	countStyle := helpStyle
	if errors > 0 {
		countStyle = lipgloss.NewStyle().Foreground(ColorRed)
	}
	return marker + name + " " + countStyle.Render(countText)
}
