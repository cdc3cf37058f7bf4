package tui

import (
	"strings"

	"github.com/tasklight/tasklight/internal/selection"
	"github.com/tasklight/tasklight/internal/timerange"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyPress routes one key press. Modals see keys first, then the
// filter input while it is typing, then the global bindings.
func (m *DashboardModel) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	if modal := m.TopModal(); modal != nil {
		pop, cmd := modal.Update(msg)
		if pop {
			m.PopModal()
		}
		return cmd
	}

	if m.filterActive {
		return m.handleFilterKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stopStream()
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.PushModal(newHelpModal(m))

	case key.Matches(msg, m.keys.Escape):
		m.handleEscape()

	case key.Matches(msg, m.keys.Enter):
		return m.handleEnter()

	case key.Matches(msg, m.keys.NextSection):
		m.nextSection()

	case key.Matches(msg, m.keys.PrevSection):
		m.prevSection()

	case key.Matches(msg, m.keys.Filter):
		m.openFilter()

	case key.Matches(msg, m.keys.LevelFilter):
		m.PushModal(newLevelFilterModal(m))

	case key.Matches(msg, m.keys.Patterns):
		m.PushModal(newPatternsModal(m))

	case key.Matches(msg, m.keys.Sidebar):
		m.showSidebar = !m.showSidebar
		if !m.showSidebar && m.activeSection == SectionSidebar {
			m.activeSection = SectionTimeline
		}

	case key.Matches(msg, m.keys.Refresh):
		return m.refetchCmd()

	case key.Matches(msg, m.keys.Copy):
		return m.copySelectionCmd()

	case key.Matches(msg, m.keys.Follow):
		m.jumpLatest()

	case key.Matches(msg, m.keys.PanLeft):
		m.ranges.Pan(-0.5)
		return m.commitRangeChange()

	case key.Matches(msg, m.keys.PanRight):
		m.ranges.Pan(0.5)
		return m.commitRangeChange()

	case key.Matches(msg, m.keys.ZoomIn):
		m.ranges.Zoom(0.5)
		return m.commitRangeChange()

	case key.Matches(msg, m.keys.ZoomOut):
		m.ranges.Zoom(2)
		return m.commitRangeChange()

	case key.Matches(msg, m.keys.Preset15m):
		m.ranges.ApplyPreset(timerange.PresetLast15m)
		return m.commitRangeChange()

	case key.Matches(msg, m.keys.Preset1h):
		m.ranges.ApplyPreset(timerange.PresetLast1h)
		return m.commitRangeChange()

	case key.Matches(msg, m.keys.Preset6h):
		m.ranges.ApplyPreset(timerange.PresetLast6h)
		return m.commitRangeChange()

	case key.Matches(msg, m.keys.Preset24h):
		m.ranges.ApplyPreset(timerange.PresetLast24h)
		return m.commitRangeChange()

	case key.Matches(msg, m.keys.PresetAll):
		m.ranges.ApplyPreset(timerange.PresetAll)
		return m.commitRangeChange()

	case key.Matches(msg, m.keys.Up):
		return m.navigate(-1)

	case key.Matches(msg, m.keys.Down):
		return m.navigate(1)

	case key.Matches(msg, m.keys.PageUp):
		m.scrollPage(-1)

	case key.Matches(msg, m.keys.PageDown):
		m.scrollPage(1)

	case key.Matches(msg, m.keys.Home):
		m.jumpOldest()

	case key.Matches(msg, m.keys.End):
		m.jumpLatest()
	}

	return nil
}

// commitRangeChange turns a committed range change into a refetch,
// using the machine's dirty flag so no-op commits stay cheap.
func (m *DashboardModel) commitRangeChange() tea.Cmd {
	if m.ranges.TakeDirty() {
		return m.refetchCmd()
	}
	return nil
}

// handleEnter commits a pending range edit when one is staged,
// otherwise acts on the focused section.
func (m *DashboardModel) handleEnter() tea.Cmd {
	if m.ranges.State() == timerange.StateEditing {
		m.gesture.Reset()
		if m.ranges.Apply() {
			return m.commitRangeChange()
		}
		return nil
	}

	switch m.activeSection {
	case SectionSidebar:
		return m.selectSidebarEntry()
	case SectionTimeline:
		if m.cursor >= 0 && m.cursor < len(m.visible) {
			m.PushModal(newDetailsModal(m, m.visible[m.cursor]))
		}
	}
	return nil
}

// handleEscape unwinds one layer of transient state per press: range
// edit, then selection, then text filter, then the reading cursor.
func (m *DashboardModel) handleEscape() {
	if m.gesture.Dragging() || m.ranges.State() == timerange.StateEditing {
		m.gesture.Reset()
		m.ranges.Cancel()
		return
	}
	if _, ok := m.sel.Current(m.viewGen); ok {
		m.sel.Clear()
		return
	}
	if m.filterRegex != nil || m.filterInput.Value() != "" {
		m.clearFilter()
		return
	}
	m.cursor = -1
}

func (m *DashboardModel) openFilter() {
	m.filterActive = true
	m.filterInput.Focus()
}

func (m *DashboardModel) clearFilter() {
	m.filterInput.SetValue("")
	m.filterRegex = nil
	m.filterDirty = true
	m.rebuild()
}

// copySelectionCmd serializes the selected rows and writes them to the
// clipboard off the update loop.
func (m *DashboardModel) copySelectionCmd() tea.Cmd {
	text, ok := m.sel.CopyText(m.visible, m.viewGen)
	if !ok {
		return nil
	}
	lines := strings.Count(text, "\n") + 1
	return func() tea.Msg {
		err := selection.WriteClipboard(text)
		return copyResultMsg{lines: lines, err: err}
	}
}

// navigate moves the focused section's cursor.
func (m *DashboardModel) navigate(delta int) tea.Cmd {
	switch m.activeSection {
	case SectionSidebar:
		m.moveSidebarCursor(delta)
	case SectionChart:
		m.ranges.Pan(0.1 * float64(delta))
		return m.commitRangeChange()
	default:
		m.moveCursor(delta)
	}
	return nil
}

func (m *DashboardModel) moveCursor(delta int) {
	if len(m.visible) == 0 {
		return
	}
	if m.cursor < 0 {
		m.cursor = len(m.visible) - 1
	} else {
		m.cursor += delta
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	m.followTail = false
	m.ensureCursorVisible()
}

func (m *DashboardModel) clampCursor() {
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
}

func (m *DashboardModel) ensureCursorVisible() {
	if m.cursor < 0 || m.cursor >= len(m.entryItems) {
		return
	}
	row := m.window.OffsetOf(m.items, m.entryItems[m.cursor])
	rows := m.timelineRows()
	if row < m.scrollTop {
		m.scrollTop = row
	} else if row >= m.scrollTop+rows {
		m.scrollTop = row - rows + 1
	}
	m.clampScroll()
}

func (m *DashboardModel) jumpLatest() {
	m.followTail = true
	m.cursor = -1
	m.scrollToBottom()
}

func (m *DashboardModel) jumpOldest() {
	m.followTail = false
	m.cursor = -1
	m.scrollTop = 0
}

func (m *DashboardModel) scrollPage(dir int) {
	step := m.timelineRows() - 1
	if step < 1 {
		step = 1
	}
	m.scrollBy(dir * step)
}

// scrollBy moves the viewport; landing on the last row re-arms follow
// mode, anything above it pauses it.
func (m *DashboardModel) scrollBy(delta int) {
	m.scrollTop += delta
	m.clampScroll()
	m.followTail = m.scrollTop >= m.maxScroll()
}

func (m *DashboardModel) maxScroll() int {
	total := m.window.TotalRows(m.items)
	rows := m.timelineRows()
	if total <= rows {
		return 0
	}
	return total - rows
}

func (m *DashboardModel) scrollToBottom() {
	m.scrollTop = m.maxScroll()
}

func (m *DashboardModel) clampScroll() {
	if max := m.maxScroll(); m.scrollTop > max {
		m.scrollTop = max
	}
	if m.scrollTop < 0 {
		m.scrollTop = 0
	}
}
