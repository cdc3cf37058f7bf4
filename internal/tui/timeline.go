package tui

import (
	"fmt"
	"strings"

	"github.com/tasklight/tasklight/internal/flatten"
	"github.com/tasklight/tasklight/internal/model"

	"github.com/charmbracelet/lipgloss"
)

const originColumnWidth = 18

// rowState carries the per-row render flags.
type rowState struct {
	selected bool
	cursor   bool
}

func (m *DashboardModel) rowState(idx int) rowState {
	return rowState{
		selected: m.sel.Contains(idx, m.viewGen),
		cursor:   idx == m.cursor,
	}
}

// renderTimeline draws the visible slice of the flattened item list:
// log rows interleaved with date separators.
func (m *DashboardModel) renderTimeline(g layoutGeom) string {
	innerW := g.contentW - 2
	if innerW < 20 {
		innerW = 20
	}
	rows := g.timelineInnerRows

	lines := make([]string, 0, rows)
	first, last := m.window.VisibleRange(m.items, m.scrollTop, rows)
	for i := first; i >= 0 && i <= last && i < len(m.items); i++ {
		item := m.items[i]
		switch item.Kind {
		case flatten.KindSeparator:
			lines = append(lines, m.formatSeparator(item, innerW))
		default:
			idx := item.EntryIndex
			if idx < len(m.visible) {
				lines = append(lines, m.formatLogEntry(m.visible[idx], innerW, m.rowState(idx)))
			}
		}
	}
	if len(lines) == 0 {
		lines = m.emptyTimelineLines()
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}
	if len(lines) > rows {
		lines = lines[:rows]
	}

	borderColor := ColorGray
	if m.activeSection == SectionTimeline {
		borderColor = ColorBlue
	}
	return lipgloss.NewStyle().
		Width(innerW).
		Height(rows).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Render(strings.Join(lines, "\n"))
}

// formatSeparator renders one date separator row stretched to width.
func (m *DashboardModel) formatSeparator(item flatten.Item, width int) string {
	text := "── " + item.Date.Format("Mon, 02 Jan 2006") + " "
	if pad := width - lipgloss.Width(text); pad > 0 {
		text += strings.Repeat("─", pad)
	}
	return separatorStyle.Render(text)
}

// formatLogEntry renders one log row. Selected rows drop their per
// field colors for the block highlight so the selection reads as one
// span, terminal style.
func (m *DashboardModel) formatLogEntry(entry model.LogEntry, width int, state rowState) string {
	ts := entry.Timestamp.Local().Format("15:04:05")
	level := fmt.Sprintf("%-5s", entry.Level)

	origin := entry.Task
	if entry.Origin != "" {
		origin += "/" + entry.Origin
	}
	if entry.Attempt > 0 {
		origin += fmt.Sprintf("#%d", entry.Attempt)
	}
	origin = padOrTruncate(origin, originColumnWidth)

	msgWidth := width - len(ts) - len(level) - originColumnWidth - 3
	if msgWidth < 10 {
		msgWidth = 10
	}
	msg := truncate(strings.ReplaceAll(entry.Message, "\n", " "), msgWidth)

	plain := fmt.Sprintf("%s %s %s %s", ts, level, origin, msg)
	if state.selected {
		return selectionStyle.Render(padOrTruncate(plain, width))
	}
	if state.cursor {
		return cursorStyle.Render(padOrTruncate(plain, width))
	}

	return fmt.Sprintf("%s %s %s %s",
		lipgloss.NewStyle().Foreground(ColorGray).Render(ts),
		lipgloss.NewStyle().Foreground(getSeverityColor(entry.Level)).Render(level),
		lipgloss.NewStyle().Foreground(ColorGray).Render(origin),
		msg)
}

func (m *DashboardModel) emptyTimelineLines() []string {
	if m.fetchInFlight {
		return []string{"Loading logs..."}
	}
	if m.filterRegex != nil {
		return []string{
			"No entries match the current filter.",
			"",
			"Press / to edit the filter or ESC to clear it.",
		}
	}
	return []string{
		"Waiting for log entries...",
		"",
		"Pipe logs into a running server to see them here:",
		"  cat app.log | tasklight",
		"  kubectl logs -f pod | tasklight",
		"",
		"Press ? for help.",
	}
}

// renderFilterBar is the one-line filter readout above the timeline.
func (m *DashboardModel) renderFilterBar(g layoutGeom) string {
	var content string
	if m.filterActive {
		content = "Filter (editing) " + m.filterInput.View()
	} else {
		content = fmt.Sprintf("Filter [%s] | showing %d/%d entries | press / to edit",
			m.filterInput.Value(), len(m.visible), len(m.entries))
	}
	return lipgloss.NewStyle().
		Foreground(ColorGreen).
		Padding(0, 1).
		MaxWidth(g.contentW).
		Render(content)
}

// rowAt translates a screen y inside the timeline into an absolute row.
func (m *DashboardModel) rowAt(y int, g layoutGeom) int {
	return m.scrollTop + (y - g.timelineInnerY)
}

func (m *DashboardModel) itemAtRow(row int) (flatten.Item, bool) {
	if row < 0 || row >= m.window.TotalRows(m.items) {
		return flatten.Item{}, false
	}
	first, last := m.window.VisibleRange(m.items, row, 1)
	if last < first || first >= len(m.items) {
		return flatten.Item{}, false
	}
	return m.items[first], true
}

// entryIndexAt resolves a press to an entry index. Separator rows do
// not start selections.
func (m *DashboardModel) entryIndexAt(y int, g layoutGeom) (int, bool) {
	item, ok := m.itemAtRow(m.rowAt(y, g))
	if !ok || item.Kind != flatten.KindEntry {
		return 0, false
	}
	return item.EntryIndex, true
}

// dragTargetAt resolves drag motion. The pointer clamps to the
// timeline's edges, and separators snap to their run's first entry so
// a drag sweeps over them without gaps.
func (m *DashboardModel) dragTargetAt(y int, g layoutGeom) (int, bool) {
	if len(m.items) == 0 {
		return 0, false
	}
	if y < g.timelineInnerY {
		y = g.timelineInnerY
	}
	if maxY := g.timelineInnerY + g.timelineInnerRows - 1; y > maxY {
		y = maxY
	}
	row := m.rowAt(y, g)
	if total := m.window.TotalRows(m.items); row >= total {
		row = total - 1
	}
	item, ok := m.itemAtRow(row)
	if !ok {
		return 0, false
	}
	return item.EntryIndex, true
}

func padOrTruncate(s string, width int) string {
	if len(s) > width {
		return truncate(s, width)
	}
	return s + strings.Repeat(" ", width-len(s))
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
