package tui

import "github.com/charmbracelet/lipgloss"

// layoutGeom is the computed screen geometry for one frame. Mouse hit
// testing and rendering both derive from it, so the two cannot drift.
type layoutGeom struct {
	contentX int
	contentW int

	chartVisible bool
	chartY       int
	chartH       int
	chartInnerX  int
	chartInnerY  int
	chartInnerW  int
	chartInnerH  int

	filterY int // -1 when the filter bar is hidden

	timelineY         int
	timelineH         int
	timelineInnerY    int
	timelineInnerRows int

	statusY int
}

func (m *DashboardModel) layout() layoutGeom {
	g := layoutGeom{}
	if m.sidebarVisible() {
		g.contentX = sidebarWidth
	}
	g.contentW = m.width - g.contentX

	const statusH = 1
	filterH := 0
	if m.filterBarVisible() {
		filterH = 1
	}
	chartH := 0
	if m.height >= 20 {
		chartH = 10
	}

	y := 0
	if chartH > 0 {
		g.chartVisible = true
		g.chartY = y
		g.chartH = chartH
		// Border, then the title row, then the plot.
		g.chartInnerX = g.contentX + 1
		g.chartInnerY = y + 2
		g.chartInnerW = g.contentW - 2
		g.chartInnerH = chartH - 3
		y += chartH
	}

	if filterH > 0 {
		g.filterY = y
		y += filterH
	} else {
		g.filterY = -1
	}

	g.timelineY = y
	g.timelineH = m.height - statusH - y
	if g.timelineH < 3 {
		g.timelineH = 3
	}
	g.timelineInnerY = g.timelineY + 1
	g.timelineInnerRows = g.timelineH - 2
	g.statusY = m.height - statusH

	return g
}

func (m *DashboardModel) timelineRows() int {
	rows := m.layout().timelineInnerRows
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *DashboardModel) filterBarVisible() bool {
	return m.filterActive || m.filterRegex != nil || m.filterInput.Value() != ""
}

// View implements Page.
func (m *DashboardModel) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	m.width = width
	m.height = height

	if modal := m.TopModal(); modal != nil {
		return modal.View(width, height)
	}

	g := m.layout()

	var rows []string
	if g.chartVisible {
		rows = append(rows, m.renderChart(g))
	}
	if g.filterY >= 0 {
		rows = append(rows, m.renderFilterBar(g))
	}
	rows = append(rows, m.renderTimeline(g))
	rows = append(rows, m.renderStatusBar())

	content := lipgloss.JoinVertical(lipgloss.Left, rows...)

	if m.sidebarVisible() {
		sidebar := m.renderTaskSidebar(height)
		content = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)
	}
	return content
}
