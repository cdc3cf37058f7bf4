package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestLayout_Default(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	g := m.layout()

	if !g.chartVisible || g.chartY != 0 || g.chartH != 10 {
		t.Fatalf("chart = visible=%v y=%d h=%d, want visible at 0 h=10", g.chartVisible, g.chartY, g.chartH)
	}
	if g.chartInnerX != 1 || g.chartInnerY != 2 || g.chartInnerW != 98 || g.chartInnerH != 7 {
		t.Fatalf("chart inner = x=%d y=%d w=%d h=%d", g.chartInnerX, g.chartInnerY, g.chartInnerW, g.chartInnerH)
	}
	if g.filterY != -1 {
		t.Errorf("filter y = %d, want hidden", g.filterY)
	}
	if g.timelineY != 10 || g.timelineH != 19 || g.timelineInnerY != 11 || g.timelineInnerRows != 17 {
		t.Fatalf("timeline = y=%d h=%d innerY=%d rows=%d", g.timelineY, g.timelineH, g.timelineInnerY, g.timelineInnerRows)
	}
	if g.statusY != 29 {
		t.Errorf("status y = %d, want 29", g.statusY)
	}
}

func TestLayout_FilterBarShiftsTimeline(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	m.filterActive = true
	g := m.layout()

	if g.filterY != 10 {
		t.Fatalf("filter y = %d, want 10", g.filterY)
	}
	if g.timelineY != 11 || g.timelineInnerRows != 16 {
		t.Fatalf("timeline = y=%d rows=%d, want y=11 rows=16", g.timelineY, g.timelineInnerRows)
	}
}

func TestLayout_ShortTerminalDropsChart(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	m.height = 15
	g := m.layout()

	if g.chartVisible {
		t.Fatal("no chart below twenty rows")
	}
	if g.timelineY != 0 || g.timelineH != 14 {
		t.Fatalf("timeline = y=%d h=%d, want y=0 h=14", g.timelineY, g.timelineH)
	}
}

func TestLayout_SidebarIndentsContent(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	m.showSidebar = true
	g := m.layout()

	if g.contentX != sidebarWidth || g.contentW != 100-sidebarWidth {
		t.Fatalf("content = x=%d w=%d", g.contentX, g.contentW)
	}
	if g.chartInnerX != sidebarWidth+1 {
		t.Errorf("chart inner x = %d, want %d", g.chartInnerX, sidebarWidth+1)
	}
}

func TestFilterBarVisible(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)

	if m.filterBarVisible() {
		t.Fatal("no filter, no bar")
	}
	m.filterActive = true
	if !m.filterBarVisible() {
		t.Fatal("editing shows the bar")
	}
	m.filterActive = false
	m.filterInput.SetValue("err")
	if !m.filterBarVisible() {
		t.Fatal("a typed pattern keeps the bar up")
	}
}

func TestView_FillsTheFrame(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	loadBatch(m, testBatch(5))

	got := m.View(100, 30)
	if h := lipgloss.Height(got); h != 30 {
		t.Fatalf("frame height = %d, want 30", h)
	}
	if w := lipgloss.Width(got); w != 100 {
		t.Fatalf("frame width = %d, want 100", w)
	}

	m.showSidebar = true
	got = m.View(100, 30)
	if h := lipgloss.Height(got); h != 30 {
		t.Fatalf("frame height with sidebar = %d, want 30", h)
	}
	if w := lipgloss.Width(got); w != 100 {
		t.Fatalf("frame width with sidebar = %d, want 100", w)
	}
	if !strings.Contains(got, "All tasks") {
		t.Error("the sidebar should list the all-tasks row")
	}
}

func TestView_ModalReplacesFrame(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	m.PushModal(newHelpModal(m))

	got := m.View(100, 30)
	if h := lipgloss.Height(got); h != 30 {
		t.Fatalf("modal frame height = %d, want 30", h)
	}
	if !strings.Contains(got, "Help") {
		t.Error("the help modal should render its header")
	}
}
