package tui

import (
	"fmt"
	"time"

	"github.com/tasklight/tasklight/internal/stream"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements Page. All dashboard state changes funnel through
// here; the render side only reads.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		if m.followTail {
			m.scrollToBottom()
		}

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			m.stopStream()
			return tea.Quit, nil
		}
		cmds = append(cmds, m.handleKeyPress(msg))

	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))

	case batchLoadedMsg:
		m.applyBatch(msg)

	case liveEntryMsg:
		m.applyLive(msg)
		cmds = append(cmds, m.waitForLive())

	case streamStateMsg:
		if msg.session == m.session {
			m.streamState = msg.state
			if msg.state.Phase == stream.PhaseError && msg.state.Err != nil {
				m.reportError(msg.state.Err)
			}
		}
		cmds = append(cmds, m.waitForStreamState())

	case tasksLoadedMsg:
		if msg.err != nil {
			m.reportError(msg.err)
		} else {
			m.taskStats = msg.stats
			m.clampTaskCursor()
		}

	case copyResultMsg:
		if msg.err != nil {
			m.copyNotice = "copy failed: " + msg.err.Error()
		} else if msg.lines == 1 {
			m.copyNotice = "copied 1 line"
		} else {
			m.copyNotice = fmt.Sprintf("copied %d lines", msg.lines)
		}
		m.copyNoticeAt = time.Now()

	case tickMsg:
		m.tickInFlight = false
		m.ticks++
		if m.recon != nil {
			m.streamState = m.recon.State()
		}
		if m.ticks%tasksRefreshTicks == 0 {
			cmds = append(cmds, m.fetchTasksCmd())
		}
		cmds = append(cmds, m.tickCmd())
	}

	return tea.Batch(cmds...), nil
}

// handleMouse routes pointer events by screen region: sidebar, chart,
// or timeline. An open modal swallows everything.
func (m *DashboardModel) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if modal := m.TopModal(); modal != nil {
		pop, cmd := modal.Update(msg)
		if pop {
			m.PopModal()
		}
		return cmd
	}

	if m.filterActive {
		return nil // mouse is ignored while typing a filter
	}

	g := m.layout()

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			return m.handleLeftPress(msg, g)
		case tea.MouseButtonWheelUp:
			return m.handleWheel(msg, g, -1)
		case tea.MouseButtonWheelDown:
			return m.handleWheel(msg, g, 1)
		}
	case tea.MouseActionMotion:
		m.handleMouseMotion(msg, g)
	case tea.MouseActionRelease:
		m.handleMouseRelease(msg, g)
	}
	return nil
}

func (m *DashboardModel) handleLeftPress(msg tea.MouseMsg, g layoutGeom) tea.Cmd {
	if m.sidebarVisible() && msg.X < sidebarWidth {
		m.activeSection = SectionSidebar
		if idx, ok := m.sidebarIndexAt(msg.Y); ok {
			m.sidebarCursor = idx
			return m.selectSidebarEntry()
		}
		return nil
	}

	if g.chartVisible && msg.Y >= g.chartY && msg.Y < g.chartY+g.chartH {
		m.activeSection = SectionChart
		if col, ok := m.chartColAt(msg.X, g); ok {
			m.beginChartDrag(col, g)
		}
		return nil
	}

	if msg.Y >= g.timelineY && msg.Y < g.timelineY+g.timelineH {
		m.activeSection = SectionTimeline
		if idx, ok := m.entryIndexAt(msg.Y, g); ok {
			if msg.Shift {
				m.sel.ShiftClick(idx, m.viewGen)
			} else {
				m.sel.PointerDown(idx, m.viewGen)
				m.dragSelecting = true
			}
			m.cursor = idx
			m.followTail = false
		}
	}
	return nil
}

func (m *DashboardModel) handleMouseMotion(msg tea.MouseMsg, g layoutGeom) {
	if msg.Button != tea.MouseButtonLeft {
		return
	}
	if m.gesture.Dragging() {
		if m.gesture.Move(m.clampChartCol(msg.X, g)) {
			m.previewGesture(g)
		}
		return
	}
	if m.dragSelecting {
		if idx, ok := m.dragTargetAt(msg.Y, g); ok {
			m.sel.DragTo(idx, m.viewGen)
			m.cursor = idx
		}
	}
}

func (m *DashboardModel) handleMouseRelease(msg tea.MouseMsg, g layoutGeom) {
	if m.gesture.Dragging() {
		if x0, x1, ok := m.gesture.Release(m.clampChartCol(msg.X, g)); ok {
			m.proposeCols(x0, x1, g)
		}
	}
	m.dragSelecting = false
}

func (m *DashboardModel) handleWheel(msg tea.MouseMsg, g layoutGeom, dir int) tea.Cmd {
	if m.sidebarVisible() && msg.X < sidebarWidth {
		m.moveSidebarCursor(dir)
		return nil
	}
	if g.chartVisible && msg.Y >= g.chartY && msg.Y < g.chartY+g.chartH {
		if dir < 0 {
			m.ranges.Zoom(0.5)
		} else {
			m.ranges.Zoom(2)
		}
		return m.commitRangeChange()
	}
	if msg.Y >= g.timelineY && msg.Y < g.timelineY+g.timelineH {
		step := 3 * dir
		if m.reverseScroll {
			step = -step
		}
		m.scrollBy(step)
	}
	return nil
}
