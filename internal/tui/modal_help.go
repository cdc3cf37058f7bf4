package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// helpModal displays the key reference.
type helpModal struct {
	dashboard *DashboardModel
	viewport  viewport.Model
}

func newHelpModal(m *DashboardModel) *helpModal {
	return &helpModal{
		dashboard: m,
		viewport:  viewport.New(80, 20),
	}
}

func (h *helpModal) ID() string { return "help" }

func (h *helpModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "?", "escape", "esc", "q":
			return true, nil
		}
		if scrollViewportKey(&h.viewport, msg.String()) {
			return false, nil
		}
		var cmd tea.Cmd
		h.viewport, cmd = h.viewport.Update(msg)
		return false, cmd

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress {
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				scrollViewportWheel(&h.viewport, true, h.dashboard.reverseScroll)
			case tea.MouseButtonWheelDown:
				scrollViewportWheel(&h.viewport, false, h.dashboard.reverseScroll)
			}
		}
		return false, nil
	}
	return false, nil
}

func (h *helpModal) View(width, height int) string {
	content := wrapTextToWidth(helpContent(), modalContentWidth(width))
	return renderModalFrame(&h.viewport, "Help", content, width, height)
}

func helpContent() string {
	return `Tasklight Timeline Help

NAVIGATION:
  Tab/Shift+Tab  - Cycle focus between timeline, histogram and sidebar
  up/down or k/j - Move the cursor (timeline), pan (histogram)
  PgUp/PgDn      - Scroll the timeline by pages
  Home/g         - Jump to the oldest entry (stops following)
  End/G or f     - Jump to the latest entry and follow new ones
  Mouse Wheel    - Scroll the timeline, zoom the histogram
  Enter          - Open details for the entry under the cursor
  Escape         - Cancel range edit / clear selection / clear filter

TIME RANGE:
  1-5            - Presets: 15m, 1h, 6h, 24h, all time
  [ / ]          - Pan the committed range left/right
  +/-            - Zoom in/out around the range center
  Mouse Drag     - Drag across the histogram to stage a range,
                   Enter applies it, Escape discards it

SELECTION & CLIPBOARD:
  Mouse Click    - Select a single entry
  Mouse Drag     - Extend the selection while the button is held
  Shift+Click    - Extend the selection to the clicked entry
  y              - Copy the selected lines to the clipboard

FILTERING:
  /              - Regex filter over message, task and attributes
  Ctrl+f         - Toggle severity levels
  a              - Toggle the task sidebar; Enter scopes to a task

OTHER:
  p              - Show mined message patterns
  r              - Refetch the current range
  q/Ctrl+C       - Quit
`
}
