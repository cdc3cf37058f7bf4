package tui

import tea "github.com/charmbracelet/bubbletea"

// Modal is a full-screen overlay with its own Update/View lifecycle.
// DashboardModel keeps modals on a stack; only the topmost one sees
// input and gets rendered.
type Modal interface {
	// ID deduplicates pushes: an ID already on the stack is not pushed again.
	ID() string
	// Update consumes one message. pop=true closes the modal.
	Update(msg tea.Msg) (pop bool, cmd tea.Cmd)
	// View renders at the given terminal size.
	View(width, height int) string
}

// Refreshable marks modals that re-pull their data when the feed
// changes underneath them.
type Refreshable interface {
	Refresh()
}
