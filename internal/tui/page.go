package tui

import tea "github.com/charmbracelet/bubbletea"

// PageNav requests a switch to another registered page.
type PageNav struct {
	To string
}

// Page is one full-screen view hosted by the App router. Update returns
// an optional navigation request alongside the usual command.
type Page interface {
	ID() string
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Cmd, *PageNav)
	View(width, height int) string
}
