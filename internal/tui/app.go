package tui

import tea "github.com/charmbracelet/bubbletea"

// App is the top-level bubbletea model. It owns the terminal size and
// routes every message to the active page.
type App struct {
	pages      map[string]Page
	activePage string
	width      int
	height     int
}

// NewApp registers the given pages and activates the first one.
func NewApp(pages ...Page) *App {
	app := &App{pages: make(map[string]Page)}
	for i, p := range pages {
		app.pages[p.ID()] = p
		if i == 0 {
			app.activePage = p.ID()
		}
	}
	return app
}

func (a *App) Init() tea.Cmd {
	page, ok := a.pages[a.activePage]
	if !ok {
		return nil
	}
	return page.Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		a.width = size.Width
		a.height = size.Height
	}

	page, ok := a.pages[a.activePage]
	if !ok {
		return a, nil
	}

	cmd, nav := page.Update(msg)
	if nav != nil {
		if next, ok := a.pages[nav.To]; ok && nav.To != a.activePage {
			a.activePage = nav.To
			return a, tea.Batch(cmd, next.Init())
		}
	}
	return a, cmd
}

func (a *App) View() string {
	page, ok := a.pages[a.activePage]
	if !ok {
		return ""
	}
	return page.View(a.width, a.height)
}
