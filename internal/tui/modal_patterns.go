package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// modalPatternLimit caps how many mined patterns the modal lists.
	modalPatternLimit = 50

	patternBarWidth = 12
)

// patternsModal lists the mined message patterns for the current feed,
// most frequent first. It re-pulls them whenever the feed changes.
type patternsModal struct {
	dashboard    *DashboardModel
	viewport     viewport.Model
	patterns     []LogPattern
	patternCount int
	totalLogs    int
}

func newPatternsModal(m *DashboardModel) *patternsModal {
	p := &patternsModal{
		dashboard: m,
		viewport:  viewport.New(80, 20),
	}
	p.Refresh()
	return p
}

func (p *patternsModal) ID() string { return "patterns" }

// Refresh implements Refreshable.
func (p *patternsModal) Refresh() {
	p.patterns = p.dashboard.drain3Manager.GetTopPatterns(modalPatternLimit)
	p.patternCount, p.totalLogs = p.dashboard.drain3Manager.GetStats()
}

func (p *patternsModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "p", "escape", "esc", "q":
			return true, nil
		}
		if scrollViewportKey(&p.viewport, msg.String()) {
			return false, nil
		}
		var cmd tea.Cmd
		p.viewport, cmd = p.viewport.Update(msg)
		return false, cmd

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress {
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				scrollViewportWheel(&p.viewport, true, p.dashboard.reverseScroll)
			case tea.MouseButtonWheelDown:
				scrollViewportWheel(&p.viewport, false, p.dashboard.reverseScroll)
			}
		}
		return false, nil
	}
	return false, nil
}

func (p *patternsModal) View(width, height int) string {
	title := "Log Patterns"
	if p.patternCount > 0 {
		title = fmt.Sprintf("Log Patterns (%d patterns from %d logs)", p.patternCount, p.totalLogs)
	}
	content := renderPatternTable(p.patterns, modalContentWidth(width))
	return renderModalFrame(&p.viewport, title, content, width, height)
}

// renderPatternTable renders one bar row per pattern. The top three
// patterns get the hottest color, the next three a warm one.
func renderPatternTable(patterns []LogPattern, width int) string {
	if len(patterns) == 0 {
		return helpStyle.Render("no patterns extracted yet")
	}

	maxCount := 0
	for _, pat := range patterns {
		maxCount = max(maxCount, pat.Count)
	}

	templateWidth := max(width-26, 20)

	tierStyles := []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	}
	dimStyle := lipgloss.NewStyle().Foreground(ColorGray)
	textStyle := lipgloss.NewStyle().Foreground(ColorWhite)

	var rows []string
	for i, pat := range patterns {
		share := fmt.Sprintf("%5.1f%%", pat.Percentage)
		row := fmt.Sprintf("%s %s │ %s",
			tierStyles[min(i/3, 2)].Render(meterBar(pat.Count, maxCount, patternBarWidth)),
			dimStyle.Render(share),
			textStyle.Render(truncate(pat.Template, templateWidth)),
		)
		rows = append(rows, row)
	}

	return strings.Join(rows, "\n")
}

// meterBar draws count as a fixed-width block meter scaled to maxCount.
// Nonzero counts always show at least one filled cell.
func meterBar(count, maxCount, width int) string {
	filled := 0
	if maxCount > 0 {
		filled = count * width / maxCount
	}
	if filled == 0 && count > 0 {
		filled = 1
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
