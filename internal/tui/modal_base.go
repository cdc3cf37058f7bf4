package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// Screen margin around the modal frame.
const (
	modalMarginX = 4
	modalMarginY = 3
)

// renderModalFrame renders the shared modal chrome: a bold header, a
// bordered scrolling content pane and a hint line, centered on screen.
// The viewport is resized to the frame before the content is set.
func renderModalFrame(vp *viewport.Model, title, content string, width, height int) string {
	frameW := width - 2*modalMarginX
	frameH := height - 2*modalMarginY

	// Interior inside the two border layers plus header and hint rows.
	innerW := frameW - 4
	innerH := frameH - 4

	vp.Width = innerW
	vp.Height = innerH
	vp.SetContent(content)

	pane := lipgloss.NewStyle().
		Width(innerW).
		Height(innerH).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorGray).
		Render(vp.View())

	header := lipgloss.NewStyle().
		Width(innerW).
		Foreground(ColorBlue).
		Bold(true).
		Render(title)

	frame := lipgloss.NewStyle().
		Width(frameW).
		Height(frameH).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, pane, modalHintLine()))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, frame)
}

// modalHintLine is the hint row shared by scrolling modals.
func modalHintLine() string {
	hints := []string{"up/down/Wheel: Scroll", "PgUp/PgDn: Page", "ESC: Close"}

	return lipgloss.NewStyle().
		Foreground(ColorGray).
		Render(strings.Join(hints, " | "))
}

// modalContentWidth reports the inner text width renderModalFrame will
// give the viewport for the current terminal size.
func modalContentWidth(width int) int {
	w := width - 2*modalMarginX - 4
	if w < 10 {
		w = 10
	}
	return w
}

// scrollViewportKey applies the shared scrolling keys. Returns true
// when the key was one of them.
func scrollViewportKey(vp *viewport.Model, key string) bool {
	switch key {
	case "up", "k":
		vp.ScrollUp(1)
	case "down", "j":
		vp.ScrollDown(1)
	case "pgup":
		vp.HalfPageUp()
	case "pgdown":
		vp.HalfPageDown()
	default:
		return false
	}
	return true
}

// scrollViewportWheel applies wheel scrolling to a modal viewport,
// honoring the reversed-wheel setting.
func scrollViewportWheel(vp *viewport.Model, up, reversed bool) {
	if reversed {
		up = !up
	}
	if up {
		vp.ScrollUp(1)
	} else {
		vp.ScrollDown(1)
	}
}
