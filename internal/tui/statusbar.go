package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/tasklight/tasklight/internal/stream"
	"github.com/tasklight/tasklight/internal/timerange"

	"github.com/charmbracelet/lipgloss"
)

const (
	errorNoticeTTL = 30 * time.Second
	copyNoticeTTL  = 3 * time.Second
)

func (m *DashboardModel) hasSelection() bool {
	_, ok := m.sel.Current(m.viewGen)
	return ok
}

// renderStatusBar renders the bottom status line: focused section on
// the left, contextual hints in the center, stream state and notices
// on the right.
func (m *DashboardModel) renderStatusBar() string {
	baseStyle := lipgloss.NewStyle().
		Background(ColorNavy).
		Foreground(ColorWhite)

	w := m.contentWidth()
	veryNarrow := w < 60
	narrow := w < 80
	medium := w < 120

	var sectionName string
	switch m.activeSection {
	case SectionChart:
		sectionName = "Histogram"
	case SectionSidebar:
		sectionName = "Tasks"
	default:
		sectionName = "Timeline"
	}
	if m.selectedTask != "" {
		sectionName = m.selectedTask + "/" + sectionName
	}

	var focusLabel string
	if !m.filterActive {
		if veryNarrow {
			focusLabel = sectionName[:min(8, len(sectionName))]
		} else {
			focusLabel = fmt.Sprintf("[%s]", sectionName)
		}
	}

	var hints string
	switch {
	case m.filterActive:
		if narrow {
			hints = "Enter: Apply • ESC: Cancel"
		} else {
			hints = "Type regex pattern • Enter: Apply • ESC: Cancel"
		}
	case m.ranges.State() == timerange.StateEditing:
		hints = "Enter: Apply Range • ESC: Cancel"
	case m.hasSelection():
		if narrow {
			hints = "y: Copy • ESC: Clear"
		} else {
			hints = "y: Copy • Shift+Click: Extend • ESC: Clear"
		}
	case m.HasModal():
		hints = "ESC: Close"
	default:
		switch m.activeSection {
		case SectionChart:
			if veryNarrow {
				hints = "Drag • 1-5 • [] • +-"
			} else if medium {
				hints = "Drag: Select Range • 1-5: Presets • []: Pan • +/-: Zoom"
			} else {
				hints = "?: Help • Drag: Select Range • Enter: Apply • 1-5: Presets • []: Pan • +/-: Zoom • f: Follow"
			}
		case SectionSidebar:
			hints = "↑↓: Navigate • Enter: Select Task • a: Hide"
		default:
			if veryNarrow {
				hints = "? • ↑↓ • y • f • q"
			} else if narrow {
				hints = "?: Help • ↑↓: Navigate • y: Copy • q: Quit"
			} else if medium {
				hints = "?: Help • ↑↓: Navigate • Drag: Select • y: Copy • f: Follow • q: Quit"
			} else {
				hints = "?: Help • Wheel: Scroll • Drag: Select • Shift+Click: Extend • y: Copy • Enter: Details • f: Follow • /: Filter • q: Quit"
			}
		}
	}

	var parts []string
	if m.lastError != "" && time.Since(m.lastErrorAt) < errorNoticeTTL {
		errStyle := lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(lipgloss.Color("#FF5F5F")).
			Faint(true)
		parts = append(parts, errStyle.Render("server error"))
	}
	if m.copyNotice != "" && time.Since(m.copyNoticeAt) < copyNoticeTTL {
		copyStyle := lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorGreen)
		parts = append(parts, copyStyle.Render(m.copyNotice))
	}
	if m.fetchInFlight {
		parts = append(parts, "loading...")
	}
	if !veryNarrow {
		if s := m.renderStreamState(); s != "" {
			parts = append(parts, s)
		}
	}
	if !m.ranges.Live() {
		parts = append(parts, "⏱ Historical")
	} else if !m.followTail {
		parts = append(parts, "⏸ Paused")
	}
	if !narrow {
		parts = append(parts, fmt.Sprintf("%d entries", len(m.visible)))
	}
	if w >= 30 {
		parts = append(parts, m.renderBranding())
	}
	notices := strings.Join(parts, "  ")

	focusW := lipgloss.Width(focusLabel) + 2
	noticeW := lipgloss.Width(notices) + 2
	if focusW+noticeW >= w {
		if w < 20 {
			return baseStyle.Width(max(0, w)).Render(focusLabel)
		}
		focusW = min(10, w/3)
		noticeW = min(15, w/3)
	}
	hintW := max(0, w-focusW-noticeW)

	if lipgloss.Width(focusLabel) > focusW {
		focusLabel = focusLabel[:max(0, focusW-1)]
	}
	if lipgloss.Width(hints) > hintW {
		hints = hints[:max(0, hintW-1)]
	}
	if lipgloss.Width(notices) > noticeW {
		// Styled text cannot be sliced without breaking ANSI codes, so
		// drop parts by priority instead.
		if w < 40 {
			notices = ""
		} else if s := m.renderStreamState(); s != "" {
			notices = s
		}
	}

	left := baseStyle.Align(lipgloss.Left).Width(focusW).Render(focusLabel)
	center := baseStyle.Align(lipgloss.Center).Width(hintW).Render(hints)
	right := baseStyle.Align(lipgloss.Right).Width(noticeW).Render(notices)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, center, right)
}

// renderStreamState renders the live connection indicator. Closed
// historical ranges have no stream, so nothing shows.
func (m *DashboardModel) renderStreamState() string {
	if !m.ranges.Live() {
		return ""
	}
	bg := lipgloss.NewStyle().Background(ColorNavy)
	switch m.streamState.Phase {
	case stream.PhaseStreaming:
		return bg.Foreground(lipgloss.Color("#44FF44")).Render("●") + " live"
	case stream.PhaseConnecting:
		label := "connecting"
		if a := m.streamState.RetryAttempt; a > 0 {
			label = fmt.Sprintf("retry %d/%d", a, stream.MaxAttempts)
		}
		return bg.Foreground(lipgloss.Color("#FFAA00")).Render("●") + " " + label
	case stream.PhaseError:
		return bg.Foreground(lipgloss.Color("#FF4444")).Render("●") + " offline (r: retry)"
	}
	return bg.Foreground(ColorGray).Render("○") + " idle"
}

// renderBranding renders "Tasklight" with a green to blue gradient.
func (m *DashboardModel) renderBranding() string {
	gradient := []string{
		"#49E209", "#3EDF2B", "#33DB4D", "#28D76F", "#1DD391",
		"#12CFB3", "#0BCBD5", "#06C0E0", "#00B4EB",
	}

	var b strings.Builder
	for i, ch := range "Tasklight" {
		b.WriteString(lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(lipgloss.Color(gradient[i])).
			Bold(true).
			Render(string(ch)))
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
