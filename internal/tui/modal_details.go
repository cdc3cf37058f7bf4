package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tasklight/tasklight/internal/model"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// detailsModal shows every field of a single log entry.
type detailsModal struct {
	dashboard *DashboardModel
	viewport  viewport.Model
	entry     model.LogEntry
}

func newDetailsModal(m *DashboardModel, entry model.LogEntry) *detailsModal {
	return &detailsModal{
		dashboard: m,
		viewport:  viewport.New(80, 20),
		entry:     entry,
	}
}

func (d *detailsModal) ID() string { return "details" }

func (d *detailsModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "escape", "esc", "q":
			return true, nil
		}
		if scrollViewportKey(&d.viewport, msg.String()) {
			return false, nil
		}
		var cmd tea.Cmd
		d.viewport, cmd = d.viewport.Update(msg)
		return false, cmd

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress {
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				scrollViewportWheel(&d.viewport, true, d.dashboard.reverseScroll)
			case tea.MouseButtonWheelDown:
				scrollViewportWheel(&d.viewport, false, d.dashboard.reverseScroll)
			}
		}
		return false, nil
	}
	return false, nil
}

func (d *detailsModal) View(width, height int) string {
	content := formatLogDetails(d.entry, modalContentWidth(width))
	return renderModalFrame(&d.viewport, "Log Details", content, width, height)
}

// formatLogDetails renders one entry as aligned key/value lines with
// the message and raw line wrapped underneath.
func formatLogDetails(entry model.LogEntry, width int) string {
	type field struct {
		key   string
		value string
		style lipgloss.Style
	}

	valueStyle := lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
	levelStyle := lipgloss.NewStyle().Foreground(getSeverityColor(entry.Level)).Bold(true)

	ts := entry.Timestamp.Local()
	age := formatDuration(time.Since(entry.Timestamp))
	fields := []field{
		{"Timestamp", fmt.Sprintf("%s (%s ago)", ts.Format("2006-01-02 15:04:05.000"), age), valueStyle},
		{"Level", entry.Level, levelStyle},
	}
	if entry.Task != "" {
		fields = append(fields, field{"Task", entry.Task, valueStyle})
	}
	if entry.Attempt > 0 {
		fields = append(fields, field{"Attempt", fmt.Sprintf("%d", entry.Attempt), valueStyle})
	}
	if entry.Origin != "" {
		fields = append(fields, field{"Origin", entry.Origin, valueStyle})
	}
	if entry.Source != "" {
		fields = append(fields, field{"Source", entry.Source, valueStyle})
	}
	if entry.ID != "" {
		fields = append(fields, field{"ID", entry.ID, valueStyle})
	}

	keys := make([]string, 0, len(entry.Attributes))
	for k := range entry.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, field{k, entry.Attributes[k], valueStyle})
	}

	maxKeyLen := 0
	for _, f := range fields {
		if len(f.key) > maxKeyLen {
			maxKeyLen = len(f.key)
		}
	}
	maxKeyLen += 3

	keyStyle := lipgloss.NewStyle().
		Foreground(ColorWhite).
		Width(maxKeyLen)

	var lines []string
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("%s %s",
			keyStyle.Render(f.key+":"),
			f.style.Render(f.value)))
	}

	headerStyle := lipgloss.NewStyle().Foreground(ColorWhite).Bold(true)
	lines = append(lines, "", headerStyle.Render("Message"), wrapTextToWidth(entry.Message, width))
	if entry.RawLine != "" && entry.RawLine != entry.Message {
		lines = append(lines, "", headerStyle.Render("Raw"), wrapTextToWidth(entry.RawLine, width))
	}

	return strings.Join(lines, "\n")
}

// wrapTextToWidth hard-wraps text so no line exceeds width. Existing
// newlines are preserved; words longer than the width break mid-word.
func wrapTextToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for len(line) > width {
			cut := strings.LastIndex(line[:width], " ")
			if cut <= 0 {
				cut = width
			}
			out = append(out, line[:cut])
			line = strings.TrimLeft(line[cut:], " ")
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
