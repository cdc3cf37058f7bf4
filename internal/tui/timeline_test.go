package tui

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/tasklight/tasklight/internal/flatten"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		s     string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a long message that overflows", 10, "a long ..."},
		{"abcdef", 3, "abc"},
		{"abcdef", 2, "ab"},
		{"", 5, ""},
	}
	for _, tc := range cases {
		if got := truncate(tc.s, tc.width); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.s, tc.width, got, tc.want)
		}
	}
}

func TestPadOrTruncate(t *testing.T) {
	t.Parallel()
	if got := padOrTruncate("ab", 5); got != "ab   " {
		t.Errorf("pad = %q, want %q", got, "ab   ")
	}
	if got := padOrTruncate("abcdefgh", 5); got != "ab..." {
		t.Errorf("truncate = %q, want %q", got, "ab...")
	}
	if got := padOrTruncate("abcde", 5); got != "abcde" {
		t.Errorf("exact = %q, want unchanged", got)
	}
}

func TestFormatSeparator_StretchesToWidth(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	item := flatten.Item{
		Kind: flatten.KindSeparator,
		Date: time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC),
	}

	got := m.formatSeparator(item, 60)
	if w := lipgloss.Width(got); w != 60 {
		t.Errorf("separator width = %d, want 60", w)
	}
	if !strings.Contains(got, item.Date.Format("Mon, 02 Jan 2006")) {
		t.Errorf("separator %q should carry the date", got)
	}
}

func TestItemAtRow(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	loadBatch(m, testBatch(3))

	item, ok := m.itemAtRow(0)
	if !ok || item.Kind != flatten.KindSeparator {
		t.Fatalf("row 0 = %+v, want the separator", item)
	}
	item, ok = m.itemAtRow(1)
	if !ok || item.Kind != flatten.KindEntry || item.EntryIndex != 0 {
		t.Fatalf("row 1 = %+v, want entry 0", item)
	}
	if _, ok := m.itemAtRow(4); ok {
		t.Error("row 4 is past the end")
	}
	if _, ok := m.itemAtRow(-1); ok {
		t.Error("negative rows resolve to nothing")
	}
}

func TestEntryIndexAt(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	loadBatch(m, testBatch(3))
	g := m.layout()

	if _, ok := m.entryIndexAt(g.timelineInnerY, g); ok {
		t.Error("the separator row must not resolve to an entry")
	}
	idx, ok := m.entryIndexAt(g.timelineInnerY+1, g)
	if !ok || idx != 0 {
		t.Fatalf("entry index = %d/%v, want 0", idx, ok)
	}
	idx, ok = m.entryIndexAt(g.timelineInnerY+3, g)
	if !ok || idx != 2 {
		t.Fatalf("entry index = %d/%v, want 2", idx, ok)
	}
}

func TestDragTargetAt_ClampsAndSnaps(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	loadBatch(m, testBatch(3))
	g := m.layout()

	// Above the viewport clamps to the first row; that row is the
	// separator, which snaps to its run's first entry.
	idx, ok := m.dragTargetAt(0, g)
	if !ok || idx != 0 {
		t.Fatalf("above viewport = %d/%v, want 0", idx, ok)
	}

	// Below the last populated row clamps to the final entry.
	idx, ok = m.dragTargetAt(g.timelineInnerY+g.timelineInnerRows+10, g)
	if !ok || idx != 2 {
		t.Fatalf("below viewport = %d/%v, want 2", idx, ok)
	}

	empty := newTestDashboard(t)
	if _, ok := empty.dragTargetAt(12, empty.layout()); ok {
		t.Error("no items, no drag target")
	}
}

func TestFormatLogEntry(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	entry := testEntry("e1", time.Date(2025, 11, 3, 9, 30, 5, 0, time.Local), "ERROR", "deploy", "connection refused")
	entry.Origin = "worker"
	entry.Attempt = 2

	got := m.formatLogEntry(entry, 100, rowState{})
	if !strings.Contains(got, "09:30:05") {
		t.Errorf("row %q should show the local clock time", got)
	}
	if !strings.Contains(got, "ERROR") {
		t.Errorf("row %q should show the level", got)
	}
	if !strings.Contains(got, "deploy/worker#2") {
		t.Errorf("row %q should show task, origin and attempt", got)
	}
	if !strings.Contains(got, "connection refused") {
		t.Errorf("row %q should show the message", got)
	}
}

func TestFormatLogEntry_SelectedIsOneBlock(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	entry := testEntry("e1", time.Date(2025, 11, 3, 9, 30, 5, 0, time.Local), "INFO", "build", "multi\nline message")

	got := m.formatLogEntry(entry, 80, rowState{selected: true})
	if w := lipgloss.Width(got); w != 80 {
		t.Errorf("selected row width = %d, want the full 80", w)
	}
	if strings.Contains(got, "\n") {
		t.Error("newlines must flatten out of the row")
	}
}

func TestEmptyTimelineLines(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)

	if got := m.emptyTimelineLines(); !strings.Contains(got[0], "Waiting for log entries") {
		t.Errorf("idle state = %q", got[0])
	}

	m.fetchInFlight = true
	if got := m.emptyTimelineLines(); !strings.Contains(got[0], "Loading") {
		t.Errorf("loading state = %q", got[0])
	}

	m.fetchInFlight = false
	m.filterRegex = regexp.MustCompile("x")
	if got := m.emptyTimelineLines(); !strings.Contains(got[0], "No entries match") {
		t.Errorf("filtered state = %q", got[0])
	}
}

func TestRenderFilterBar_ShowsCounts(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	loadBatch(m, testBatch(3))
	m.filterInput.SetValue("refused")
	m.filterRegex = regexp.MustCompile("refused")
	m.filterDirty = true
	m.rebuild()

	got := m.renderFilterBar(m.layout())
	if !strings.Contains(got, "showing 0/3 entries") {
		t.Errorf("filter bar = %q, want the visible/total counts", got)
	}
}
