package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
)

func TestFilterableLevels_MostSevereFirst(t *testing.T) {
	t.Parallel()
	got := filterableLevels()
	want := []string{"FATAL", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"}
	if len(got) != len(want) {
		t.Fatalf("levels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("levels = %v, want %v", got, want)
		}
	}
}

func TestLevelFilterModal_NavigationSkipsSeparator(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	s := newLevelFilterModal(m)

	s.Update(keyMsg("down"))
	if s.selected != 1 {
		t.Fatalf("selected = %d, want 1", s.selected)
	}
	s.Update(keyMsg("down"))
	if s.selected != 3 {
		t.Fatalf("selected = %d, want 3 (the separator is skipped)", s.selected)
	}
	s.Update(keyMsg("up"))
	if s.selected != 1 {
		t.Fatalf("selected = %d, want 1 (the separator is skipped)", s.selected)
	}

	for i := 0; i < 20; i++ {
		s.Update(keyMsg("down"))
	}
	if s.selected != 8 {
		t.Fatalf("selected = %d, want 8 (clamped at TRACE)", s.selected)
	}
}

func TestLevelFilterModal_CommitSubset(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	s := newLevelFilterModal(m)

	// Select none, which makes enter refuse, then enable FATAL alone.
	s.selected = 1
	s.Update(keyMsg(" "))
	if pop, _ := s.Update(keyMsg("enter")); pop {
		t.Fatal("committing an empty selection must be refused")
	}

	s.selected = 3
	s.Update(keyMsg(" "))
	pop, cmd := s.Update(keyMsg("enter"))
	if !pop {
		t.Fatal("enter should close the modal")
	}
	if cmd == nil {
		t.Fatal("a changed filter should refetch")
	}
	got := m.enabledLevels()
	if len(got) != 1 || got[0] != "FATAL" {
		t.Fatalf("enabled levels = %v, want [FATAL]", got)
	}
}

func TestLevelFilterModal_UnchangedCommitIsFree(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	s := newLevelFilterModal(m)

	pop, cmd := s.Update(keyMsg("enter"))
	if !pop {
		t.Fatal("enter should close the modal")
	}
	if cmd != nil {
		t.Fatal("nothing changed, nothing to refetch")
	}
	if m.levelFilter != nil {
		t.Fatal("the filter should still mean all levels")
	}
}

func TestLevelFilterModal_AllEnabledNormalizesToNil(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	m.levelFilter = map[string]bool{"FATAL": true}
	s := newLevelFilterModal(m)

	s.selected = 0
	s.Update(keyMsg(" ")) // select all
	pop, cmd := s.Update(keyMsg("enter"))
	if !pop || cmd == nil {
		t.Fatal("re-enabling everything is a change and should refetch")
	}
	if m.levelFilter != nil {
		t.Fatal("all levels enabled should normalize to no filter")
	}
}

func TestLevelFilterModal_EscapeDiscards(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	s := newLevelFilterModal(m)

	s.selected = 3
	s.Update(keyMsg(" ")) // drop FATAL locally
	pop, cmd := s.Update(keyMsg("esc"))
	if !pop || cmd != nil {
		t.Fatal("escape should close without a refetch")
	}
	if m.levelFilter != nil {
		t.Fatal("escape must not publish pending edits")
	}
}

func TestRenderPatternTable(t *testing.T) {
	t.Parallel()
	if got := renderPatternTable(nil, 80); !strings.Contains(got, "no patterns") {
		t.Errorf("empty table = %q", got)
	}

	patterns := []LogPattern{
		{Template: "connect to <*> failed", Count: 8, Percentage: 80},
		{Template: "worker <*> started", Count: 2, Percentage: 20},
	}
	got := renderPatternTable(patterns, 80)
	if !strings.Contains(got, " 80.0%") || !strings.Contains(got, " 20.0%") {
		t.Errorf("table %q should show percentages", got)
	}
	if !strings.Contains(got, "connect to <*> failed") {
		t.Errorf("table %q should show the template", got)
	}
	if !strings.Contains(got, "█") || !strings.Contains(got, "│") {
		t.Errorf("table %q should draw bars", got)
	}
}

func TestMeterBar(t *testing.T) {
	t.Parallel()
	if got := meterBar(10, 10, 12); got != strings.Repeat("█", 12) {
		t.Errorf("full bar = %q", got)
	}
	if got := meterBar(0, 10, 12); got != strings.Repeat("░", 12) {
		t.Errorf("empty bar = %q", got)
	}
	// A tiny nonzero count still shows one filled cell.
	if got := meterBar(1, 1000, 12); !strings.HasPrefix(got, "█") {
		t.Errorf("bar = %q, want a leading filled cell", got)
	}
}

func TestPatternsModal_RefreshTracksFeed(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	loadBatch(m, testBatch(3))

	pm := newPatternsModal(m)
	wantPatterns, wantTotal := m.drain3Manager.GetStats()
	if pm.patternCount != wantPatterns || pm.totalLogs != wantTotal {
		t.Fatalf("modal stats = %d/%d, want %d/%d", pm.patternCount, pm.totalLogs, wantPatterns, wantTotal)
	}

	// While open, a feed change re-pulls the stats.
	m.PushModal(pm)
	loadBatch(m, testBatch(6))
	_, wantTotal = m.drain3Manager.GetStats()
	if pm.totalLogs != wantTotal {
		t.Fatalf("modal total = %d, want %d after the feed reset", pm.totalLogs, wantTotal)
	}
}

func TestFormatLogDetails(t *testing.T) {
	t.Parallel()
	entry := testEntry("id-1", time.Date(2025, 11, 3, 9, 30, 5, 0, time.Local), "ERROR", "deploy", "upload failed")
	entry.Attributes = map[string]string{"beta": "2", "alpha": "1"}
	entry.RawLine = "2025-11-03 | upload failed"

	got := formatLogDetails(entry, 60)
	for _, want := range []string{"Timestamp", "ago)", "Level", "ERROR", "Task", "deploy", "Message", "upload failed", "Raw"} {
		if !strings.Contains(got, want) {
			t.Errorf("details missing %q in\n%s", want, got)
		}
	}
	if strings.Contains(got, "Attempt") {
		t.Error("zero attempt should not render")
	}
	if strings.Index(got, "alpha") > strings.Index(got, "beta") {
		t.Error("attributes should sort by key")
	}
}

func TestFormatLogDetails_RawOnlyWhenDistinct(t *testing.T) {
	t.Parallel()
	entry := testEntry("id-1", time.Date(2025, 11, 3, 9, 30, 5, 0, time.Local), "INFO", "build", "plain line")
	entry.RawLine = "plain line"

	if got := formatLogDetails(entry, 60); strings.Contains(got, "Raw") {
		t.Error("an identical raw line should not render twice")
	}
}

func TestWrapTextToWidth(t *testing.T) {
	t.Parallel()
	if got := wrapTextToWidth("short", 10); got != "short" {
		t.Errorf("short = %q, want unchanged", got)
	}
	if got := wrapTextToWidth("aaa bbb ccc", 7); got != "aaa\nbbb ccc" {
		t.Errorf("word wrap = %q, want %q", got, "aaa\nbbb ccc")
	}
	if got := wrapTextToWidth("abcdefghij", 4); got != "abcd\nefgh\nij" {
		t.Errorf("mid-word break = %q, want %q", got, "abcd\nefgh\nij")
	}
	if got := wrapTextToWidth("a\n\nb", 10); got != "a\n\nb" {
		t.Errorf("existing newlines = %q, want preserved", got)
	}

	long := strings.Repeat("some words here ", 20)
	for _, line := range strings.Split(wrapTextToWidth(long, 30), "\n") {
		if len(line) > 30 {
			t.Fatalf("line %q exceeds the width", line)
		}
	}
}

func TestModalContentWidth(t *testing.T) {
	t.Parallel()
	if got := modalContentWidth(100); got != 88 {
		t.Errorf("width 100 = %d, want 88", got)
	}
	if got := modalContentWidth(15); got != 10 {
		t.Errorf("width 15 = %d, want the floor of 10", got)
	}
}

func TestScrollViewportKey(t *testing.T) {
	t.Parallel()
	vp := viewport.New(20, 3)
	vp.SetContent(strings.Repeat("line\n", 20))

	if !scrollViewportKey(&vp, "down") {
		t.Fatal("down should be handled")
	}
	if vp.YOffset != 1 {
		t.Fatalf("y offset = %d, want 1", vp.YOffset)
	}
	if !scrollViewportKey(&vp, "up") {
		t.Fatal("up should be handled")
	}
	if vp.YOffset != 0 {
		t.Fatalf("y offset = %d, want 0", vp.YOffset)
	}
	if scrollViewportKey(&vp, "x") {
		t.Fatal("unrelated keys are not scroll keys")
	}
}
