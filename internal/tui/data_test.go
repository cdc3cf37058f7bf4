package tui

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/tasklight/tasklight/internal/flatten"
	"github.com/tasklight/tasklight/internal/model"
)

func TestApplyBatch_PopulatesTimeline(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	batch := testBatch(3)

	loadBatch(m, batch)

	if got := len(m.entries); got != 3 {
		t.Fatalf("entries = %d, want 3", got)
	}
	if got := len(m.visible); got != 3 {
		t.Fatalf("visible = %d, want 3", got)
	}
	// Same-day entries flatten to one separator plus the entries.
	if got := len(m.items); got != 4 {
		t.Fatalf("items = %d, want 4", got)
	}
	if m.items[0].Kind != flatten.KindSeparator {
		t.Error("first item should be the date separator")
	}
	if m.viewGen != 1 {
		t.Errorf("view generation = %d, want 1", m.viewGen)
	}
	if m.session != 1 {
		t.Errorf("stream session = %d, want 1 (live view resumes streaming)", m.session)
	}
	if m.fetchInFlight {
		t.Error("fetch should be settled")
	}
}

func TestApplyBatch_StaleSequenceIgnored(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	m.fetchSeq = 2

	m.applyBatch(batchLoadedMsg{seq: 1, entries: testBatch(3)})

	if len(m.entries) != 0 {
		t.Fatal("stale batch must not land")
	}
}

func TestApplyBatch_ErrorReported(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)

	m.applyBatch(batchLoadedMsg{seq: 0, err: errors.New("fetch range: boom")})

	if m.lastError == "" {
		t.Fatal("error should surface in the status line")
	}
	if len(m.entries) != 0 {
		t.Fatal("failed batch must not replace entries")
	}

	loadBatch(m, testBatch(1))
	if m.lastError != "" {
		t.Error("a good batch should clear the error")
	}
}

func TestApplyBatch_ResetRetiresSelection(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	loadBatch(m, testBatch(3))

	m.sel.PointerDown(0, m.viewGen)
	m.sel.DragTo(2, m.viewGen)
	if _, ok := m.sel.Current(m.viewGen); !ok {
		t.Fatal("selection should be active")
	}

	// A batch with a different identity resets the feed and bumps the
	// view generation, which retires the selection.
	loadBatch(m, testBatch(5))
	if m.viewGen != 2 {
		t.Fatalf("view generation = %d, want 2", m.viewGen)
	}
	if _, ok := m.sel.Current(m.viewGen); ok {
		t.Fatal("selection must not survive a feed reset")
	}
}

func TestApplyLive_AppendsWithoutReset(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	batch := testBatch(3)
	loadBatch(m, batch)

	m.sel.PointerDown(1, m.viewGen)

	after := batch[len(batch)-1].Timestamp.Add(time.Second)
	m.applyLive(liveEntryMsg{session: m.session, entry: testEntry("live-1", after, "WARN", "build", "live line")})

	if got := len(m.visible); got != 4 {
		t.Fatalf("visible = %d, want 4", got)
	}
	if m.viewGen != 1 {
		t.Errorf("view generation = %d, want 1 (append is not a reset)", m.viewGen)
	}
	if _, ok := m.sel.Current(m.viewGen); !ok {
		t.Error("selection should survive a live append")
	}
}

func TestApplyLive_StaleSessionDropped(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	batch := testBatch(2)
	loadBatch(m, batch)

	after := batch[len(batch)-1].Timestamp.Add(time.Second)
	m.applyLive(liveEntryMsg{session: m.session + 1, entry: testEntry("orphan", after, "INFO", "build", "late")})

	if got := len(m.visible); got != 2 {
		t.Fatalf("visible = %d, want 2 (stale session entry dropped)", got)
	}
}

func TestApplyLive_DrainsQueuedEntries(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	batch := testBatch(2)
	loadBatch(m, batch)

	after := batch[len(batch)-1].Timestamp
	m.liveCh <- sessionEntry{session: m.session, entry: testEntry("q1", after.Add(2*time.Second), "INFO", "build", "queued")}
	m.liveCh <- sessionEntry{session: m.session + 1, entry: testEntry("q2", after.Add(3*time.Second), "INFO", "build", "stale queued")}

	m.applyLive(liveEntryMsg{session: m.session, entry: testEntry("first", after.Add(time.Second), "INFO", "build", "direct")})

	if got := len(m.visible); got != 4 {
		t.Fatalf("visible = %d, want 4 (batch 2 + direct + one queued)", got)
	}
}

func TestApplyFilter_ProjectsAndBumpsGeneration(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	base := time.Now().Add(-20 * time.Minute)
	loadBatch(m, []model.LogEntry{
		testEntry("1", base, "INFO", "build", "compile ok"),
		testEntry("2", base.Add(time.Second), "ERROR", "build", "link failed"),
		testEntry("3", base.Add(2*time.Second), "INFO", "deploy", "upload ok"),
	})

	gen := m.viewGen
	m.filterRegex = regexp.MustCompile("failed")
	m.filterDirty = true
	m.rebuild()

	if got := len(m.visible); got != 1 {
		t.Fatalf("visible = %d, want 1", got)
	}
	if m.visible[0].ID != "2" {
		t.Errorf("visible entry = %q, want 2", m.visible[0].ID)
	}
	if m.viewGen != gen+1 {
		t.Errorf("view generation = %d, want %d", m.viewGen, gen+1)
	}

	// Dropping the filter restores the full projection under a fresh
	// generation.
	m.filterRegex = nil
	m.filterDirty = true
	m.rebuild()
	if got := len(m.visible); got != 3 {
		t.Fatalf("visible after clear = %d, want 3", got)
	}
}

func TestApplyFilter_MatchesTaskAndAttributes(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	base := time.Now().Add(-20 * time.Minute)
	entry := testEntry("1", base, "INFO", "ingest", "plain message")
	entry.Attributes = map[string]string{"region": "eu-west"}
	loadBatch(m, []model.LogEntry{entry})

	for _, pattern := range []string{"ingest", "eu-west", "region"} {
		m.filterRegex = regexp.MustCompile(pattern)
		m.filterDirty = true
		m.rebuild()
		if got := len(m.visible); got != 1 {
			t.Errorf("pattern %q: visible = %d, want 1", pattern, got)
		}
	}
}

func TestFeedPatterns_ResetsOnNewBatch(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)
	loadBatch(m, testBatch(3))

	if m.patternsSeen != 3 {
		t.Fatalf("patterns seen = %d, want 3", m.patternsSeen)
	}
	firstGen := m.patternsGen

	loadBatch(m, testBatch(5))
	if m.patternsSeen != 5 {
		t.Fatalf("patterns seen after reset = %d, want 5", m.patternsSeen)
	}
	if m.patternsGen == firstGen {
		t.Error("pattern generation should track the feed reset")
	}
}

func TestStartStream_StaysDownWhenHistorical(t *testing.T) {
	t.Parallel()
	m := newTestDashboard(t)

	end := time.Now().Add(-time.Hour)
	m.ranges.Propose(end.Add(-time.Hour), end)
	if !m.ranges.Apply() {
		t.Fatal("closed range should apply")
	}
	m.ranges.TakeDirty()

	loadBatch(m, testBatch(2))
	if m.session != 0 {
		t.Fatalf("session = %d, want 0 (no stream for a closed range)", m.session)
	}
	if m.recon != nil {
		t.Error("reconnector should be torn down for historical views")
	}
}

func TestLastTimestamp(t *testing.T) {
	t.Parallel()
	if !lastTimestamp(nil).IsZero() {
		t.Error("empty slice should yield the zero time")
	}
	base := time.Now()
	entries := []model.LogEntry{
		testEntry("1", base.Add(time.Second), "INFO", "", ""),
		testEntry("2", base.Add(3*time.Second), "INFO", "", ""),
		testEntry("3", base.Add(2*time.Second), "INFO", "", ""),
	}
	if got := lastTimestamp(entries); !got.Equal(base.Add(3 * time.Second)) {
		t.Errorf("last timestamp = %v, want %v", got, base.Add(3*time.Second))
	}
}
