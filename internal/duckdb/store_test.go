package duckdb

import (
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func insertTestEntries(t *testing.T, store *Store, entries []*LogEntry) {
	t.Helper()
	if err := store.InsertLogBatch(entries); err != nil {
		t.Fatalf("InsertLogBatch: %v", err)
	}
}

func TestInsertLogBatch(t *testing.T) {
	store := openTestStore(t)

	entries := []*LogEntry{
		{Timestamp: time.Now(), Level: "INFO", Message: "step started", Task: "etl", Source: "stdin"},
		{Timestamp: time.Now(), Level: "ERROR", Message: "connection failed retry", Task: "etl", Attempt: 1, Source: "stdin"},
		{Timestamp: time.Now(), Level: "DEBUG", Message: "probe latency sample", Task: "etl", Source: "stdin"},
		{Timestamp: time.Now(), Level: "WARN", Message: "disk usage high warning", Source: "tcp",
			Attributes: map[string]string{"host": "api2", "zone": "eu-central"}},
	}

	insertTestEntries(t, store, entries)

	count, err := store.TotalLogCount()
	if err != nil {
		t.Fatalf("TotalLogCount: %v", err)
	}
	if count != 4 {
		t.Errorf("TotalLogCount = %d, want 4", count)
	}

	// Entries without an ID get one assigned on insert.
	got, err := store.QueryRange(Query{})
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	for i, e := range got {
		if e.ID == "" {
			t.Errorf("entry %d has empty id", i)
		}
	}

	// Attributes survive the JSON round trip.
	var warn *LogEntry
	for i := range got {
		if got[i].Level == "WARN" {
			warn = &got[i]
		}
	}
	if warn == nil {
		t.Fatal("WARN entry not returned")
	}
	if warn.Attributes["host"] != "api2" || warn.Attributes["zone"] != "eu-central" {
		t.Errorf("attributes = %v, want host=api2 zone=eu-central", warn.Attributes)
	}
}

func TestInsertLogBatch_DefaultTask(t *testing.T) {
	store := openTestStore(t)

	// Insert entry with empty Task: should default to "default"
	insertTestEntries(t, store, []*LogEntry{
		{Timestamp: time.Now(), Level: "INFO", Message: "no task set"},
	})

	tasks, err := store.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0] != "default" {
		t.Errorf("expected [default], got %v", tasks)
	}
}

func TestQueryRange_TimeBounds(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	insertTestEntries(t, store, []*LogEntry{
		{ID: "a", Timestamp: base, Level: "INFO", Message: "before"},
		{ID: "b", Timestamp: base.Add(1 * time.Minute), Level: "INFO", Message: "inside"},
		{ID: "c", Timestamp: base.Add(2 * time.Minute), Level: "INFO", Message: "edge"},
		{ID: "d", Timestamp: base.Add(3 * time.Minute), Level: "INFO", Message: "after"},
	})

	got, err := store.QueryRange(Query{
		Start: base.Add(1 * time.Minute),
		End:   base.Add(2 * time.Minute),
	})
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}

	// Both bounds are inclusive.
	if len(got) != 2 {
		t.Fatalf("QueryRange returned %d entries, want 2", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("ids = [%s %s], want [b c]", got[0].ID, got[1].ID)
	}
}

func TestQueryRange_AscendingOrder(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	// Insert out of order; results must come back ascending.
	insertTestEntries(t, store, []*LogEntry{
		{ID: "late", Timestamp: base.Add(2 * time.Minute), Level: "INFO", Message: "late"},
		{ID: "early", Timestamp: base, Level: "INFO", Message: "early"},
		{ID: "mid", Timestamp: base.Add(1 * time.Minute), Level: "INFO", Message: "mid"},
	})

	got, err := store.QueryRange(Query{})
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("QueryRange returned %d entries, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Errorf("entries out of order at %d: %v before %v", i, got[i].Timestamp, got[i-1].Timestamp)
		}
	}
	if got[0].ID != "early" || got[2].ID != "late" {
		t.Errorf("order = [%s %s %s], want early..late", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestQueryRange_LimitKeepsMostRecent(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	var entries []*LogEntry
	for i := 0; i < 10; i++ {
		entries = append(entries, &LogEntry{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Level:     "INFO",
			Message:   "tick",
		})
	}
	insertTestEntries(t, store, entries)

	got, err := store.QueryRange(Query{Limit: 3})
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("QueryRange returned %d entries, want 3", len(got))
	}
	// The newest three, still ascending.
	want := []time.Time{base.Add(7 * time.Second), base.Add(8 * time.Second), base.Add(9 * time.Second)}
	for i, w := range want {
		if !got[i].Timestamp.Equal(w) {
			t.Errorf("entry %d timestamp = %v, want %v", i, got[i].Timestamp, w)
		}
	}
}

func TestQueryRange_LevelFilter(t *testing.T) {
	store := openTestStore(t)

	now := time.Now()
	insertTestEntries(t, store, []*LogEntry{
		{Timestamp: now, Level: "INFO", Message: "ok"},
		{Timestamp: now, Level: "ERROR", Message: "boom"},
		{Timestamp: now, Level: "WARN", Message: "careful"},
		{Timestamp: now, Level: "ERROR", Message: "boom again"},
	})

	got, err := store.QueryRange(Query{Levels: []string{"ERROR", "WARN"}})
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("QueryRange returned %d entries, want 3", len(got))
	}
	for _, e := range got {
		if e.Level != "ERROR" && e.Level != "WARN" {
			t.Errorf("unexpected level %q in filtered result", e.Level)
		}
	}
}

func TestCountsByLevel(t *testing.T) {
	store := openTestStore(t)

	now := time.Now()
	insertTestEntries(t, store, []*LogEntry{
		{Timestamp: now, Level: "INFO", Message: "ok"},
		{Timestamp: now, Level: "INFO", Message: "ok"},
		{Timestamp: now, Level: "ERROR", Message: "fail"},
		{Timestamp: now, Level: "WARN", Message: "caution"},
	})

	counts, err := store.CountsByLevel(Query{})
	if err != nil {
		t.Fatalf("CountsByLevel: %v", err)
	}

	byLevel := make(map[string]int64)
	for _, lc := range counts {
		byLevel[lc.Level] = lc.Count
	}
	if byLevel["INFO"] != 2 {
		t.Errorf("INFO count = %d, want 2", byLevel["INFO"])
	}
	if byLevel["ERROR"] != 1 {
		t.Errorf("ERROR count = %d, want 1", byLevel["ERROR"])
	}
	if byLevel["WARN"] != 1 {
		t.Errorf("WARN count = %d, want 1", byLevel["WARN"])
	}
	// Most frequent first.
	if len(counts) == 0 || counts[0].Level != "INFO" {
		t.Errorf("first level = %v, want INFO", counts)
	}
}

func TestTaskStats(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	insertTestEntries(t, store, []*LogEntry{
		{Timestamp: base, Level: "INFO", Message: "start", Task: "etl"},
		{Timestamp: base.Add(1 * time.Minute), Level: "ERROR", Message: "fail", Task: "etl"},
		{Timestamp: base.Add(2 * time.Minute), Level: "INFO", Message: "done", Task: "etl"},
		{Timestamp: base.Add(30 * time.Second), Level: "INFO", Message: "only", Task: "report"},
	})

	stats, err := store.TaskStats(10)
	if err != nil {
		t.Fatalf("TaskStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("TaskStats returned %d tasks, want 2", len(stats))
	}

	// Busiest first.
	etl := stats[0]
	if etl.Task != "etl" {
		t.Fatalf("stats[0].Task = %q, want etl", etl.Task)
	}
	if etl.Count != 3 {
		t.Errorf("etl count = %d, want 3", etl.Count)
	}
	if etl.Errors != 1 {
		t.Errorf("etl errors = %d, want 1", etl.Errors)
	}
	if !etl.First.Equal(base) {
		t.Errorf("etl first = %v, want %v", etl.First, base)
	}
	if !etl.Last.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("etl last = %v, want %v", etl.Last, base.Add(2*time.Minute))
	}
}

func TestTotalLogCountEmptyStore(t *testing.T) {
	store := openTestStore(t)

	count, err := store.TotalLogCount()
	if err != nil {
		t.Fatalf("TotalLogCount: %v", err)
	}
	if count != 0 {
		t.Errorf("TotalLogCount on empty store = %d, want 0", count)
	}
}

func TestDeleteBefore(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	insertTestEntries(t, store, []*LogEntry{
		{Timestamp: base, Level: "INFO", Message: "old"},
		{Timestamp: base.Add(time.Hour), Level: "INFO", Message: "newer"},
		{Timestamp: base.Add(2 * time.Hour), Level: "INFO", Message: "newest"},
	})

	deleted, err := store.DeleteBefore(base.Add(90 * time.Minute))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteBefore deleted %d rows, want 2", deleted)
	}

	count, err := store.TotalLogCount()
	if err != nil {
		t.Fatalf("TotalLogCount: %v", err)
	}
	if count != 1 {
		t.Errorf("TotalLogCount after delete = %d, want 1", count)
	}
}

func TestSetMaxConcurrentQueries(t *testing.T) {
	store := openTestStore(t)
	store.SetMaxConcurrentQueries(2)

	insertTestEntries(t, store, []*LogEntry{
		{Timestamp: time.Now(), Level: "INFO", Message: "slot test"},
	})

	// Queries still succeed with a slot limit in place.
	for i := 0; i < 5; i++ {
		if _, err := store.QueryRange(Query{}); err != nil {
			t.Fatalf("QueryRange with slot limit: %v", err)
		}
	}
}
