package duckdb

import (
	"testing"
	"time"
)

func TestRetentionCleaner_StopIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	cleaner := NewRetentionCleaner(store, RetentionConfig{RetentionDays: 1})
	if cleaner == nil {
		t.Fatal("expected non-nil retention cleaner")
	}

	cleaner.Stop()
	cleaner.Stop()
}

func TestRetentionCleaner_DisabledWhenZeroDays(t *testing.T) {
	store := openTestStore(t)
	if cleaner := NewRetentionCleaner(store, RetentionConfig{RetentionDays: 0}); cleaner != nil {
		cleaner.Stop()
		t.Fatal("expected nil cleaner when retention is disabled")
	}
}

func TestRetentionCleaner_StartupSweep(t *testing.T) {
	store := openTestStore(t)

	insertTestEntries(t, store, []*LogEntry{
		{Timestamp: time.Now().Add(-72 * time.Hour), Level: "INFO", Message: "ancient"},
		{Timestamp: time.Now(), Level: "INFO", Message: "fresh"},
	})

	// Construction runs an immediate sweep.
	cleaner := NewRetentionCleaner(store, RetentionConfig{RetentionDays: 1})
	if cleaner == nil {
		t.Fatal("expected non-nil retention cleaner")
	}
	t.Cleanup(cleaner.Stop)

	count, err := store.TotalLogCount()
	if err != nil {
		t.Fatalf("TotalLogCount: %v", err)
	}
	if count != 1 {
		t.Errorf("after startup sweep, TotalLogCount = %d, want 1", count)
	}
}
