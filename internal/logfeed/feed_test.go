package logfeed

import (
	"testing"
	"time"

	"github.com/tasklight/tasklight/internal/model"
)

func entry(id string, ts time.Time) model.LogEntry {
	return model.LogEntry{ID: id, Timestamp: ts, Message: "msg-" + id}
}

func ids(entries []model.LogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func equalIDs(got []model.LogEntry, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i, e := range got {
		if e.ID != want[i] {
			return false
		}
	}
	return true
}

func TestMergeFirstBatch(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := []model.LogEntry{entry("e1", base), entry("e2", base.Add(time.Minute))}

	f := NewFeed()
	got := f.Merge(batch, nil)
	if !equalIDs(got, []string{"e1", "e2"}) {
		t.Fatalf("combined = %v, want [e1 e2]", ids(got))
	}
	if f.Generation() != 1 {
		t.Fatalf("generation = %d, want 1", f.Generation())
	}
}

func TestMergeDropsLiveDuplicates(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := []model.LogEntry{entry("e1", base), entry("e2", base.Add(time.Minute))}
	live := []model.LogEntry{
		entry("e2", base.Add(time.Minute)),     // redelivered by the stream
		entry("e3", base.Add(2 * time.Minute)), // genuinely new
	}

	f := NewFeed()
	f.Merge(batch, nil)
	got := f.Merge(batch, live)
	if !equalIDs(got, []string{"e1", "e2", "e3"}) {
		t.Fatalf("combined = %v, want [e1 e2 e3]", ids(got))
	}
}

func TestMergeIdempotent(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := []model.LogEntry{entry("e1", base)}
	live := []model.LogEntry{entry("e2", base.Add(time.Second))}

	f := NewFeed()
	f.Merge(batch, nil)
	first := f.Merge(batch, live)
	second := f.Merge(batch, live)
	if len(second) != len(first) {
		t.Fatalf("repeat merge length = %d, want %d", len(second), len(first))
	}
}

func TestMergeAppendsInArrivalOrder(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := []model.LogEntry{entry("e1", base)}
	// Out of order by timestamp but both past the batch tail; arrival
	// order wins.
	live := []model.LogEntry{
		entry("e3", base.Add(3 * time.Second)),
		entry("e2", base.Add(2 * time.Second)),
	}

	f := NewFeed()
	f.Merge(batch, nil)
	got := f.Merge(batch, live)
	if !equalIDs(got, []string{"e1", "e3", "e2"}) {
		t.Fatalf("combined = %v, want [e1 e3 e2]", ids(got))
	}
}

func TestMergeBatchReplacementResets(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := []model.LogEntry{entry("e1", base)}
	live := []model.LogEntry{entry("e2", base.Add(time.Second))}

	f := NewFeed()
	f.Merge(batch, nil)
	f.Merge(batch, live)

	refetched := []model.LogEntry{entry("e1", base), entry("e2", base.Add(time.Second))}
	got := f.Merge(refetched, live)
	if !equalIDs(got, []string{"e1", "e2"}) {
		t.Fatalf("after reset combined = %v, want [e1 e2]", ids(got))
	}
	if f.Generation() != 2 {
		t.Fatalf("generation = %d, want 2", f.Generation())
	}

	// The replay of the old live slice against the new batch must not
	// re-append e2: it is no longer past the batch tail.
	got = f.Merge(refetched, live)
	if len(got) != 2 {
		t.Fatalf("post-reset merge length = %d, want 2", len(got))
	}
}

func TestMergeSameContentRefetchKeepsGeneration(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := []model.LogEntry{entry("e1", base), entry("e2", base.Add(time.Second))}

	f := NewFeed()
	f.Merge(batch, nil)
	gen := f.Generation()

	// A refetch decodes into a brand new slice with the same rows.
	clone := make([]model.LogEntry, len(batch))
	copy(clone, batch)
	f.Merge(clone, nil)
	if f.Generation() != gen {
		t.Fatalf("generation = %d, want %d (identical refetch must not reset)", f.Generation(), gen)
	}
}

func TestMergeSnapshotsAreStable(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := []model.LogEntry{entry("e1", base)}

	f := NewFeed()
	snap := f.Merge(batch, nil)

	// Appending through an old snapshot must not leak into the feed,
	// and later merges must not alter the old snapshot.
	_ = append(snap, entry("rogue", base.Add(time.Hour)))
	got := f.Merge(batch, []model.LogEntry{entry("e2", base.Add(time.Second))})
	if !equalIDs(got, []string{"e1", "e2"}) {
		t.Fatalf("combined = %v, want [e1 e2]", ids(got))
	}
	if !equalIDs(snap, []string{"e1"}) {
		t.Fatalf("old snapshot = %v, want [e1]", ids(snap))
	}
}

func TestMergeLiveShrinkDoesNotPanic(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := []model.LogEntry{entry("e1", base)}

	f := NewFeed()
	f.Merge(batch, nil)
	f.Merge(batch, []model.LogEntry{
		entry("e2", base.Add(time.Second)),
		entry("e3", base.Add(2 * time.Second)),
	})

	got := f.Merge(batch, []model.LogEntry{entry("e4", base.Add(3 * time.Second))})
	if !equalIDs(got, []string{"e1", "e2", "e3", "e4"}) {
		t.Fatalf("combined = %v, want [e1 e2 e3 e4]", ids(got))
	}
}
