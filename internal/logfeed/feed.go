// Package logfeed reconciles a one-shot historical batch with entries
// arriving on a live subscription into one ordered, de-duplicated
// sequence. Downstream consumers (flattening, selection, histogram)
// read immutable snapshots of that sequence and key their derived
// state off the feed's reset generation.
package logfeed

import (
	"time"

	"github.com/tasklight/tasklight/internal/model"
)

// batchKey identifies a batch structurally. A refetch that returns the
// same rows keeps the key stable, so decoding a fresh slice from the
// wire does not count as a reset.
type batchKey struct {
	length  int
	firstID string
	lastID  string
}

func keyOf(batch []model.LogEntry) batchKey {
	k := batchKey{length: len(batch)}
	if len(batch) > 0 {
		k.firstID = batch[0].ID
		k.lastID = batch[len(batch)-1].ID
	}
	return k
}

// Feed merges batch and live entries. Not safe for concurrent use; the
// owner serializes calls (the TUI update loop is the single writer).
type Feed struct {
	combined   []model.LogEntry
	batchKey   batchKey
	batchMaxTS time.Time
	liveSeen   int
	generation uint64
	seeded     bool
}

func NewFeed() *Feed {
	return &Feed{}
}

// Merge folds batch and live into the combined sequence and returns a
// snapshot of it.
//
// A batch with a new identity resets the feed: the combined sequence
// becomes the batch alone, accumulated live entries are dropped, and
// the generation increments. Otherwise only the not-yet-consumed tail
// of live is considered, and of that tail only entries stamped
// strictly after the batch's maximum timestamp are appended, in
// arrival order. Entries at or before the batch tail are dropped even
// when genuinely new; the live stream redelivers everything a refetch
// already covers, and the timestamp cutoff is what keeps those from
// double-counting.
//
// Returned slices are immutable snapshots: later merges never alter a
// previously returned slice's visible contents.
func (f *Feed) Merge(batch, live []model.LogEntry) []model.LogEntry {
	if key := keyOf(batch); !f.seeded || key != f.batchKey {
		f.reset(batch, key)
		return f.snapshot()
	}

	start := f.liveSeen
	if start > len(live) {
		// The caller replaced its live accumulation without a batch
		// change. Consume the new slice from the top; the timestamp
		// cutoff still guards against re-appends.
		start = 0
	}
	for _, e := range live[start:] {
		if e.Timestamp.After(f.batchMaxTS) {
			f.combined = append(f.combined, e)
		}
	}
	f.liveSeen = len(live)
	return f.snapshot()
}

func (f *Feed) reset(batch []model.LogEntry, key batchKey) {
	f.combined = make([]model.LogEntry, len(batch))
	copy(f.combined, batch)
	f.batchKey = key
	f.batchMaxTS = maxTimestamp(batch)
	f.liveSeen = 0
	f.generation++
	f.seeded = true
}

// snapshot caps the returned slice at its length so callers appending
// to it cannot write into the feed's backing array.
func (f *Feed) snapshot() []model.LogEntry {
	n := len(f.combined)
	return f.combined[:n:n]
}

// Entries returns the current combined sequence without merging.
func (f *Feed) Entries() []model.LogEntry {
	return f.snapshot()
}

func (f *Feed) Len() int {
	return len(f.combined)
}

// Generation is the reset epoch. It increments exactly once per batch
// replacement; selection epochs and flattener rebuild decisions compare
// against it.
func (f *Feed) Generation() uint64 {
	return f.generation
}

func maxTimestamp(entries []model.LogEntry) time.Time {
	var max time.Time
	for _, e := range entries {
		if e.Timestamp.After(max) {
			max = e.Timestamp
		}
	}
	return max
}
