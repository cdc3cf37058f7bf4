// Package flatten turns the combined log sequence into the flat item
// list the timeline renders: entry rows interleaved with one separator
// row per UTC calendar date. Appends extend the list in O(k); a feed
// reset rebuilds it in O(n) and invalidates the render host's cached
// measurements.
package flatten

import (
	"time"

	"github.com/tasklight/tasklight/internal/model"
)

// Kind tags a flat item.
type Kind int

const (
	KindEntry Kind = iota
	KindSeparator
)

// Item is one renderable row. For KindEntry, EntryIndex addresses the
// entry it renders. For KindSeparator, Date is the UTC midnight of the
// run it opens and EntryIndex addresses the run's first entry.
type Item struct {
	Kind       Kind
	EntryIndex int
	Date       time.Time
}

// Invalidator is the hook a measurement-caching render host exposes.
// The flattener calls it after every full rebuild; append-only growth
// leaves earlier indices untouched and needs no invalidation.
type Invalidator interface {
	InvalidateMeasurements()
}

// Flattener converts entry sequences to item lists incrementally. Not
// safe for concurrent use; the owner serializes calls.
type Flattener struct {
	items    []Item
	entryLen int
	lastKey  int
	gen      uint64
	seeded   bool
	inv      Invalidator
}

// NewFlattener returns a flattener reporting rebuilds to inv, which
// may be nil.
func NewFlattener(inv Invalidator) *Flattener {
	return &Flattener{inv: inv}
}

// Flatten returns the item list for entries tagged with the feed
// generation gen. When gen matches the previous call and entries only
// grew, the new suffix is appended in O(k); otherwise the whole list
// is rebuilt. Returned slices are immutable snapshots.
func (f *Flattener) Flatten(entries []model.LogEntry, gen uint64) []Item {
	switch {
	case !f.seeded || gen != f.gen || len(entries) < f.entryLen:
		f.rebuild(entries, gen)
	case len(entries) > f.entryLen:
		f.extend(entries)
	}
	n := len(f.items)
	return f.items[:n:n]
}

func (f *Flattener) rebuild(entries []model.LogEntry, gen uint64) {
	// Fresh backing array: prior snapshots keep viewing the old one.
	f.items = make([]Item, 0, len(entries)+len(entries)/64+1)
	f.lastKey = 0
	f.appendRange(entries, 0)
	f.entryLen = len(entries)
	f.gen = gen
	f.seeded = true
	if f.inv != nil {
		f.inv.InvalidateMeasurements()
	}
}

func (f *Flattener) extend(entries []model.LogEntry) {
	f.appendRange(entries, f.entryLen)
	f.entryLen = len(entries)
}

// appendRange walks entries[from:], emitting a separator each time the
// UTC date key changes. A suffix starting on the same date as the
// current tail continues the run without a separator.
func (f *Flattener) appendRange(entries []model.LogEntry, from int) {
	for i := from; i < len(entries); i++ {
		key := dateKeyOf(entries[i].Timestamp)
		if key != f.lastKey {
			f.items = append(f.items, Item{
				Kind:       KindSeparator,
				EntryIndex: i,
				Date:       dateOf(entries[i].Timestamp),
			})
			f.lastKey = key
		}
		f.items = append(f.items, Item{Kind: KindEntry, EntryIndex: i})
	}
}

// Generation reports the feed generation of the current item list.
func (f *Flattener) Generation() uint64 {
	return f.gen
}

func dateKeyOf(t time.Time) int {
	y, m, d := t.UTC().Date()
	return y*10000 + int(m)*100 + d
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
