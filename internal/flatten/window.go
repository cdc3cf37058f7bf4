package flatten

import "sort"

// Row heights are fixed per item kind and never measured.
const (
	DefaultEntryRows     = 1
	DefaultSeparatorRows = 1
)

// Sizer reports the fixed height in terminal rows for an item.
type Sizer struct {
	EntryRows     int
	SeparatorRows int
}

func DefaultSizer() Sizer {
	return Sizer{EntryRows: DefaultEntryRows, SeparatorRows: DefaultSeparatorRows}
}

// EstimateSize returns the row height for the item at index i.
func (s Sizer) EstimateSize(items []Item, i int) int {
	if items[i].Kind == KindSeparator {
		return s.SeparatorRows
	}
	return s.EntryRows
}

// Window is a virtualization host over a flat item list: it caches a
// prefix-sum offset table keyed by flat index and answers which items
// fall inside a scroll viewport. It satisfies Invalidator, so wiring
// it into a Flattener drops the cache exactly when a rebuild occurs.
// Append-only growth extends the table in place.
type Window struct {
	sizer   Sizer
	offsets []int // offsets[i] = rows above item i; len(offsets) = items+1
	valid   bool
}

func NewWindow(s Sizer) *Window {
	return &Window{sizer: s}
}

// InvalidateMeasurements drops the cached offsets. Positions are
// recomputed lazily on the next query.
func (w *Window) InvalidateMeasurements() {
	w.offsets = w.offsets[:0]
	w.valid = false
}

func (w *Window) ensure(items []Item) {
	want := len(items) + 1
	if w.valid && len(w.offsets) == want {
		return
	}
	if !w.valid || len(w.offsets) > want || len(w.offsets) == 0 {
		w.offsets = append(w.offsets[:0], 0)
	}
	for i := len(w.offsets) - 1; i < len(items); i++ {
		w.offsets = append(w.offsets, w.offsets[i]+w.sizer.EstimateSize(items, i))
	}
	w.valid = true
}

// TotalRows is the full scroll height of the list.
func (w *Window) TotalRows(items []Item) int {
	w.ensure(items)
	return w.offsets[len(items)]
}

// OffsetOf returns the first row occupied by item i.
func (w *Window) OffsetOf(items []Item, i int) int {
	w.ensure(items)
	return w.offsets[i]
}

// VisibleRange returns the inclusive index span of items intersecting
// the viewport [scrollTop, scrollTop+viewportRows). An empty list or
// empty intersection yields first = 0, last = -1.
func (w *Window) VisibleRange(items []Item, scrollTop, viewportRows int) (first, last int) {
	if len(items) == 0 || viewportRows <= 0 {
		return 0, -1
	}
	w.ensure(items)
	if scrollTop < 0 {
		scrollTop = 0
	}
	bottom := scrollTop + viewportRows

	// First item whose end extends past scrollTop.
	first = sort.Search(len(items), func(i int) bool {
		return w.offsets[i+1] > scrollTop
	})
	if first == len(items) {
		return 0, -1
	}
	// First item starting at or past the viewport bottom, minus one.
	last = sort.Search(len(items), func(i int) bool {
		return w.offsets[i] >= bottom
	}) - 1
	if last < first {
		return 0, -1
	}
	return first, last
}
