// Package selection implements terminal-style contiguous selection
// over the log timeline: a press anchors, a drag or shift-click moves
// the focus, and the normalized inclusive span between them is the
// selection. Selections are tagged with the feed generation they were
// made against; after a feed reset the stale tag makes the selection
// vanish without an explicit clear.
package selection

import (
	"strings"

	"github.com/tasklight/tasklight/internal/model"
)

// Range is a selection over entry indices in the combined sequence,
// not over flat list rows. Anchor is where the gesture started; Focus
// follows the pointer and may precede the anchor.
type Range struct {
	Anchor int
	Focus  int
	Epoch  uint64
}

// Bounds returns the normalized inclusive index span.
func (r Range) Bounds() (lo, hi int) {
	if r.Anchor <= r.Focus {
		return r.Anchor, r.Focus
	}
	return r.Focus, r.Anchor
}

// Model tracks at most one selection. Not safe for concurrent use.
type Model struct {
	r      Range
	active bool
}

func NewModel() *Model {
	return &Model{}
}

// PointerDown starts a new selection at index under generation gen.
func (m *Model) PointerDown(index int, gen uint64) {
	if index < 0 {
		return
	}
	m.r = Range{Anchor: index, Focus: index, Epoch: gen}
	m.active = true
}

// DragTo moves the focus while a same-generation anchor is active.
func (m *Model) DragTo(index int, gen uint64) {
	if index < 0 || !m.active || m.r.Epoch != gen {
		return
	}
	m.r.Focus = index
}

// ShiftClick extends a same-generation selection to index, keeping the
// anchor. Without one it starts a new selection there.
func (m *Model) ShiftClick(index int, gen uint64) {
	if index < 0 {
		return
	}
	if m.active && m.r.Epoch == gen {
		m.r.Focus = index
		return
	}
	m.PointerDown(index, gen)
}

// Current returns the selection when one exists for generation gen.
// A stale epoch reads as absent.
func (m *Model) Current(gen uint64) (Range, bool) {
	if !m.active || m.r.Epoch != gen {
		return Range{}, false
	}
	return m.r, true
}

// Contains reports whether entry index i is inside the current
// selection for generation gen.
func (m *Model) Contains(i int, gen uint64) bool {
	r, ok := m.Current(gen)
	if !ok {
		return false
	}
	lo, hi := r.Bounds()
	return i >= lo && i <= hi
}

// Clear drops the selection.
func (m *Model) Clear() {
	m.r = Range{}
	m.active = false
}

// CopyText joins the selected entries' messages with newlines. It
// returns false when the selection is absent or lies wholly past the
// end of entries; bounds are clamped to the sequence.
func (m *Model) CopyText(entries []model.LogEntry, gen uint64) (string, bool) {
	r, ok := m.Current(gen)
	if !ok {
		return "", false
	}
	lo, hi := r.Bounds()
	if lo >= len(entries) {
		return "", false
	}
	if hi >= len(entries) {
		hi = len(entries) - 1
	}
	var b strings.Builder
	for i := lo; i <= hi; i++ {
		if i > lo {
			b.WriteByte('\n')
		}
		b.WriteString(entries[i].Message)
	}
	return b.String(), true
}
