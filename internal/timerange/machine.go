// Package timerange owns the timeline's three time windows: the
// committed effective range driving queries, the padded display range
// the chart shows, and the pending proposal accumulated during an
// interactive edit. Edits go through an explicit propose/apply/cancel
// protocol; committed changes are flagged so the owner knows to
// refetch.
package timerange

import (
	"time"

	"github.com/tasklight/tasklight/internal/model"
)

const (
	// MinRange is the shortest committable span.
	MinRange = time.Minute
	// FutureSlack is how far past "now" a proposed end may reach
	// before it is rejected.
	FutureSlack = time.Minute
	// PadRatio widens the display window on each side of the
	// effective range; MinPad keeps the padding visible on short
	// ranges.
	PadRatio = 0.10
	MinPad   = 30 * time.Second
	// DefaultSpan seeds the display window before anything is known
	// about the data.
	DefaultSpan = time.Hour
)

// State reports whether an edit is in progress.
type State int

const (
	StateCommitted State = iota
	StateEditing
)

// Machine is the range state machine. Zero time values mean an open
// bound throughout: an open effective end is live/follow mode. Not
// safe for concurrent use.
type Machine struct {
	clock model.Clock

	displayStart time.Time
	displayEnd   time.Time

	effStart time.Time
	effEnd   time.Time

	pendStart time.Time
	pendEnd   time.Time

	seedStart time.Time
	seedEnd   time.Time

	state State
	dirty bool
}

// NewMachine starts committed with both effective bounds open and a
// display window covering the last DefaultSpan.
func NewMachine(clock model.Clock) *Machine {
	if clock == nil {
		clock = model.SystemClock{}
	}
	m := &Machine{clock: clock}
	m.recomputeDisplay(m.effStart, m.effEnd)
	return m
}

// SeedLifecycle records the task's start/end instants. They resolve
// open bounds when computing the display window, so a task page opens
// framed on the task's life rather than the last hour.
func (m *Machine) SeedLifecycle(start, end time.Time) {
	m.seedStart = start
	m.seedEnd = end
	if m.state == StateCommitted {
		m.recomputeDisplay(m.effStart, m.effEnd)
	}
}

// Propose stages an edit and recomputes the display window around the
// proposal so the chart keeps visual context while the edit is live.
// Nothing is committed until Apply.
func (m *Machine) Propose(start, end time.Time) {
	m.pendStart = start
	m.pendEnd = end
	m.state = StateEditing
	m.recomputeDisplay(start, end)
}

// Apply validates the staged proposal and commits it. An invalid
// proposal is discarded exactly like Cancel. Reports whether a commit
// happened.
func (m *Machine) Apply() bool {
	if m.state != StateEditing {
		return false
	}
	start, end := m.pendStart, m.pendEnd
	if !validRange(start, end, m.clock.Now()) {
		m.Cancel()
		return false
	}
	changed := !start.Equal(m.effStart) || !end.Equal(m.effEnd)
	m.effStart = start
	m.effEnd = end
	m.clearPending()
	if changed {
		m.dirty = true
	}
	return true
}

// Cancel drops the staged proposal and restores the committed view.
func (m *Machine) Cancel() {
	if m.state != StateEditing {
		return
	}
	m.clearPending()
}

func (m *Machine) clearPending() {
	m.pendStart = time.Time{}
	m.pendEnd = time.Time{}
	m.state = StateCommitted
	m.recomputeDisplay(m.effStart, m.effEnd)
}

// validRange accepts open bounds on either or both sides. A fully
// bounded range must be ordered, span at least MinRange, and not end
// further than FutureSlack past now.
func validRange(start, end, now time.Time) bool {
	if start.IsZero() || end.IsZero() {
		return true
	}
	if !start.Before(end) {
		return false
	}
	if end.Sub(start) < MinRange {
		return false
	}
	if end.After(now.Add(FutureSlack)) {
		return false
	}
	return true
}

// resolve turns open bounds into concrete instants: an open end reads
// as now, an open start as the seeded lifecycle start or DefaultSpan
// before the end.
func (m *Machine) resolve(start, end time.Time) (time.Time, time.Time) {
	if end.IsZero() {
		if !m.seedEnd.IsZero() {
			end = m.seedEnd
		} else {
			end = m.clock.Now()
		}
	}
	if start.IsZero() {
		if !m.seedStart.IsZero() {
			start = m.seedStart
		} else {
			start = end.Add(-DefaultSpan)
		}
	}
	if !start.Before(end) {
		start = end.Add(-DefaultSpan)
	}
	return start, end
}

func (m *Machine) recomputeDisplay(start, end time.Time) {
	rs, re := m.resolve(start, end)
	pad := time.Duration(float64(re.Sub(rs)) * PadRatio)
	if pad < MinPad {
		pad = MinPad
	}
	m.displayStart = rs.Add(-pad)
	m.displayEnd = re.Add(pad)
}

// Display returns the padded chart window. It always contains the
// effective range.
func (m *Machine) Display() (start, end time.Time) {
	return m.displayStart, m.displayEnd
}

// Effective returns the committed bounds; zero values are open.
func (m *Machine) Effective() (start, end time.Time) {
	return m.effStart, m.effEnd
}

// Pending returns the staged proposal while editing.
func (m *Machine) Pending() (start, end time.Time, ok bool) {
	if m.state != StateEditing {
		return time.Time{}, time.Time{}, false
	}
	return m.pendStart, m.pendEnd, true
}

func (m *Machine) State() State {
	return m.state
}

// Live reports follow mode: an open effective end.
func (m *Machine) Live() bool {
	return m.effEnd.IsZero()
}

// TakeDirty reports whether a commit changed the effective range since
// the last call, clearing the flag.
func (m *Machine) TakeDirty() bool {
	d := m.dirty
	m.dirty = false
	return d
}
