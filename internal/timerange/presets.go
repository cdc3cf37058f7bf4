package timerange

import "time"

// Preset is a canned effective range keyed off the current instant.
// All presets leave the end open, so selecting one lands in live mode.
type Preset int

const (
	PresetLast15m Preset = iota
	PresetLast1h
	PresetLast6h
	PresetLast24h
	PresetAll
)

var presetSpans = map[Preset]time.Duration{
	PresetLast15m: 15 * time.Minute,
	PresetLast1h:  time.Hour,
	PresetLast6h:  6 * time.Hour,
	PresetLast24h: 24 * time.Hour,
}

func (p Preset) String() string {
	switch p {
	case PresetLast15m:
		return "15m"
	case PresetLast1h:
		return "1h"
	case PresetLast6h:
		return "6h"
	case PresetLast24h:
		return "24h"
	case PresetAll:
		return "all"
	}
	return "?"
}

// ApplyPreset computes the preset's bounds and commits them through
// the normal propose/apply path, with no pending phase left behind.
func (m *Machine) ApplyPreset(p Preset) bool {
	var start time.Time
	if span, ok := presetSpans[p]; ok {
		start = m.clock.Now().Add(-span)
	}
	m.Propose(start, time.Time{})
	return m.Apply()
}

// Pan shifts the effective range by frac of its span, negative being
// back in time. The end is clamped to now; open bounds resolve first,
// so panning away from the live edge commits a closed range.
func (m *Machine) Pan(frac float64) bool {
	start, end := m.resolve(m.effStart, m.effEnd)
	span := end.Sub(start)
	shift := time.Duration(float64(span) * frac)
	if shift == 0 {
		return false
	}
	start, end = start.Add(shift), end.Add(shift)
	if now := m.clock.Now(); end.After(now) {
		over := end.Sub(now)
		start, end = start.Add(-over), end.Add(-over)
	}
	m.Propose(start, end)
	return m.Apply()
}

// Zoom scales the effective span around its center, factor > 1 zooming
// out. The span never shrinks below MinRange, and the end is clamped
// to now.
func (m *Machine) Zoom(factor float64) bool {
	if factor <= 0 {
		return false
	}
	start, end := m.resolve(m.effStart, m.effEnd)
	span := end.Sub(start)
	newSpan := time.Duration(float64(span) * factor)
	if newSpan < MinRange {
		newSpan = MinRange
	}
	center := start.Add(span / 2)
	start = center.Add(-newSpan / 2)
	end = center.Add(newSpan / 2)
	if now := m.clock.Now(); end.After(now) {
		over := end.Sub(now)
		start, end = start.Add(-over), end.Add(-over)
	}
	m.Propose(start, end)
	return m.Apply()
}
