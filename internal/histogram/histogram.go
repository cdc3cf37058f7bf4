// Package histogram buckets the log timeline over the display range
// for the chart panel. Counting is per severity level; buckets also
// carry whether they sit inside the committed effective range, which
// the chart uses for dimming only.
package histogram

import (
	"time"

	"github.com/tasklight/tasklight/internal/model"
)

// DefaultBuckets matches the chart panel's usual width budget.
const DefaultBuckets = 60

// Options selects the bucketing window. Zero EffectiveStart or
// EffectiveEnd mean an open bound on that side.
type Options struct {
	NumBuckets     int
	DisplayStart   time.Time
	DisplayEnd     time.Time
	EffectiveStart time.Time
	EffectiveEnd   time.Time
}

// Bucket is one time slot of the chart.
type Bucket struct {
	Start            time.Time
	CountsByLevel    map[string]int
	Total            int
	InEffectiveRange bool
}

// Compute buckets entries across [DisplayStart, DisplayEnd). An entry
// stamped exactly at DisplayEnd lands in the last bucket; anything
// else outside the window is excluded. Returns nil when the window or
// bucket count is degenerate.
func Compute(entries []model.LogEntry, opts Options) []Bucket {
	if opts.NumBuckets <= 0 || !opts.DisplayEnd.After(opts.DisplayStart) {
		return nil
	}
	width := opts.DisplayEnd.Sub(opts.DisplayStart) / time.Duration(opts.NumBuckets)
	if width <= 0 {
		return nil
	}

	buckets := make([]Bucket, opts.NumBuckets)
	for i := range buckets {
		start := opts.DisplayStart.Add(time.Duration(i) * width)
		buckets[i] = Bucket{
			Start:            start,
			CountsByLevel:    make(map[string]int),
			InEffectiveRange: inEffective(start, start.Add(width), opts),
		}
	}

	for _, e := range entries {
		if e.Timestamp.Before(opts.DisplayStart) || e.Timestamp.After(opts.DisplayEnd) {
			continue
		}
		idx := int(e.Timestamp.Sub(opts.DisplayStart) / width)
		if idx >= opts.NumBuckets {
			idx = opts.NumBuckets - 1
		}
		buckets[idx].CountsByLevel[e.Level]++
		buckets[idx].Total++
	}
	return buckets
}

// inEffective reports whether the whole bucket span lies inside the
// closed effective interval, open bounds reading as infinite.
func inEffective(start, end time.Time, opts Options) bool {
	if !opts.EffectiveStart.IsZero() && start.Before(opts.EffectiveStart) {
		return false
	}
	if !opts.EffectiveEnd.IsZero() && end.After(opts.EffectiveEnd) {
		return false
	}
	return true
}

// MaxTotal returns the largest bucket total, used to scale bar heights.
func MaxTotal(buckets []Bucket) int {
	max := 0
	for _, b := range buckets {
		if b.Total > max {
			max = b.Total
		}
	}
	return max
}
