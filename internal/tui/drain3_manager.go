package tui

import (
	"context"
	"sort"
	"strings"

	"github.com/jaeyo/go-drain3/pkg/drain3"
)

// newTemplateMiner builds a miner with the library's default drain
// settings and in-memory persistence. NewDrain cannot fail with the
// default options, so the error is discarded.
func newTemplateMiner() *drain3.TemplateMiner {
	drain, _ := drain3.NewDrain()
	return drain3.NewTemplateMiner(drain, drain3.NewMemoryPersistence())
}

// LogPattern is one mined message template with its share of the feed.
type LogPattern struct {
	Template   string
	Count      int
	Percentage float64
}

// Drain3Manager wraps the drain3 template miner with the aggregate
// counts the patterns views need. Not safe for concurrent use; the
// update loop owns it.
type Drain3Manager struct {
	miner     *drain3.TemplateMiner
	counts    map[int64]int
	templates map[int64]string
	totalLogs int
}

func NewDrain3Manager() *Drain3Manager {
	return &Drain3Manager{
		miner:     newTemplateMiner(),
		counts:    make(map[int64]int),
		templates: make(map[int64]string),
	}
}

// AddLogMessage feeds one message into the miner. Blank messages are
// skipped so heartbeat noise cannot form patterns.
func (d *Drain3Manager) AddLogMessage(message string) {
	if strings.TrimSpace(message) == "" {
		return
	}
	_, cluster, template, _, err := d.miner.AddLogMessage(context.Background(), message)
	if err != nil || cluster == nil {
		return
	}
	id := cluster.ClusterId
	d.counts[id]++
	d.templates[id] = template
	d.totalLogs++
}

// GetTopPatterns returns up to limit patterns by descending count.
func (d *Drain3Manager) GetTopPatterns(limit int) []LogPattern {
	if limit <= 0 || d.totalLogs == 0 {
		return nil
	}
	patterns := make([]LogPattern, 0, len(d.counts))
	for id, count := range d.counts {
		patterns = append(patterns, LogPattern{
			Template:   d.templates[id],
			Count:      count,
			Percentage: float64(count) / float64(d.totalLogs) * 100,
		})
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].Template < patterns[j].Template
	})
	if len(patterns) > limit {
		patterns = patterns[:limit]
	}
	return patterns
}

// GetStats reports the number of distinct patterns and mined messages.
func (d *Drain3Manager) GetStats() (patterns, totalLogs int) {
	return len(d.counts), d.totalLogs
}

// Reset discards all mined state.
func (d *Drain3Manager) Reset() {
	d.miner = newTemplateMiner()
	d.counts = make(map[int64]int)
	d.templates = make(map[int64]string)
	d.totalLogs = 0
}
