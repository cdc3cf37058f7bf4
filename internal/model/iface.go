package model

import (
	"context"
	"time"
)

// Query holds the filters for one historical fetch or live subscription.
// Zero Start/End mean an open bound on that side.
type Query struct {
	Start  time.Time
	End    time.Time
	Task   string   // empty = all tasks
	Levels []string // empty = all levels
	Limit  int      // 0 = server default
}

// LogQuerier provides read-only queries on stored log data.
type LogQuerier interface {
	QueryRange(q Query) ([]LogEntry, error)
	ListTasks() ([]string, error)
	CountsByLevel(q Query) ([]LevelCount, error)
	TaskStats(limit int) ([]TaskStat, error)
	TotalLogCount() (int64, error)
}

// LogWriter provides append-oriented write operations for processed logs.
type LogWriter interface {
	InsertLogBatch(entries []*LogEntry) error
}

// ReadAPI is the unified read contract for the HTTP surface.
type ReadAPI interface {
	LogQuerier
}

// HistoryFetcher returns one consistent batch of entries for a query.
// Implementations must be safe for concurrent use.
type HistoryFetcher interface {
	FetchRange(ctx context.Context, q Query) ([]LogEntry, error)
}

// LiveSource delivers entries as they arrive. Subscribe blocks until the
// subscription ends and reports why: ctx.Err() after cancellation, an
// error for a dropped connection. connected fires once the subscription
// is established, before the first push; either callback may be nil.
// Query.Start acts as the resume cursor.
type LiveSource interface {
	Subscribe(ctx context.Context, q Query, connected func(), push func(LogEntry)) error
}

// Clock abstracts wall time so range validation and presets stay testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
