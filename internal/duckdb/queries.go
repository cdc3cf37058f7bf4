package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

// timeoutCtx derives a context bounded by the store's query timeout.
func (s *Store) timeoutCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// rangeConditions builds WHERE fragments for the filters in q.
// Zero Start/End leave that bound open; the range is inclusive on both ends
// so a fetch for a display range returns every entry the caller can show.
func rangeConditions(q Query) (conditions []string, args []any) {
	if !q.Start.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, q.Start.UTC())
	}
	if !q.End.IsZero() {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, q.End.UTC())
	}
	if q.Task != "" {
		conditions = append(conditions, "task = ?")
		args = append(args, q.Task)
	}
	if len(q.Levels) > 0 {
		marks := make([]string, len(q.Levels))
		for i, lvl := range q.Levels {
			marks[i] = "?"
			args = append(args, lvl)
		}
		conditions = append(conditions, "level IN ("+strings.Join(marks, ", ")+")")
	}
	return conditions, args
}

// QueryRange returns entries matching q in ascending timestamp order.
// When more rows match than q.Limit, the most recent ones win so a bounded
// fetch still ends at the range's trailing edge. Ties on timestamp are
// broken by id to keep repeated fetches byte-stable.
func (s *Store) QueryRange(q Query) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.timeoutCtx()
	defer cancel()

	release, err := s.acquireQuerySlot(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultFetchLimit
	}

	conditions, args := rangeConditions(q)
	inner := "SELECT id, timestamp, level, message, task, attempt, origin, CAST(attributes AS VARCHAR), raw_line, source FROM logs"
	if len(conditions) > 0 {
		inner += " WHERE " + strings.Join(conditions, " AND ")
	}
	inner += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	// The inner DESC+LIMIT picks the newest rows; the outer SELECT
	// flips them back to chronological order.
	query := "SELECT * FROM (" + inner + ") ORDER BY timestamp ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []LogEntry
	for rows.Next() {
		var e LogEntry
		var attrsJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Level, &e.Message, &e.Task, &e.Attempt, &e.Origin, &attrsJSON, &e.RawLine, &e.Source); err != nil {
			log.Printf("duckdb scan error (QueryRange): %v", err)
			continue
		}
		if attrsJSON.Valid && attrsJSON.String != "" && attrsJSON.String != "{}" {
			e.Attributes = make(map[string]string)
			decodeAttrs(attrsJSON.String, e.Attributes)
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// ListTasks returns all distinct task names in ascending order.
func (s *Store) ListTasks() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.timeoutCtx()
	defer cancel()

	release, err := s.acquireQuerySlot(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT task FROM logs ORDER BY task`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []string
	for rows.Next() {
		var task string
		if err := rows.Scan(&task); err != nil {
			log.Printf("duckdb scan error (ListTasks): %v", err)
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CountsByLevel returns per-level totals for entries matching q,
// most frequent level first.
func (s *Store) CountsByLevel(q Query) ([]LevelCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.timeoutCtx()
	defer cancel()

	release, err := s.acquireQuerySlot(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	conditions, args := rangeConditions(q)
	query := "SELECT level, COUNT(*) AS count FROM logs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " GROUP BY level ORDER BY count DESC, level ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []LevelCount
	for rows.Next() {
		var lc LevelCount
		if err := rows.Scan(&lc.Level, &lc.Count); err != nil {
			log.Printf("duckdb scan error (CountsByLevel): %v", err)
			continue
		}
		results = append(results, lc)
	}
	return results, rows.Err()
}

// TaskStats returns per-task entry counts, error counts and lifecycle
// bounds, busiest task first.
func (s *Store) TaskStats(limit int) ([]TaskStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.timeoutCtx()
	defer cancel()

	release, err := s.acquireQuerySlot(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.db.QueryContext(ctx, `
		SELECT task,
			COUNT(*) AS count,
			SUM(CASE WHEN level IN ('ERROR', 'FATAL') THEN 1 ELSE 0 END) AS errors,
			MIN(timestamp) AS first,
			MAX(timestamp) AS last
		FROM logs
		GROUP BY task
		ORDER BY count DESC, task ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []TaskStat
	for rows.Next() {
		var ts TaskStat
		if err := rows.Scan(&ts.Task, &ts.Count, &ts.Errors, &ts.First, &ts.Last); err != nil {
			log.Printf("duckdb scan error (TaskStats): %v", err)
			continue
		}
		results = append(results, ts)
	}
	return results, rows.Err()
}

// TotalLogCount reports how many entries the logs table holds.
func (s *Store) TotalLogCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.timeoutCtx()
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM logs`).Scan(&count)
	return count, err
}

// TotalLogBytes sums the stored raw-line sizes, a rough measure of
// ingested volume.
func (s *Store) TotalLogBytes() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.timeoutCtx()
	defer cancel()

	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(length(raw_line)), 0) FROM logs`).Scan(&total)
	return total, err
}

// DeleteBefore removes entries older than cutoff and reports how many
// rows were deleted.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.timeoutCtx()
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM logs WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// decodeAttrs decodes a JSON object into dest, stringifying scalar
// values.
func decodeAttrs(src string, dest map[string]string) error {
	var raw map[string]any
	if err := json.Unmarshal([]byte(src), &raw); err != nil {
		return err
	}
	for k, v := range raw {
		dest[k] = fmt.Sprintf("%v", v)
	}
	return nil
}
