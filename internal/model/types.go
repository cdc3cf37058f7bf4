package model

import "time"

// LogEntry represents a single log line used across the system.
// It is the canonical type for storage, transport (HTTP/SSE), and display.
type LogEntry struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Level      string            `json:"level"` // DEBUG/INFO/WARN/ERROR, see logparse
	Message    string            `json:"message"`
	Task       string            `json:"task,omitempty"`    // task/workflow name, defaults to "default"
	Attempt    int               `json:"attempt,omitempty"` // retry attempt, 0 = first run
	Origin     string            `json:"origin,omitempty"`  // emitting step/container
	Attributes map[string]string `json:"attributes,omitempty"`
	RawLine    string            `json:"raw,omitempty"`
	Source     string            `json:"source,omitempty"` // "tcp", "stdin", "otlp"
}

// IngestEnvelope is one raw line on its way into the pipeline, tagged
// with the source that produced it ("tcp", "stdin").
type IngestEnvelope struct {
	Source string
	Line   string
}

// LevelCount represents aggregate counts for one severity level.
type LevelCount struct {
	Level string `json:"level"`
	Count int64  `json:"count"`
}

// TaskStat represents per-task aggregate counts and lifecycle bounds.
type TaskStat struct {
	Task   string    `json:"task"`
	Count  int64     `json:"count"`
	Errors int64     `json:"errors"`
	First  time.Time `json:"first"`
	Last   time.Time `json:"last"`
}
