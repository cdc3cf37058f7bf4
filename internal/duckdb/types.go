package duckdb

import "github.com/tasklight/tasklight/internal/model"

// The store speaks in model types. Aliasing them keeps Store method
// signatures short and spares callers that already import duckdb a
// second import for the common cases.
type (
	LogEntry   = model.LogEntry
	LevelCount = model.LevelCount
	TaskStat   = model.TaskStat
	Query      = model.Query
	LogQuerier = model.LogQuerier
	LogWriter  = model.LogWriter
	ReadAPI    = model.ReadAPI
)

const DefaultFetchLimit = model.DefaultFetchLimit
