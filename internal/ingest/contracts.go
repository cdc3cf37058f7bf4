package ingest

import (
	"fmt"

	"github.com/tasklight/tasklight/internal/model"
)

const (
	// ProcessorModeParse is the default mode: JSON, OTEL envelope, and
	// plain text aware.
	ProcessorModeParse = "parse"
	// ProcessorModePassthrough skips parsing and stores lines verbatim.
	ProcessorModePassthrough = "passthrough"
)

// EntrySink receives parsed entries for storage or fan-out.
type EntrySink interface {
	Add(entry *model.LogEntry)
}

// EntrySinkFunc adapts a function to the EntrySink interface.
type EntrySinkFunc func(entry *model.LogEntry)

func (f EntrySinkFunc) Add(entry *model.LogEntry) { f(entry) }

// MultiSink fans entries out to several sinks in order.
type MultiSink []EntrySink

func (m MultiSink) Add(entry *model.LogEntry) {
	for _, s := range m {
		s.Add(entry)
	}
}

// EnvelopeProcessor consumes source-tagged ingest lines and emits canonical entries.
type EnvelopeProcessor interface {
	Name() string
	ProcessEnvelope(model.IngestEnvelope) *ProcessResult
}

// NewEnvelopeProcessor builds the processor for the given mode. An empty
// mode selects ProcessorModeParse.
func NewEnvelopeProcessor(mode string, sink EntrySink, sourceName string) (EnvelopeProcessor, error) {
	switch mode {
	case "", ProcessorModeParse:
		return NewProcessor(sink, sourceName), nil
	case ProcessorModePassthrough:
		return NewPassthroughProcessor(sink, sourceName), nil
	default:
		return nil, fmt.Errorf("ingest: unknown processor mode %q", mode)
	}
}
