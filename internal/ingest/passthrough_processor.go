package ingest

import (
	"github.com/google/uuid"

	"github.com/tasklight/tasklight/internal/model"
)

// PassthroughProcessor stores every line as a plain-text fallback entry,
// skipping JSON and OTEL parsing entirely. For inputs known to be plain
// text it trades structure for ingest throughput. Like Processor, it is
// not safe for concurrent use.
type PassthroughProcessor struct {
	sink       EntrySink
	sourceName string
}

// NewPassthroughProcessor creates a processor feeding sink.
func NewPassthroughProcessor(sink EntrySink, sourceName string) *PassthroughProcessor {
	return &PassthroughProcessor{sink: sink, sourceName: sourceName}
}

func (p *PassthroughProcessor) Name() string { return ProcessorModePassthrough }

// SetSourceName changes the label applied to untagged lines.
func (p *PassthroughProcessor) SetSourceName(name string) {
	p.sourceName = name
}

// ProcessLine wraps an untagged line in an envelope and processes it.
func (p *PassthroughProcessor) ProcessLine(line string) *ProcessResult {
	return p.ProcessEnvelope(model.IngestEnvelope{Line: line})
}

// ProcessEnvelope turns one line into one entry and hands it to the sink.
func (p *PassthroughProcessor) ProcessEnvelope(env model.IngestEnvelope) *ProcessResult {
	if env.Line == "" {
		return nil
	}

	entry := FallbackEntry(env.Line)
	entry.ID = uuid.NewString()
	entry.Source = env.Source
	if entry.Source == "" {
		entry.Source = p.sourceName
	}

	if p.sink != nil {
		p.sink.Add(entry)
	}
	return &ProcessResult{Entries: []*model.LogEntry{entry}}
}
