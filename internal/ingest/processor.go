package ingest

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tasklight/tasklight/internal/model"
)

// Processor parses ingest lines into canonical entries and hands them to a
// sink. It is not safe for concurrent use; the source multiplexer funnels
// all lines through a single goroutine.
type Processor struct {
	sink       EntrySink
	sourceName string
	assembler  jsonAssembler
}

// NewProcessor creates a parsing processor.
func NewProcessor(sink EntrySink, sourceName string) *Processor {
	return &Processor{
		sink:       sink,
		sourceName: sourceName,
	}
}

func (p *Processor) Name() string { return ProcessorModeParse }

// ProcessResult holds the entries produced from one ingest line. An OTEL
// envelope line can produce several.
type ProcessResult struct {
	Entries []*model.LogEntry
}

// First returns the first produced entry, or nil.
func (r *ProcessResult) First() *model.LogEntry {
	if r == nil || len(r.Entries) == 0 {
		return nil
	}
	return r.Entries[0]
}

// ProcessLine ingests a bare line, attributing it to the configured source.
func (p *Processor) ProcessLine(line string) *ProcessResult {
	return p.ProcessEnvelope(model.IngestEnvelope{Line: line})
}

// ProcessEnvelope processes one source-tagged line. It returns nil while a
// multi-line JSON object is still being accumulated.
func (p *Processor) ProcessEnvelope(env model.IngestEnvelope) *ProcessResult {
	source := env.Source
	if source == "" {
		source = p.sourceName
	}

	// A blank line between objects carries nothing. A blank line inside a
	// pretty-printed object still feeds the assembler.
	if env.Line == "" && !p.assembler.open {
		return nil
	}

	if done, consumed := p.assembler.feed(source, env.Line); consumed {
		if done == nil {
			return nil
		}
		return p.processEntry(done.source, done.text)
	}

	return p.processEntry(source, env.Line)
}

// processEntry parses a line and routes the resulting entries to the sink.
func (p *Processor) processEntry(source, line string) *ProcessResult {
	entries := DecodeJSONEntries(line)
	if len(entries) == 0 {
		entries = []*model.LogEntry{FallbackEntry(line)}
	}

	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.Source = source
		if p.sink != nil {
			p.sink.Add(entry)
		}
	}

	return &ProcessResult{Entries: entries}
}

// SetSourceName updates the default source name for entries.
func (p *Processor) SetSourceName(name string) {
	p.sourceName = name
}

// completedJSON is a reassembled object together with the source that
// opened it.
type completedJSON struct {
	source string
	text   string
}

// jsonAssembler stitches pretty-printed JSON objects back into one string.
// A line whose first non-space byte is an opening brace starts
// accumulation; lines are buffered until the net nesting depth returns to
// zero.
type jsonAssembler struct {
	buf    strings.Builder
	depth  int
	open   bool
	source string
}

// feed offers a line to the assembler. consumed is false when the line is
// not part of a JSON object and should be handled as plain text. Once the
// closing brace arrives, the reassembled object is returned.
func (a *jsonAssembler) feed(source, line string) (done *completedJSON, consumed bool) {
	if !a.open {
		if !strings.HasPrefix(strings.TrimSpace(line), "{") {
			return nil, false
		}
		a.open = true
		a.source = source
		a.buf.Reset()
		a.depth = 0
	}

	a.buf.WriteString(line)
	a.buf.WriteByte('\n')
	a.depth += nestingDelta(line)
	if a.depth > 0 {
		return nil, true
	}

	done = &completedJSON{
		source: a.source,
		text:   strings.TrimSpace(a.buf.String()),
	}
	a.reset()
	return done, true
}

func (a *jsonAssembler) reset() {
	a.open = false
	a.depth = 0
	a.buf.Reset()
	a.source = ""
}

// nestingDelta returns the net brace and bracket nesting change across
// line, ignoring anything inside string literals.
func nestingDelta(line string) int {
	var depth int
	var inString, escaped bool
	for _, r := range line {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = inString
		case r == '"':
			inString = !inString
		case inString:
		case r == '{' || r == '[':
			depth++
		case r == '}' || r == ']':
			depth--
		}
	}
	return depth
}
