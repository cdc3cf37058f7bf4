// Package logsource abstracts where raw log lines come from. A source
// produces IngestEnvelopes on a channel until it is stopped; downstream
// processing neither knows nor cares whether a line arrived over TCP or
// on stdin.
package logsource

import "github.com/tasklight/tasklight/internal/model"

// LogSource is one origin of raw lines.
type LogSource interface {
	// Lines yields envelopes until the source stops, then closes.
	Lines() <-chan model.IngestEnvelope
	// Stop shuts the source down and releases anything it holds open.
	Stop()
	// Name labels envelopes with their origin, e.g. "tcp" or "stdin".
	Name() string
}
