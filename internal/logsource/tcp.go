package logsource

import (
	"github.com/tasklight/tasklight/internal/model"
	"github.com/tasklight/tasklight/internal/tcpserver"
)

// TCPSource adapts an already-started tcpserver.Server to LogSource.
// The server owns the listener; Stop here tears it down.
type TCPSource struct {
	server *tcpserver.Server
}

// NewTCPSource wraps server. Start must have been called already.
func NewTCPSource(server *tcpserver.Server) *TCPSource {
	return &TCPSource{server: server}
}

func (t *TCPSource) Lines() <-chan model.IngestEnvelope { return t.server.Lines() }
func (t *TCPSource) Stop()                              { _ = t.server.Stop() }
func (t *TCPSource) Name() string                       { return "tcp" }
