// Package tcpserver accepts newline-delimited log lines over TCP and
// fans them into an envelope channel. Payloads may be plain text, flat
// JSON, or OTEL JSON; classification happens downstream in ingest.
package tcpserver

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"sync"

	"github.com/tasklight/tasklight/internal/model"
)

const (
	// DefaultLineChannelSize buffers this many envelopes between the
	// reader goroutines and the consumer.
	DefaultLineChannelSize = 100_000

	// DefaultMaxLineSize caps a single line at 1MB. A connection that
	// sends a longer line is dropped rather than truncated.
	DefaultMaxLineSize = 1024 * 1024
)

// ServerConfig tunes per-connection limits. Zero fields keep the
// defaults.
type ServerConfig struct {
	LineChannelSize int
	MaxLineSize     int
}

// Server owns the listener and one reader goroutine per connection.
type Server struct {
	addr        string
	listener    net.Listener
	out         chan model.IngestEnvelope
	maxLineSize int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewServer creates a TCP server bound to addr once Start is called.
// An empty addr falls back to model.DefaultTCPAddr.
func NewServer(addr string, conf ...ServerConfig) *Server {
	if addr == "" {
		addr = model.DefaultTCPAddr
	}
	var cfg ServerConfig
	if len(conf) > 0 {
		cfg = conf[0]
	}
	if cfg.LineChannelSize <= 0 {
		cfg.LineChannelSize = DefaultLineChannelSize
	}
	if cfg.MaxLineSize <= 0 {
		cfg.MaxLineSize = DefaultMaxLineSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:        addr,
		out:         make(chan model.IngestEnvelope, cfg.LineChannelSize),
		maxLineSize: cfg.MaxLineSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start binds the listener and begins accepting connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop(listener)
	return nil
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, s.maxLineSize), s.maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if !s.publish(line) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			log.Printf("tcpserver: closing %s, line over %d bytes", conn.RemoteAddr(), s.maxLineSize)
			return
		}
		log.Printf("tcpserver: read from %s: %v", conn.RemoteAddr(), err)
	}
}

// publish hands one line to the consumer. It returns false when the
// server is shutting down and the line was not delivered.
func (s *Server) publish(line string) bool {
	select {
	case s.out <- model.IngestEnvelope{Source: "tcp", Line: line}:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Stop closes the listener, waits for the reader goroutines, then
// closes the line channel so consumers see a clean end of stream.
func (s *Server) Stop() error {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	close(s.out)
	return nil
}

// Lines returns the channel of received envelopes. It is closed by Stop.
func (s *Server) Lines() <-chan model.IngestEnvelope {
	return s.out
}

// Addr returns the bound listen address, or the configured one before
// Start. Binding to port 0 makes this the way to learn the real port.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
