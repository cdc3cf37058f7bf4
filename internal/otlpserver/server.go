// Package otlpserver receives logs over the OTLP gRPC protocol and feeds
// them into the ingest pipeline as canonical entries.
package otlpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	"google.golang.org/grpc"

	"github.com/tasklight/tasklight/internal/ingest"
	"github.com/tasklight/tasklight/internal/model"
)

// SourceName tags entries received over OTLP gRPC.
const SourceName = "otlp"

// Server implements the OTLP logs collector service on top of a gRPC server.
type Server struct {
	collogspb.UnimplementedLogsServiceServer

	addr     string
	sink     ingest.EntrySink
	grpcSrv  *grpc.Server
	listener net.Listener
}

// NewServer creates an OTLP gRPC log receiver. An empty addr falls back to
// model.DefaultOTLPAddr.
func NewServer(addr string, sink ingest.EntrySink) *Server {
	if addr == "" {
		addr = model.DefaultOTLPAddr
	}
	return &Server{addr: addr, sink: sink}
}

// Start begins serving gRPC in a background goroutine.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("otlpserver: listen %s: %w", s.addr, err)
	}
	s.listener = listener

	s.grpcSrv = grpc.NewServer()
	collogspb.RegisterLogsServiceServer(s.grpcSrv, s)

	go func() {
		if err := s.grpcSrv.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Printf("otlpserver: serve: %v", err)
		}
	}()

	return nil
}

// Stop drains in-flight RPCs and shuts the server down.
func (s *Server) Stop() {
	if s.grpcSrv != nil {
		s.grpcSrv.GracefulStop()
	}
}

// Addr returns the active listen address.
// Before Start, it returns the configured address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Export implements the OTLP logs service. Every record in the request is
// accepted; conversion failures degrade to raw payload entries rather than
// rejecting the batch.
func (s *Server) Export(_ context.Context, req *collogspb.ExportLogsServiceRequest) (*collogspb.ExportLogsServiceResponse, error) {
	if s.sink != nil {
		for _, entry := range EntriesFromRequest(req) {
			s.sink.Add(entry)
		}
	}
	return &collogspb.ExportLogsServiceResponse{}, nil
}
