package otlpserver

import (
	"context"
	"sync"
	"testing"
	"time"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/tasklight/tasklight/internal/model"
)

type captureSink struct {
	mu      sync.Mutex
	entries []*model.LogEntry
}

func (s *captureSink) Add(entry *model.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *captureSink) snapshot() []*model.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.LogEntry(nil), s.entries...)
}

func TestNewServer_DefaultAddress(t *testing.T) {
	t.Parallel()

	s := NewServer("", nil)
	if got := s.Addr(); got != model.DefaultOTLPAddr {
		t.Fatalf("Addr() = %q, want %q", got, model.DefaultOTLPAddr)
	}
}

func TestServer_ExportRoundTrip(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	srv := NewServer("127.0.0.1:0", sink)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	conn, err := grpc.NewClient(srv.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := collogspb.NewLogsServiceClient(conn)
	req := &collogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{{
			Resource: &resourcepb.Resource{
				Attributes: []*commonpb.KeyValue{kv("service.name", "pipeline")},
			},
			ScopeLogs: []*logspb.ScopeLogs{{
				LogRecords: []*logspb.LogRecord{{
					SeverityText: "INFO",
					Body:         strValue("exported over grpc"),
				}},
			}},
		}},
	}

	if _, err := client.Export(ctx, req); err != nil {
		t.Fatalf("Export: %v", err)
	}

	entries := sink.snapshot()
	if len(entries) != 1 {
		t.Fatalf("sink entries = %d, want 1", len(entries))
	}
	if entries[0].Message != "exported over grpc" {
		t.Errorf("message = %q, want 'exported over grpc'", entries[0].Message)
	}
	if entries[0].Task != "pipeline" {
		t.Errorf("task = %q, want pipeline", entries[0].Task)
	}
	if entries[0].Source != SourceName {
		t.Errorf("source = %q, want %q", entries[0].Source, SourceName)
	}
}
