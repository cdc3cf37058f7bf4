package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tasklight/tasklight/internal/logsource"
	"github.com/tasklight/tasklight/internal/model"
)

// stubSource feeds the mux from a test-owned channel and records Stop.
type stubSource struct {
	out  chan model.IngestEnvelope
	done chan struct{}
	once sync.Once
}

func newStubSource() *stubSource {
	return &stubSource{
		out:  make(chan model.IngestEnvelope, 8),
		done: make(chan struct{}),
	}
}

func (s *stubSource) Lines() <-chan model.IngestEnvelope { return s.out }
func (s *stubSource) Name() string                       { return "stub" }

func (s *stubSource) Stop() {
	s.once.Do(func() {
		close(s.done)
		close(s.out)
	})
}

func (s *stubSource) emit(line string) {
	s.out <- model.IngestEnvelope{Source: s.Name(), Line: line}
}

func TestSourceMuxMergesSources(t *testing.T) {
	t.Parallel()

	a := newStubSource()
	b := newStubSource()
	mux := newSourceMux(context.Background(), []logsource.LogSource{a, b}, 16)
	mux.Start()
	defer mux.Stop()

	a.emit("from-a")
	b.emit("from-b")
	a.Stop()
	b.Stop()

	// Once every source ends the merged stream must close, with both
	// lines delivered first.
	seen := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env, ok := <-mux.Lines():
			if !ok {
				if !seen["from-a"] || !seen["from-b"] {
					t.Fatalf("stream closed early, saw %v", seen)
				}
				return
			}
			seen[env.Line] = true
		case <-deadline:
			t.Fatalf("stream never closed, saw %v", seen)
		}
	}
}

func TestSourceMuxDropsBlankLines(t *testing.T) {
	t.Parallel()

	src := newStubSource()
	mux := newSourceMux(context.Background(), []logsource.LogSource{src}, 8)
	mux.Start()
	defer mux.Stop()

	src.emit("")
	src.emit("kept")
	src.Stop()

	var lines []string
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env, ok := <-mux.Lines():
			if !ok {
				if len(lines) != 1 || lines[0] != "kept" {
					t.Fatalf("lines = %v, want [kept]", lines)
				}
				return
			}
			lines = append(lines, env.Line)
		case <-deadline:
			t.Fatal("stream never closed")
		}
	}
}

func TestSourceMuxStopStopsSources(t *testing.T) {
	t.Parallel()

	src := newStubSource()
	mux := newSourceMux(context.Background(), []logsource.LogSource{src}, 8)
	mux.Start()

	mux.Stop()

	select {
	case <-src.done:
	case <-time.After(2 * time.Second):
		t.Fatal("mux.Stop did not stop the source")
	}
}

func TestSourceMuxNoSourcesClosesImmediately(t *testing.T) {
	t.Parallel()

	mux := newSourceMux(context.Background(), nil, 4)
	mux.Start()
	defer mux.Stop()

	if mux.HasSources() {
		t.Fatal("HasSources() = true with no sources")
	}
	select {
	case _, ok := <-mux.Lines():
		if ok {
			t.Fatal("unexpected envelope on empty mux")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream never closed")
	}
}
