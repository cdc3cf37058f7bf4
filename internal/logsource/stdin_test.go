package logsource

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tasklight/tasklight/internal/model"
)

func readEnvelope(t *testing.T, src *StdinSource) (model.IngestEnvelope, bool) {
	t.Helper()
	select {
	case env, open := <-src.Lines():
		return env, open
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an envelope")
		return model.IngestEnvelope{}, false
	}
}

func TestStdinSourceForwardsNonEmptyLines(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}

	src := newStdinSourceWithReader(context.Background(), r)
	defer src.Stop()

	if _, err := io.WriteString(w, "alpha\n\nbeta\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = w.Close()

	first, ok := readEnvelope(t, src)
	if !ok || first.Line != "alpha" || first.Source != "stdin" {
		t.Fatalf("first envelope = %+v ok=%t, want alpha from stdin", first, ok)
	}
	second, ok := readEnvelope(t, src)
	if !ok || second.Line != "beta" {
		t.Fatalf("second envelope = %+v ok=%t, want beta (blank line skipped)", second, ok)
	}
	if _, ok := readEnvelope(t, src); ok {
		t.Fatal("channel should close after the reader ends")
	}
}

func TestStdinSourceStop(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer w.Close()

	src := newStdinSourceWithReader(context.Background(), r)
	src.Stop()
	src.Stop() // calling twice must be harmless

	if _, open := readEnvelope(t, src); open {
		t.Fatal("Lines should be closed after Stop")
	}
}

func TestStdinSourceParentContextCancel(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	src := newStdinSourceWithReader(ctx, r)
	cancel()

	if _, open := readEnvelope(t, src); open {
		t.Fatal("Lines should close when the parent context ends")
	}
}

func TestStdinSourceOversizeLineEndsSource(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}

	src := newStdinSourceWithReader(context.Background(), r, StdinConfig{MaxLineSize: 16})
	defer src.Stop()

	if _, err := io.WriteString(w, strings.Repeat("x", 64)+"\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = w.Close()

	if _, open := readEnvelope(t, src); open {
		t.Fatal("Lines should close after an oversize line")
	}
}
