package logsource

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"os"

	"github.com/tasklight/tasklight/internal/model"
)

const (
	// DefaultStdinBuffer is the envelope channel capacity for piped input.
	DefaultStdinBuffer = 50_000

	// DefaultStdinMaxLineSize caps a single line at 1MB; longer lines
	// end the source rather than silently truncating.
	DefaultStdinMaxLineSize = 1024 * 1024
)

// StdinConfig tunes the stdin source. Zero fields keep the defaults.
type StdinConfig struct {
	BufferSize  int
	MaxLineSize int
}

func (c StdinConfig) withDefaults() StdinConfig {
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultStdinBuffer
	}
	if c.MaxLineSize <= 0 {
		c.MaxLineSize = DefaultStdinMaxLineSize
	}
	return c
}

// StdinSource turns piped standard input into IngestEnvelopes.
type StdinSource struct {
	ch     chan model.IngestEnvelope
	cancel context.CancelFunc
}

// NewStdinSource starts reading os.Stdin in the background.
func NewStdinSource(ctx context.Context, conf ...StdinConfig) *StdinSource {
	return newStdinSourceWithReader(ctx, os.Stdin, conf...)
}

func newStdinSourceWithReader(ctx context.Context, r io.Reader, conf ...StdinConfig) *StdinSource {
	var cfg StdinConfig
	if len(conf) > 0 {
		cfg = conf[0]
	}
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithCancel(ctx)
	s := &StdinSource{
		ch:     make(chan model.IngestEnvelope, cfg.BufferSize),
		cancel: cancel,
	}
	go s.pump(ctx, r, cfg.MaxLineSize)
	return s
}

// pump forwards scanned lines until the reader ends or ctx is
// canceled. Scanning happens on its own goroutine because Scan blocks
// with no cancellation hook; the pump must still close the envelope
// channel promptly on Stop even while a read is pending.
func (s *StdinSource) pump(ctx context.Context, r io.Reader, maxLineSize int) {
	defer close(s.ch)

	scanned := make(chan string)
	go func() {
		defer close(scanned)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, maxLineSize), maxLineSize)
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				continue
			}
			select {
			case scanned <- text:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				log.Printf("logsource: stdin line over %d bytes, stopping", maxLineSize)
				return
			}
			log.Printf("logsource: stdin read: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case text, ok := <-scanned:
			if !ok {
				return
			}
			select {
			case s.ch <- model.IngestEnvelope{Source: s.Name(), Line: text}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *StdinSource) Lines() <-chan model.IngestEnvelope { return s.ch }
func (s *StdinSource) Stop()                              { s.cancel() }
func (s *StdinSource) Name() string                       { return "stdin" }
