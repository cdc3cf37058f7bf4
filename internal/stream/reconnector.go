// Package stream keeps the live log subscription alive. It wraps a
// LiveSource with transient-failure classification and bounded
// exponential backoff, advancing the resume cursor across reconnects
// and reporting connection phase for the status bar.
package stream

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tasklight/tasklight/internal/model"
)

const (
	// BaseDelay and MaxDelay bound the retry backoff ladder.
	BaseDelay = time.Second
	MaxDelay  = 30 * time.Second
	// MaxAttempts caps consecutive failed connection attempts; one
	// more failure is terminal.
	MaxAttempts = 5

	jitterFrac = 0.25
)

// ErrRetriesExhausted is returned once MaxAttempts consecutive
// transient failures have been burned without a successful connection.
// Recovery requires an explicit restart.
var ErrRetriesExhausted = errors.New("stream: retry attempts exhausted")

// errStreamEnded stands in when the server closes an open subscription
// without an error; for the viewer that is a drop to retry.
var errStreamEnded = errors.New("stream: stream ended")

// Phase is the connection lifecycle stage.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseStreaming
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseStreaming:
		return "streaming"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// State is a snapshot of the reconnector for status display.
type State struct {
	Phase        Phase
	RetryAttempt int
	Err          error
}

// Reconnector supervises one live subscription. Run blocks; State may
// be read from any goroutine.
type Reconnector struct {
	src    model.LiveSource
	push   func(model.LogEntry)
	notify func(State)

	mu    sync.Mutex
	state State

	base      time.Duration
	max       time.Duration
	randFloat func() float64
}

// NewReconnector wraps src, delivering entries to push and state
// transitions to notify. notify may be nil.
func NewReconnector(src model.LiveSource, push func(model.LogEntry), notify func(State)) *Reconnector {
	return &Reconnector{
		src:       src,
		push:      push,
		notify:    notify,
		base:      BaseDelay,
		max:       MaxDelay,
		randFloat: rand.Float64,
	}
}

// State returns the latest connection snapshot.
func (r *Reconnector) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconnector) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	if r.notify != nil {
		r.notify(s)
	}
}

// Run subscribes and keeps resubscribing across transient failures
// until ctx is cancelled, a fatal error surfaces, or the attempt cap
// is exhausted. A successful connection resets the attempt counter;
// each reconnect resumes from the last delivered timestamp. Entries
// arriving after cancellation are discarded.
func (r *Reconnector) Run(ctx context.Context, q model.Query) error {
	attempt := 0
	var lastSeen time.Time

	for {
		r.setState(State{Phase: PhaseConnecting, RetryAttempt: attempt})

		connected := func() {
			attempt = 0
			r.setState(State{Phase: PhaseStreaming})
		}
		push := func(e model.LogEntry) {
			if ctx.Err() != nil {
				return
			}
			if e.Timestamp.After(lastSeen) {
				lastSeen = e.Timestamp
			}
			r.push(e)
		}

		err := r.src.Subscribe(ctx, q, connected, push)
		if ctx.Err() != nil {
			r.setState(State{Phase: PhaseIdle})
			return ctx.Err()
		}
		if err == nil {
			err = errStreamEnded
		}
		if !Transient(err) {
			r.setState(State{Phase: PhaseError, Err: err})
			return fmt.Errorf("stream: subscription failed: %w", err)
		}

		attempt++
		if attempt > MaxAttempts {
			err = fmt.Errorf("%w (last: %v)", ErrRetriesExhausted, err)
			r.setState(State{Phase: PhaseError, RetryAttempt: attempt, Err: err})
			return err
		}
		r.setState(State{Phase: PhaseConnecting, RetryAttempt: attempt, Err: err})
		if !r.sleep(ctx, r.delay(attempt)) {
			r.setState(State{Phase: PhaseIdle})
			return ctx.Err()
		}

		if !lastSeen.IsZero() {
			q.Start = lastSeen
		}
	}
}

// delay computes the jittered backoff before attempt (1-based):
// min(BaseDelay*2^(attempt-1), MaxDelay), then +-25%.
func (r *Reconnector) delay(attempt int) time.Duration {
	d := r.base << uint(attempt-1)
	if d > r.max || d <= 0 {
		d = r.max
	}
	factor := 1 - jitterFrac + r.randFloat()*2*jitterFrac
	return time.Duration(float64(d) * factor)
}

// sleep waits for d unless ctx ends first; reports whether the full
// delay elapsed.
func (r *Reconnector) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
