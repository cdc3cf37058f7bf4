package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tasklight/tasklight/internal/logsource"
	"github.com/tasklight/tasklight/internal/tcpserver"
)

// An input is one way of getting log lines into the daemon. Inputs
// turned off by config or by the environment report active() false and
// are skipped at boot.
type input interface {
	name() string
	active() bool
	open(ctx context.Context) (logsource.LogSource, error)
}

// inputSet selects which inputs boot. stdin needs no flag: it turns
// itself on when the process is fed a pipe.
type inputSet struct {
	tcpEnabled bool
	tcpAddr    string
}

func configuredInputs(set inputSet) []input {
	return []input{
		tcpInput{addr: set.tcpAddr, enabled: set.tcpEnabled},
		stdinInput{},
	}
}

type tcpInput struct {
	addr    string
	enabled bool
}

func (in tcpInput) name() string { return "tcp" }
func (in tcpInput) active() bool { return in.enabled }

func (in tcpInput) open(_ context.Context) (logsource.LogSource, error) {
	srv := tcpserver.NewServer(in.addr)
	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("listen on %s: %w", in.addr, err)
	}
	return logsource.NewTCPSource(srv), nil
}

type stdinInput struct{}

func (stdinInput) name() string { return "stdin" }

// active reports whether stdin is a pipe rather than a terminal.
func (stdinInput) active() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}

func (stdinInput) open(ctx context.Context) (logsource.LogSource, error) {
	return logsource.NewStdinSource(ctx), nil
}
