package stream

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// statusCoder is implemented by transport errors that carry an HTTP
// status, logclient.StatusError among them.
type statusCoder interface {
	HTTPStatus() int
}

// Keyword fallback for errors that reach us as bare strings. Matching
// runs against the lowercased formatted error.
var transientMarkers = []string{
	"connection reset",
	"connection refused",
	"broken pipe",
	"unexpected eof",
	"eof",
	"timeout",
	"timed out",
	"temporarily unavailable",
	"network is unreachable",
	"no such host",
	"stream ended",
}

// Transient reports whether err is worth a reconnect attempt.
// Cancellation and client-side HTTP errors are always fatal; server
// errors, network failures, and connection-reset style messages are
// transient. Anything unrecognized is fatal and surfaces immediately.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Structured checks first: wrapped errors may not keep the
	// original message in err.Error().
	var sc statusCoder
	if errors.As(err, &sc) {
		code := sc.HTTPStatus()
		if code >= http.StatusBadRequest && code < http.StatusInternalServerError {
			return false
		}
		if code >= http.StatusInternalServerError {
			return true
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
