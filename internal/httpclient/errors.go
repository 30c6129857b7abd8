package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

var (
	// ErrRetriesExhausted wraps the last transient failure once the attempt
	// budget is spent.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrStopped is returned when the caller's stop flag was raised before an
	// attempt could start.
	ErrStopped = errors.New("request stopped")
)

// UpstreamError represents an error returned by an upstream service
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

// Snippet returns at most n bytes of the upstream body for log lines.
func (e *UpstreamError) Snippet(n int) string {
	if len(e.Body) <= n {
		return string(e.Body)
	}
	return string(e.Body[:n])
}

type failureClass int

const (
	classOther failureClass = iota
	classTimeout
	classConnection
)

// classify sorts a failed round trip into timeouts, connection-level
// failures, and everything else. Only the first two are retried.
func classify(err error) failureClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return classTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return classTimeout
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &opErr),
		errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return classConnection
	}

	return classOther
}
