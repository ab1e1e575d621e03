package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a failed request at the transport boundary. Downstream
// retry loops branch on the kind, never on message text.
type ErrorKind int

const (
	KindTimeout ErrorKind = iota
	KindNetwork
	KindHTTPStatus
	KindAborted
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindHTTPStatus:
		return "http-status"
	case KindAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// RequestError is a failed transfer request with its transport classification.
type RequestError struct {
	Op     string
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("%s: http status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient: timeouts, network
// errors, and 5xx responses. 4xx responses and aborts are terminal.
func (e *RequestError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork:
		return true
	case KindHTTPStatus:
		return e.Status >= 500
	default:
		return false
	}
}

// classifyErr wraps a transport-level error (no HTTP response received).
func classifyErr(op string, err error) *RequestError {
	kind := KindNetwork
	switch {
	case errors.Is(err, context.Canceled):
		kind = KindAborted
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = KindTimeout
		}
	}
	return &RequestError{Op: op, Kind: kind, Err: err}
}

// statusError wraps a non-2xx HTTP response.
func statusError(op string, status int, detail string) *RequestError {
	return &RequestError{
		Op:     op,
		Kind:   KindHTTPStatus,
		Status: status,
		Err:    errors.New(detail),
	}
}
