package api

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// KindNetwork covers transport-level failures (dial, timeout, TLS).
	KindNetwork ErrorKind = iota
	// KindParse covers undecodable response bodies.
	KindParse
	// KindHTTP covers non-2xx HTTP statuses.
	KindHTTP
	// KindRemote covers envelopes the API itself marked unsuccessful.
	KindRemote
	// KindUnavailable is returned while the circuit breaker is open.
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindParse:
		return "parse"
	case KindHTTP:
		return "http"
	case KindRemote:
		return "remote"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced by this package.
type Error struct {
	Kind     ErrorKind
	Endpoint string
	Status   int // HTTP status, when Kind == KindHTTP
	Err      error
	Message  string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("api %s: http %d: %s", e.Endpoint, e.Status, e.Message)
	case KindRemote:
		return fmt.Sprintf("api %s: remote error: %s", e.Endpoint, e.Message)
	case KindUnavailable:
		return fmt.Sprintf("api %s: circuit open", e.Endpoint)
	default:
		return fmt.Sprintf("api %s: %s error: %v", e.Endpoint, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsUnavailable reports whether err means the breaker is open and polling
// should back off quietly instead of logging every category.
func IsUnavailable(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindUnavailable
}
