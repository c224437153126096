package studgram

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend call. Callers branch on the kind, never on
// raw HTTP status codes or transport error strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindServerError
	KindTimeout
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindServerError:
		return "server_error"
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by Client.Request.
type Error struct {
	Kind   Kind
	Status int
	Method string
	Path   string
	cause  error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("studgram: %s %s: %s (status %d)", e.Method, e.Path, e.Kind, e.Status)
	}
	if e.cause != nil {
		return fmt.Sprintf("studgram: %s %s: %s: %v", e.Method, e.Path, e.Kind, e.cause)
	}
	return fmt.Sprintf("studgram: %s %s: %s", e.Method, e.Path, e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the failure kind from err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a backend "resource not found" failure.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
