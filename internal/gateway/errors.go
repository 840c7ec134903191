package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies gateway failures.
type Kind int

const (
	KindHTTP Kind = iota + 1
	KindTimeout
	KindApplication
	KindTransport
)

// Sentinels matched with errors.Is against any *Error of the same kind.
var (
	ErrHTTP        = errors.New("gateway: unsuccessful http status")
	ErrTimeout     = errors.New("gateway: request timed out")
	ErrApplication = errors.New("gateway: backend reported an error")
	ErrTransport   = errors.New("gateway: transport failure")
)

func (k Kind) sentinel() error {
	switch k {
	case KindHTTP:
		return ErrHTTP
	case KindTimeout:
		return ErrTimeout
	case KindApplication:
		return ErrApplication
	default:
		return ErrTransport
	}
}

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindTimeout:
		return "timeout"
	case KindApplication:
		return "application"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by gateway calls.
type Error struct {
	Kind    Kind
	Action  string
	Status  int    // HTTP status, KindHTTP only
	Message string // backend text, KindApplication only
	Err     error
}

func (e *Error) Error() string {
	var detail string
	switch e.Kind {
	case KindApplication:
		detail = e.Message
	case KindHTTP:
		detail = fmt.Sprintf("HTTP %d", e.Status)
	case KindTimeout:
		detail = "request timed out"
	default:
		detail = "transport failure"
		if e.Err != nil {
			detail += ": " + e.Err.Error()
		}
	}
	if e.Action == "" {
		return detail
	}
	return e.Action + ": " + detail
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// IsTransport reports whether err means the backend could not be reached or
// did not answer properly, as opposed to answering with an application error.
func IsTransport(err error) bool {
	var ge *Error
	if !errors.As(err, &ge) {
		return false
	}
	return ge.Kind != KindApplication
}

// Message returns the text a user should see for err: the backend's own
// message for application errors, the error text otherwise.
func Message(err error) string {
	var ge *Error
	if errors.As(err, &ge) && ge.Kind == KindApplication {
		return ge.Message
	}
	return err.Error()
}
