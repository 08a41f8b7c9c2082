// Package errs defines the error taxonomy shared by the client components.
//
// Every failure surfaced to the user is an *Error carrying one of five kinds.
// Message is the human-readable reason, passed through verbatim from the
// backend when it supplied one.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindAuth Kind = iota + 1
	KindValidation
	KindConflict
	KindNetwork
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String() + " error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, errs.ErrAuth)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Op == ""
}

// Sentinels for errors.Is.
var (
	ErrAuth       = &Error{Kind: KindAuth}
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrNetwork    = &Error{Kind: KindNetwork}
	ErrServer     = &Error{Kind: KindServer}
)

// Auth returns an authentication or permission failure.
func Auth(op, message string) error {
	return &Error{Kind: KindAuth, Op: op, Message: message}
}

// Validation returns a locally detected input error.
func Validation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a duplicate-resource failure.
func Conflict(op, message string) error {
	return &Error{Kind: KindConflict, Op: op, Message: message}
}

// Network wraps a transport failure.
func Network(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Message: fmt.Sprintf("failed to reach backend: %v", err), Err: err}
}

// Server returns a backend failure with the backend's reason.
func Server(op, message string) error {
	return &Error{Kind: KindServer, Op: op, Message: message}
}

// KindOf returns the kind of err, or 0 when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
