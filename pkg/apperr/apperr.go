// Package apperr classifies failures so callers can decide what to report
// and whether any state was touched.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the class of a failure.
type Kind int

const (
	// Unknown is any error not produced by this package.
	Unknown Kind = iota
	// Validation marks malformed user input. Nothing was mutated.
	Validation
	// NotFound marks a missing or expired pending action, or a missing task.
	NotFound
	// Authorization marks an actor acting on someone else's pending action.
	Authorization
	// Upstream marks a failed call to a task or calendar source. Safe to retry.
	Upstream
	// Configuration marks invalid or missing configuration for a code path.
	Configuration
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Authorization:
		return "authorization"
	case Upstream:
		return "upstream"
	case Configuration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Msg is safe to show to the user.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a classified error with a message and no cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err, keeping it as the cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err's chain carries a classified error of kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message of a classified error, or fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}
