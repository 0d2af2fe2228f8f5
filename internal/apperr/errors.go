// Package apperr defines the error kinds surfaced by the gallery core.
//
// Every error returned from a service carries a stable Kind plus a
// human-readable message. Repository-level sentinels (ErrNotFound and
// friends) are translated into these kinds at the service boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	KindParams    Kind = "PARAMS_ERROR"
	KindAuth      Kind = "NO_AUTH_ERROR"
	KindNotFound  Kind = "NOT_FOUND_ERROR"
	KindOperation Kind = "OPERATION_ERROR"
	KindSystem    Kind = "SYSTEM_ERROR"
)

// ErrCapacity marks an admission rejected because a space is full.
// It is always wrapped in an Operation error.
var ErrCapacity = errors.New("space capacity exhausted")

// Error is the concrete error type returned by services.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Params reports malformed or missing input.
func Params(format string, args ...any) *Error {
	return &Error{Kind: KindParams, Message: fmt.Sprintf(format, args...)}
}

// Auth reports that the caller lacks ownership, admin, or space rights.
func Auth(format string, args ...any) *Error {
	return &Error{Kind: KindAuth, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a referenced asset or space that does not exist.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Operation reports a request that is well-formed but cannot be applied.
func Operation(format string, args ...any) *Error {
	return &Error{Kind: KindOperation, Message: fmt.Sprintf(format, args...)}
}

// Capacity reports an exhausted space quota.
func Capacity(message string) *Error {
	return &Error{Kind: KindOperation, Message: message, Err: ErrCapacity}
}

// System wraps an infrastructure failure. The message is what callers see;
// err stays internal and is only logged.
func System(err error, message string) *Error {
	return &Error{Kind: KindSystem, Message: message, Err: err}
}

// KindOf returns the kind of err. Errors that did not originate from this
// package are treated as system errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the caller-safe message for err. System errors never
// expose their cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// Wrap returns err unchanged when it already carries a kind, otherwise it
// wraps it as a system error with the given message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return System(err, message)
}
