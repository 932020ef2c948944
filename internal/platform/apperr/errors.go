// Package apperr defines the error kinds returned by the domain services and
// the echo error handler that turns them into {"msg": ...} responses.
// Callers should match kinds with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// Client-correctable input problems.
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")

	// Credential and token problems.
	ErrAuth            = errors.New("bad credentials")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	ErrNotFound = errors.New("not found")

	// Backing store failures. Detail is logged, never returned to clients.
	ErrStorage        = errors.New("storage error")
	ErrStorageTimeout = errors.New("storage timeout")

	ErrInternal = errors.New("internal error")
)

// Error pairs a kind with the message shown to the client and an optional
// underlying cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) error { return &Error{Kind: ErrValidation, Msg: msg} }
func Conflict(msg string) error   { return &Error{Kind: ErrConflict, Msg: msg} }
func Auth(msg string) error       { return &Error{Kind: ErrAuth, Msg: msg} }
func Forbidden(msg string) error  { return &Error{Kind: ErrForbidden, Msg: msg} }
func NotFound(msg string) error   { return &Error{Kind: ErrNotFound, Msg: msg} }
func Internal(msg string) error   { return &Error{Kind: ErrInternal, Msg: msg} }

// Unauthenticated wraps a token verification failure.
func Unauthenticated(msg string, cause error) error {
	return &Error{Kind: ErrUnauthenticated, Msg: msg, Err: cause}
}

// Storage wraps a backing store failure. Deadline overruns become
// ErrStorageTimeout so callers can tell them apart.
func Storage(cause error) error {
	if IsTimeout(cause) {
		return &Error{Kind: ErrStorageTimeout, Msg: "Database timeout", Err: cause}
	}
	return &Error{Kind: ErrStorage, Msg: "Database error", Err: cause}
}

// Message returns the client-facing message carried by err, or a generic one.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Msg != "" {
		return ae.Msg
	}
	return "internal server error"
}
