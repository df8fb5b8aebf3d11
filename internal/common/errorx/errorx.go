package errorx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into one of the expected outcome categories.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
	KindUnauthenticated
	KindCrypto
	KindCapacity
)

// Error is a typed, caller-facing error. The message is safe to return to
// clients; wrapped internal detail stays server-side.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the error category.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the client-safe message.
func (e *Error) Message() string { return e.msg }

func newError(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func Validation(msg string) *Error      { return newError(KindValidation, msg) }
func NotFound(msg string) *Error        { return newError(KindNotFound, msg) }
func Conflict(msg string) *Error        { return newError(KindConflict, msg) }
func Forbidden(msg string) *Error       { return newError(KindForbidden, msg) }
func Unauthenticated(msg string) *Error { return newError(KindUnauthenticated, msg) }
func Capacity(msg string) *Error        { return newError(KindCapacity, msg) }

// Crypto wraps a low-level cryptographic failure. The cause is kept for
// server-side logs only; clients see the fixed message.
func Crypto(err error) *Error {
	return &Error{kind: KindCrypto, msg: "decryption failed", err: err}
}

// Internal wraps an unexpected error. Clients see a generic message.
func Internal(err error) *Error {
	return &Error{kind: KindInternal, msg: "internal server error", err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == kind
}

// HTTPStatus maps an error kind to its transport status. The mapping is
// decided here, once, so handlers never pick status codes themselves.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindCapacity:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindCrypto:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
