// Package apperr defines the error kinds shared by the scheduling packages and
// the HTTP status each one maps to.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for callers and transports.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindScheduleClosed    Kind = "schedule_closed"
	KindConflict          Kind = "conflict"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindTransient         Kind = "transient"
	KindInternal          Kind = "internal"
)

// Error carries a kind, a caller-facing reason and an optional cause.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindConflict}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == "" && t.Kind == e.Kind
}

func Validation(reason string) error     { return &Error{Kind: KindValidation, Reason: reason} }
func ScheduleClosed(reason string) error { return &Error{Kind: KindScheduleClosed, Reason: reason} }
func Conflict(reason string) error       { return &Error{Kind: KindConflict, Reason: reason} }
func NotFound(reason string) error       { return &Error{Kind: KindNotFound, Reason: reason} }

func InvalidTransition(reason string) error {
	return &Error{Kind: KindInvalidTransition, Reason: reason}
}

// Transient wraps a retryable store failure such as a serialization error.
func Transient(reason string, err error) error {
	return &Error{Kind: KindTransient, Reason: reason, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the caller-facing reason, hiding unclassified errors.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return "internal error"
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Retryable reports whether the failure may succeed on another attempt.
func Retryable(err error) bool {
	return IsKind(err, KindTransient)
}

// HTTPStatus maps a kind onto a response code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindScheduleClosed, KindConflict, KindInvalidTransition:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
