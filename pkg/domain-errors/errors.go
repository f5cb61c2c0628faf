// Package domainerrors provides coded errors that carry a caller-actionable
// classification across service boundaries. Stores return sentinel errors
// (pkg/platform/sentinel); services translate them into coded errors here;
// transport maps codes onto HTTP statuses.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers.
type Code string

const (
	// CodeValidation marks malformed input: missing required fields,
	// disallowed file extensions, unparsable dates.
	CodeValidation Code = "validation"
	// CodeBadRequest marks a structurally invalid request body or parameter.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized marks a missing or unverifiable identity assertion.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an actor outside the tenant/school/ownership scope.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks a referenced entity that does not exist in scope.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a state-machine transition not permitted from the
	// current state, or an idempotency key that is already present.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks a broken domain invariant detected at
	// construction or transition time.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks collaborator failures: store unavailable, email
	// send failure. Never caller-actionable.
	CodeInternal Code = "internal"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates a cause with a code and message. Returns nil for a nil cause.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal when uncoded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code onto an HTTP status for transport handlers.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
