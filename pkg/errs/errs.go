// Package errs provides structured error classification for AI gateway and
// persistence interactions.
package errs

import (
	"errors"
	"fmt"
)

// Kind represents different categories of errors for propagation decisions.
type Kind int8

const (
	// KindConfig represents a missing credential or endpoint. Fatal to the
	// triggering operation, surfaced verbatim to the user.
	KindConfig Kind = iota
	// KindUpstream represents a non-success response from the AI backend or
	// the persistence backend. AI operations retry once via the secondary
	// path; persistence operations surface it as a sync status.
	KindUpstream
	// KindValidation represents AI output that does not match the required
	// shape. Never retried automatically.
	KindValidation
	// KindAuth represents a missing or invalid identity for an operation
	// that requires one.
	KindAuth
	// KindUnknown is the default for unclassified errors.
	KindUnknown
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindUpstream:
		return "upstream"
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error represents a classified error with diagnostic metadata.
type Error struct {
	Err        error  // Wrapped underlying error
	Message    string // Human-readable error message
	RawBody    string // Raw response body or model text, kept for diagnostics
	Kind       Kind   // Classified error kind
	StatusCode int    // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s error: %s", e.Kind.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error: %v", e.Kind.String(), e.Err)
	}
	return fmt.Sprintf("%s error: status %d", e.Kind.String(), e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the secondary AI path should be attempted for
// this error. Only validation failures are excluded: the model produced a
// parseable-but-wrong shape, and a second transport would not change that.
func (e *Error) Retryable() bool {
	return e.Kind != KindValidation
}

// Is checks if an error is of a specific kind.
func Is(err error, kind Kind) bool {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind == kind
	}
	return false
}

// KindOf returns the kind of an error, or KindUnknown if not classified.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnknown
}

// New creates a new classified error.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// NewWithStatus creates a new classified error with an HTTP status.
func NewWithStatus(kind Kind, statusCode int, message string) *Error {
	return &Error{
		Kind:       kind,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewWithCause creates a new classified error wrapping another error.
func NewWithCause(kind Kind, cause error, message string) *Error {
	return &Error{
		Kind:    kind,
		Err:     cause,
		Message: message,
	}
}

// NewValidation creates a validation error that keeps the raw model output
// available for diagnostics.
func NewValidation(raw, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
		RawBody: raw,
	}
}
