package common

import (
	"errors"
	"fmt"
)

// Stable error kinds surfaced to callers. These exact strings appear in the
// serving surface's {error_kind, message} payload; never leak raw internal
// error strings as kinds.
const (
	KindMalformedResponse = "MALFORMED_RESPONSE"  // model text not JSON-recoverable
	KindUnmappableField   = "UNMAPPABLE_FIELD"    // key matches no known pattern (non-fatal)
	KindAmbiguousSampleID = "AMBIGUOUS_SAMPLE_ID" // sample id unresolvable (non-fatal)
	KindUpstreamFailure   = "UPSTREAM_FAILURE"    // model/network error
	KindInvalidInput      = "INVALID_INPUT"       // bad request (not a PDF, too large, ...)
	KindInternal          = "INTERNAL"            // anything else
)

// AppError carries a stable kind alongside the human-readable message.
type AppError struct {
	Kind    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(kind, message string, cause error) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// ErrorKind extracts the stable kind from an error chain, defaulting to
// KindInternal for unclassified errors.
func ErrorKind(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// ErrorMessage returns the caller-safe message for an error chain.
func ErrorMessage(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal error"
}
