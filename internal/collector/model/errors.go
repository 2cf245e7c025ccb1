package model

import (
	"errors"
	"fmt"
)

type ValidationErrorKind string

const (
	ValidationKindMissingField       ValidationErrorKind = "missing-field"
	ValidationKindBadType            ValidationErrorKind = "bad-type"
	ValidationKindBadEnum            ValidationErrorKind = "bad-enum"
	ValidationKindTimestampInversion ValidationErrorKind = "timestamp-inversion"
)

// ValidationError rejects a whole ingestion batch before any write. It names
// the offending span and field so the client can correct the payload.
type ValidationError struct {
	Kind    ValidationErrorKind
	SpanId  string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: span %q field %q: %s", e.Kind, e.SpanId, e.Field, e.Message)
}

func NewValidationError(kind ValidationErrorKind, spanId string, field string, message string) *ValidationError {
	return &ValidationError{Kind: kind, SpanId: spanId, Field: field, Message: message}
}

// ErrDownstreamTimeout marks a document store deadline being exceeded. It is
// surfaced to the caller as a retryable server error.
var ErrDownstreamTimeout = errors.New("downstream dependency timed out")
