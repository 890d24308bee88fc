package services

import (
	"errors"
	"fmt"
	"strings"

	"permit_flow_app_go/models"
)

// ErrorKind is the stable tag surfaced to callers
type ErrorKind string

const (
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindForbidden    ErrorKind = "FORBIDDEN"
	KindInvalidState ErrorKind = "INVALID_STATE"
	KindValidation   ErrorKind = "VALIDATION_ERROR"
	KindConflict     ErrorKind = "CONFLICT"
)

// Error is a per-request failure of a case operation
type Error struct {
	Kind    ErrorKind
	Message string
	// Missing lists the document slots that blocked a completeness-dependent operation
	Missing []models.DocumentSlot
}

func (e *Error) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	slots := make([]string, len(e.Missing))
	for i, s := range e.Missing {
		slots[i] = string(s)
	}
	return fmt.Sprintf("%s: %s (missing: %s)", e.Kind, e.Message, strings.Join(slots, ", "))
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict) works
// for every conflict regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons
var (
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden    = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrInvalidState = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrValidation   = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict     = &Error{Kind: KindConflict, Message: "case was modified concurrently, retry"}
)

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an absent or invisible resource
func NotFoundError(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

// ForbiddenError reports a failed role check
func ForbiddenError(format string, args ...interface{}) *Error {
	return newError(KindForbidden, format, args...)
}

// InvalidStateError reports a violated transition guard
func InvalidStateError(format string, args ...interface{}) *Error {
	return newError(KindInvalidState, format, args...)
}

// ValidationError reports malformed input
func ValidationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// ConflictError reports an optimistic version mismatch
func ConflictError(caseID string) *Error {
	return newError(KindConflict, "case %s was modified concurrently, retry", caseID)
}

// MissingDocumentsError reports a case that is not document-complete
func MissingDocumentsError(missing []models.DocumentSlot) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: "case is missing mandatory documents",
		Missing: missing,
	}
}

// KindOf extracts the kind of a service error, or "" for anything else
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}
