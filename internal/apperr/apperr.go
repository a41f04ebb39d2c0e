package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure for the HTTP boundary.
type Kind int

const (
	// KindInternal is an unexpected failure surfaced as a generic 500.
	KindInternal Kind = iota
	// KindValidation is malformed or out-of-range input (400).
	KindValidation
	// KindUnauthorized is a missing or invalid session (401).
	KindUnauthorized
	// KindForbidden is an authenticated caller lacking a role (403).
	KindForbidden
	// KindNotFound is an absent or not-owned entity (404).
	KindNotFound
	// KindConflict requires the caller to confirm or resolve (409).
	KindConflict
	// KindCapacity is a per-user limit the caller must reduce usage to clear (409).
	KindCapacity
)

// Error carries a dotted operation code alongside the failure kind so
// services can log and the HTTP layer can map statuses uniformly.
type Error struct {
	kind Kind
	code string
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code, e.g. "switches.bulk_import.limit_exceeded".
func (e *Error) Code() string {
	return e.code
}

// Kind returns the failure classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// New builds a classified service error with an operation.reason code.
func New(kind Kind, operation, reason string, cause error) error {
	return &Error{kind: kind, code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// Internal builds a KindInternal error.
func Internal(operation, reason string, cause error) error {
	return New(KindInternal, operation, reason, cause)
}

// Validation builds a KindValidation error.
func Validation(operation, reason string, cause error) error {
	return New(KindValidation, operation, reason, cause)
}

// NotFound builds a KindNotFound error.
func NotFound(operation, reason string, cause error) error {
	return New(KindNotFound, operation, reason, cause)
}

// Conflict builds a KindConflict error.
func Conflict(operation, reason string, cause error) error {
	return New(KindConflict, operation, reason, cause)
}

// Capacity builds a KindCapacity error.
func Capacity(operation, reason string, cause error) error {
	return New(KindCapacity, operation, reason, cause)
}

// Forbidden builds a KindForbidden error.
func Forbidden(operation, reason string, cause error) error {
	return New(KindForbidden, operation, reason, cause)
}

// KindOf extracts the classification from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.kind
	}
	return KindInternal
}

// CodeOf extracts the operation code from err, or "" when err is untyped.
func CodeOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.code
	}
	return ""
}
