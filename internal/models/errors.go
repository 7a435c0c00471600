package models

import (
	"errors"
	"fmt"
)

// ErrorCode is the closed set of codes surfaced on the MCP envelope.
type ErrorCode string

const (
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	CodeNotFound   ErrorCode = "RESOURCE_NOT_FOUND"
	CodeConflict   ErrorCode = "CONFLICT_ERROR"
	CodeDependency ErrorCode = "DEPENDENCY_ERROR"
	CodeDatabase   ErrorCode = "DATABASE_ERROR"
	CodeInternal   ErrorCode = "INTERNAL_ERROR"
)

// DomainError is the tagged outcome carried across repository and service
// boundaries. Repositories never panic or leak driver errors directly; they
// wrap them here so handlers can map onto the stable code set.
type DomainError struct {
	Code         ErrorCode
	Message      string
	Blockers     []BlockerInfo  // populated for CodeDependency
	MissingNotes []ExpectedNote // populated for note-gate failures
	Cause        error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// NotFoundErr builds a RESOURCE_NOT_FOUND error.
func NotFoundErr(format string, args ...interface{}) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// ValidationErr builds a VALIDATION_ERROR.
func ValidationErr(format string, args ...interface{}) *DomainError {
	return &DomainError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ConflictErr builds a CONFLICT_ERROR.
func ConflictErr(format string, args ...interface{}) *DomainError {
	return &DomainError{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// DependencyErr builds a DEPENDENCY_ERROR carrying the unsatisfied blockers.
func DependencyErr(message string, blockers []BlockerInfo) *DomainError {
	return &DomainError{Code: CodeDependency, Message: message, Blockers: blockers}
}

// NoteGateErr builds a VALIDATION_ERROR enumerating missing required notes.
func NoteGateErr(message string, missing []ExpectedNote) *DomainError {
	return &DomainError{Code: CodeValidation, Message: message, MissingNotes: missing}
}

// DatabaseErr wraps a storage-level failure.
func DatabaseErr(cause error, format string, args ...interface{}) *DomainError {
	return &DomainError{Code: CodeDatabase, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// InternalErr wraps an unexpected condition.
func InternalErr(cause error, format string, args ...interface{}) *DomainError {
	return &DomainError{Code: CodeInternal, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// AsDomainError extracts a DomainError from err, wrapping unknown errors as
// INTERNAL_ERROR so the envelope code set stays closed.
func AsDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return &DomainError{Code: CodeInternal, Message: err.Error(), Cause: err}
}
