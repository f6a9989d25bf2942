// Package errors provides structured error types for dagscope.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine, CLI and HTTP surface
//   - Machine-readable error codes for programmatic handling
//   - Non-fatal diagnostics collected while rewriting a graph
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The engine's recoverable error kinds map onto four codes:
//   - MALFORMED_PAYLOAD: the update message is missing required shape; it is aborted
//   - DANGLING_REFERENCE: an edge or validator points at an unknown node; it is skipped
//   - DUPLICATE_ID: a node or edge id is reused; the first occurrence wins
//   - UNSUPPORTED_FORMAT: export was requested in an unknown format
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDanglingReference, "edge %s: unknown target %q", id, to)
//	if errors.Is(err, errors.ErrCodeDanglingReference) {
//	    // Skip the element and continue
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeDuplicateID, origErr, "node %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Payload and graph integrity errors
	ErrCodeMalformedPayload  Code = "MALFORMED_PAYLOAD"
	ErrCodeDanglingReference Code = "DANGLING_REFERENCE"
	ErrCodeDuplicateID       Code = "DUPLICATE_ID"
	ErrCodeUnsupportedFormat Code = "UNSUPPORTED_FORMAT"

	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidPath  Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Network errors
	ErrCodeNetwork  Code = "NETWORK_ERROR"
	ErrCodeTimeout  Code = "TIMEOUT"
	ErrCodeCompiler Code = "COMPILER_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
