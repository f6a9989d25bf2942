package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// maxIDLength bounds node and edge identifiers accepted from a payload.
const maxIDLength = 1024

// ValidateID validates a node or edge identifier received from the compiler.
//
// Rules:
//   - No empty identifiers
//   - No control characters (they break DOT quoting)
//   - Maximum length of 1024 characters
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeMalformedPayload, "identifier cannot be empty")
	}

	if len(id) > maxIDLength {
		return New(ErrCodeMalformedPayload, "identifier too long (max %d characters)", maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeMalformedPayload, "identifier %q contains control characters", id)
		}
	}

	return nil
}

// ValidateModulePath validates a module file path sent to the compiler.
// The compiler imports modules by file, so only .py and .pyc files are accepted.
//
// Validation rules:
//   - Path cannot be empty
//   - No null bytes or control characters
//   - Extension must be .py or .pyc
func ValidateModulePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "module path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "module path contains invalid characters")
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".py", ".pyc":
		return nil
	default:
		return New(ErrCodeInvalidPath, "module path %q must end with .py or .pyc", path)
	}
}
