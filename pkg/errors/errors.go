// Package errors provides structured error types for boxdeck.
//
// Errors fall into three families, each with its own code prefix:
//   - INVALID_* and friends: usage errors raised while a document is being
//     constructed (bad size strings, conflicting insertion references, ...)
//   - ORACLE_* / BUILD_FAILED: measurement failures carrying the offending
//     key or command and the raw output of the external tool
//   - *_MISSING / *_UNAVAILABLE: resource errors reported once at startup
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidSize, "invalid size string %q", s)
//	if errors.Is(err, errors.ErrCodeInvalidSize) {
//	    // Handle usage error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeOracleFailed, origErr, "query %s", key)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Usage errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidSize     Code = "INVALID_SIZE"
	ErrCodeInvalidPosition Code = "INVALID_POSITION"
	ErrCodeInvalidSelector Code = "INVALID_SELECTOR"
	ErrCodeInvalidInsert   Code = "INVALID_INSERT"
	ErrCodeInvalidKind     Code = "INVALID_KIND"
	ErrCodeSiblingNotFound Code = "SIBLING_NOT_FOUND"
	ErrCodeDuplicateName   Code = "DUPLICATE_NAME"
	ErrCodeUnresolved      Code = "UNRESOLVED"

	// Measurement errors
	ErrCodeOracleProtocol Code = "ORACLE_PROTOCOL"
	ErrCodeOracleFailed   Code = "ORACLE_FAILED"
	ErrCodeBuildFailed    Code = "BUILD_FAILED"

	// Resource errors
	ErrCodeOracleMissing    Code = "ORACLE_MISSING"
	ErrCodeCacheUnavailable Code = "CACHE_UNAVAILABLE"

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

// IsUsage reports whether err is a construction-time usage error.
func IsUsage(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidSize, ErrCodeInvalidPosition,
		ErrCodeInvalidSelector, ErrCodeInvalidInsert, ErrCodeInvalidKind,
		ErrCodeSiblingNotFound, ErrCodeDuplicateName:
		return true
	}
	return false
}

// OracleError describes a failed exchange with the measurement oracle.
// Command is the command (or query key) that was issued and Output the raw
// text the oracle produced for it.
type OracleError struct {
	Command string
	Output  string
	Err     error
}

// Error implements the error interface.
func (e *OracleError) Error() string {
	msg := fmt.Sprintf("oracle command %q", e.Command)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Output != "" {
		msg += fmt.Sprintf(" (output: %q)", e.Output)
	}
	return msg
}

// Unwrap returns the wrapped error.
func (e *OracleError) Unwrap() error { return e.Err }
