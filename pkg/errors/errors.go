// Package errors provides structured error types for the gitsu application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the core engine
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes mirror the classic package-manager conventions:
//   - EWORKING: a resolve run is already in progress
//   - ECONFLICT: incompatible versions with no applicable resolution
//   - ENOTFOUND: missing packages or revisions
//   - ENETWORK / ETIMEOUT: transport failures
//
// # Usage
//
//	err := errors.New(errors.ECONFLICT, "unable to find suitable version for %s", name)
//	if errors.Is(err, errors.ECONFLICT) {
//	    // Display candidates and bail
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ENETWORK, origErr, "failed to fetch %s", source)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Resolution errors
	EWORKING     Code = "EWORKING"
	ECONFLICT    Code = "ECONFLICT"
	ENORESTARGET Code = "ENORESTARGET"

	// Endpoint and manifest errors
	EINVEP    Code = "EINVEP"
	EMANIFEST Code = "EMANIFEST"

	// Resource not found errors
	ENOTFOUND Code = "ENOTFOUND"

	// Network errors
	ENETWORK Code = "ENETWORK"
	ETIMEOUT Code = "ETIMEOUT"

	// Internal errors
	EINTERNAL Code = "EINTERNAL"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)

	// Data carries a diagnostic payload for display (e.g., conflict picks).
	Data any
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

// GetData extracts the diagnostic payload from an error, if available.
func GetData(err error) any {
	var e *Error
	if errors.As(err, &e) {
		return e.Data
	}
	return nil
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
