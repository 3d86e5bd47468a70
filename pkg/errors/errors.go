// Package errors provides structured error types for isomill.
//
// Every failure the toolpath pipeline can report falls into one of a few
// categories, each identified by a machine-readable [Code]:
//   - INVALID_CONFIG: option validation failed before any stage ran
//   - INVALID_RASTER: the input image could not be decoded or is empty
//   - DEGENERATE_GEOMETRY: a contour simplified to fewer than three vertices
//   - IO_FAILURE: the downstream writer failed while emitting the program
//
// Cancellation is not an error category here. Stages return ctx.Err() together
// with their partial result and callers test it with the standard errors.Is.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "plunge feedrate must be > 0, got %g", f)
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // reject the job
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "write %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the pipeline's failure categories.
const (
	ErrCodeInvalidConfig      Code = "INVALID_CONFIG"
	ErrCodeInvalidRaster      Code = "INVALID_RASTER"
	ErrCodeDegenerateGeometry Code = "DEGENERATE_GEOMETRY"
	ErrCodeIO                 Code = "IO_FAILURE"
	ErrCodeInternal           Code = "INTERNAL_ERROR"
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
