// Package errors provides structured error types for backdrop.
//
// The pattern core never returns errors: invalid families or degenerate
// sizes are programmer errors and panic. Everything around it (option
// parsing, the catalog, caches, the CLI and the preview server) reports
// failures as [*Error] values carrying a machine-readable [Code], so callers
// can map them to exit codes and HTTP statuses without string matching.
//
// # Error Codes
//
//   - INVALID_*: input validation failures
//   - *_NOT_FOUND: missing levels, files or cached artifacts
//   - CACHE_UNAVAILABLE: a remote cache backend could not be reached
//   - BIAS_RESIDUAL: strict mode rejected a field that stayed center biased
//   - SNAPSHOT_DRIFT: a compared snapshot moved past the allowed error
//   - INTERNAL_ERROR, UNSUPPORTED: everything else
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidFamily, "unknown family %q", name)
//	if errors.Is(err, errors.ErrCodeInvalidFamily) {
//	    // Handle validation error
//	}
//
//	err := errors.Wrap(errors.ErrCodeCacheUnavailable, origErr, "redis %s", addr)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidFamily  Code = "INVALID_FAMILY"
	ErrCodeInvalidDensity Code = "INVALID_DENSITY"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidCatalog Code = "INVALID_CATALOG"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeLevelNotFound Code = "LEVEL_NOT_FOUND"
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"

	// Backend errors
	ErrCodeCacheUnavailable Code = "CACHE_UNAVAILABLE"
	ErrCodeTimeout          Code = "TIMEOUT"

	// Generation errors
	ErrCodeBiasResidual Code = "BIAS_RESIDUAL"
	ErrCodeDrift        Code = "SNAPSHOT_DRIFT"

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

// UserMessage returns the message without the code prefix for *Error
// values and err.Error() otherwise.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// BiasError reports a tier whose center/periphery ratio stayed above the
// threshold after correction.
type BiasError struct {
	Tier  string
	Ratio float64
	Limit float64
}

// Error implements the error interface.
func (e *BiasError) Error() string {
	return fmt.Sprintf("%s tier still center biased: ratio %.3f > %.2f", e.Tier, e.Ratio, e.Limit)
}

// Code returns ErrCodeBiasResidual.
func (e *BiasError) Code() Code {
	return ErrCodeBiasResidual
}

// ExitCode maps an error to a process exit status for the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var be *BiasError
	if errors.As(err, &be) {
		return 3
	}
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidFamily, ErrCodeInvalidDensity,
		ErrCodeInvalidFormat, ErrCodeInvalidCatalog, ErrCodeInvalidPath:
		return 2
	case ErrCodeBiasResidual:
		return 3
	case ErrCodeDrift:
		return 4
	}
	return 1
}
