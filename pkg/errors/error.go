// Package errors provides coded errors for the floor-sheet pipeline.
//
// Codes are grouped by the stage that raises them:
//   - General errors (1-99)
//   - Validation errors (100-199): configuration, horizons, thresholds, periods
//   - Ingestion errors (200-299): raw floor-sheet discovery, coercion and normalized output
//   - Feature errors (300-399): indicator lookup and calculation
//   - Storage errors (400-499): persisted table reads and writes
//   - Training errors (500-599): training data, model artifact state, run locking
//   - Evaluation errors (600-699): metric computation and history persistence
//   - Prediction errors (700-799): model or feature availability at prediction time
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeDataNotFound, "no technical features in %s", path)
//	err = errors.Wrap(errors.ErrCodeNoTrainingData, "no training data", err)
//
//	if errors.HasCode(err, errors.ErrCodeArtifactCorrupt) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error is a failure carrying an ErrorCode and an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates an Error without a cause.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is wraps the standard errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps the standard errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the outermost *Error in err's chain, or ErrCodeUnknown.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode reports whether err's outermost code is code.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// InsufficientDataError reports that a symbol has fewer observations than a computation needs,
// such as a series too short to give any row a forward close.
type InsufficientDataError struct {
	Required int
	Actual   int
	Symbol   string
	Message  string
}

func NewInsufficientDataError(required, actual int, symbol, message string) *InsufficientDataError {
	return &InsufficientDataError{Required: required, Actual: actual, Symbol: symbol, Message: message}
}

func NewInsufficientDataErrorf(required, actual int, symbol, format string, args ...any) *InsufficientDataError {
	return NewInsufficientDataError(required, actual, symbol, fmt.Sprintf(format, args...))
}

func (e *InsufficientDataError) Error() string {
	return e.Message
}
