package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EINVALID     = "invalid_input"       // Local precondition failure or command invoked in the wrong state
	EBACKEND     = "backend_error"       // Remote service returned an error or unusable data
	EUNREACHABLE = "backend_unreachable" // Network/transport failure talking to the backend
	EINTERNAL    = "internal"            // Internal error
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "workflow.select_image")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code, op, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the code of the outermost Error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the outermost Error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// ErrorCause returns the first underlying error that is not an *Error,
// or nil if the chain carries none.
func ErrorCause(err error) error {
	for err != nil {
		e, ok := err.(*Error)
		if !ok {
			return err
		}
		err = e.Err
	}
	return nil
}

// IsInvalidInput reports whether err carries the EINVALID code.
func IsInvalidInput(err error) bool {
	return err != nil && ErrorCode(err) == EINVALID
}

// IsBackendError reports whether err carries the EBACKEND code.
func IsBackendError(err error) bool {
	return err != nil && ErrorCode(err) == EBACKEND
}

// IsBackendUnreachable reports whether err carries the EUNREACHABLE code.
func IsBackendUnreachable(err error) bool {
	return err != nil && ErrorCode(err) == EUNREACHABLE
}

// Convenience constructors for common error types

// Invalid creates an invalid input error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Backend creates a backend error, wrapping the underlying cause.
func Backend(err error, op, message string) *Error {
	return &Error{
		Code:    EBACKEND,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Unreachable creates a transport failure error, wrapping the underlying cause.
func Unreachable(err error, op, message string) *Error {
	return &Error{
		Code:    EUNREACHABLE,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents field-level validation errors on a backend payload.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			return fmt.Sprintf("%s: validation failed: %s: %s", e.Op, field, msg)
		}
	}
	return fmt.Sprintf("%s: validation failed", e.Op)
}

// NewValidationError creates a new validation error with the first field error.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{
		Op: op,
		Fields: map[string]string{
			field: message,
		},
	}
}

// AddFieldError adds a field error to an existing validation error.
// If err is not a ValidationError, returns a new one.
func AddFieldError(err error, field, message string) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}
	return NewValidationError("", field, message)
}
