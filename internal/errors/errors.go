package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a grabtext error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrBusy              ErrorCode = "BUSY"               // 409
	ErrConfig            ErrorCode = "CONFIG_ERROR"       // 412
	ErrCaptureFailed     ErrorCode = "CAPTURE_FAILED"     // 500, fatal to one capture
	ErrRecognitionFailed ErrorCode = "RECOGNITION_FAILED" // 502, never fatal to a capture
	ErrStore             ErrorCode = "STORE_ERROR"        // 503
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// GrabError represents a structured error with code, status, and details.
type GrabError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Err is the underlying cause, if any. It is never shown to MCP clients.
	Err error
}

// Error implements the error interface.
func (e *GrabError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *GrabError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *GrabError {
	return &GrabError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a capture entry cannot be found.
func NewNotFound(identifier string) *GrabError {
	return &GrabError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("capture not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewBusy creates a 409 error when a capture is already in flight.
func NewBusy() *GrabError {
	return &GrabError{
		Code:    ErrBusy,
		Status:  409,
		Message: "another capture is in progress",
	}
}

// NewConfig creates an error for a missing or invalid setting.
func NewConfig(setting, msg string) *GrabError {
	return &GrabError{
		Code:    ErrConfig,
		Status:  412,
		Message: msg,
		Details: map[string]any{"setting": setting},
	}
}

// NewCaptureFailed creates an error for a failed pixel read or artifact write.
// No entry is recorded when this is returned.
func NewCaptureFailed(stage string, err error) *GrabError {
	msg := fmt.Sprintf("capture failed during %s", stage)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &GrabError{
		Code:    ErrCaptureFailed,
		Status:  500,
		Message: msg,
		Details: map[string]any{"stage": stage},
		Err:     err,
	}
}

// NewRecognitionFailed creates an error for a failed backend call.
func NewRecognitionFailed(backend string, err error) *GrabError {
	msg := fmt.Sprintf("text recognition via %s failed", backend)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &GrabError{
		Code:    ErrRecognitionFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"backend": backend},
		Err:     err,
	}
}

// NewStore creates an error for an unavailable persistence layer.
func NewStore(err error) *GrabError {
	msg := "result store unavailable"
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &GrabError{
		Code:    ErrStore,
		Status:  503,
		Message: msg,
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *GrabError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &GrabError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err, or anything it wraps, is a GrabError with the given code.
func Is(err error, code ErrorCode) bool {
	var gErr *GrabError
	if stderrors.As(err, &gErr) {
		return gErr.Code == code
	}
	return false
}

// As returns err as a *GrabError, wrapping unknown errors as INTERNAL.
func As(err error) *GrabError {
	var gErr *GrabError
	if stderrors.As(err, &gErr) {
		return gErr
	}
	return NewInternal(err)
}
