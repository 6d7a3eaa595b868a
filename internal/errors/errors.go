package errors

import "fmt"

// ErrorCode represents a SnipBoard error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrSectionLocked  ErrorCode = "SECTION_LOCKED"  // 423
	ErrTransport      ErrorCode = "TRANSPORT"       // 502
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// SnipError represents a structured error with code, status, and details.
type SnipError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *SnipError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SnipError {
	return &SnipError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a clip, section, or asset that
// cannot be found.
func NewNotFound(identifier string) *SnipError {
	return &SnipError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewSectionLocked creates a 423 error for a delete blocked by a locked
// section.
func NewSectionLocked(sectionID string) *SnipError {
	return &SnipError{
		Code:    ErrSectionLocked,
		Status:  423,
		Message: fmt.Sprintf("clip is in locked section %q", sectionID),
		Details: map[string]any{"section_id": sectionID},
	}
}

// NewTransport creates a 502 error for an unreachable gateway.
func NewTransport(err error) *SnipError {
	msg := "gateway unreachable"
	if err != nil {
		msg = err.Error()
	}
	return &SnipError{
		Code:    ErrTransport,
		Status:  502,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SnipError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SnipError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a SnipError with the given code.
func Is(err error, code ErrorCode) bool {
	if sErr, ok := err.(*SnipError); ok {
		return sErr.Code == code
	}
	return false
}
