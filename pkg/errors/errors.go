package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrConflict
	ErrInternal

	// Synchronization pipeline codes. Parsing and integrity faults are
	// fatal at run level; rollback failure requires operator intervention.
	ErrParsing
	ErrIntegrity
	ErrRollbackFailed
)

func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func NewConflict(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
		Err:     err,
	}
}

// NewParsing wraps a file-level parsing fault. The caller must abort
// before any mutation occurs.
func NewParsing(message string, err error) *AppError {
	return &AppError{
		Code:    ErrParsing,
		Message: message,
		Err:     err,
	}
}

// NewIntegrity wraps a post-merge integrity violation, which triggers
// rollback of the whole run.
func NewIntegrity(message string, err error) *AppError {
	return &AppError{
		Code:    ErrIntegrity,
		Message: message,
		Err:     err,
	}
}

// NewRollbackFailed marks a failed restore; the organization's data may be
// left partially mutated and needs a manual audit.
func NewRollbackFailed(err error) *AppError {
	return &AppError{
		Code:    ErrRollbackFailed,
		Message: "backup restore failed",
		Err:     err,
	}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
