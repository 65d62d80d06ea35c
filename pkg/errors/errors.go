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

// Is matches any AppError carrying the same code, so sentinel comparisons
// work through fmt.Errorf wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrValidation
	ErrIllegalTransition
	ErrConflict
	ErrUnauthorized
	ErrInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not_found"
	case ErrValidation:
		return "validation"
	case ErrIllegalTransition:
		return "illegal_transition"
	case ErrConflict:
		return "conflict"
	case ErrUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error constructors
func NotFound(resource string, id fmt.Stringer) *AppError {
	msg := fmt.Sprintf("%s not found", resource)
	if id != nil {
		msg = fmt.Sprintf("%s %s not found", resource, id.String())
	}
	return &AppError{Code: ErrNotFound, Message: msg}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
		Err:     err,
	}
}

func IllegalTransition(from, to string) *AppError {
	return &AppError{
		Code:    ErrIllegalTransition,
		Message: fmt.Sprintf("illegal transition %s -> %s", from, to),
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrInternal when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

func IsNotFound(err error) bool          { return err != nil && CodeOf(err) == ErrNotFound }
func IsValidation(err error) bool        { return err != nil && CodeOf(err) == ErrValidation }
func IsIllegalTransition(err error) bool { return err != nil && CodeOf(err) == ErrIllegalTransition }
func IsConflict(err error) bool          { return err != nil && CodeOf(err) == ErrConflict }
