package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every AppError unwraps to exactly one of them.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrValidation      = errors.New("validation failed")
)

// AppError is a domain error carrying a stable code for API clients.
type AppError struct {
	Kind    error
	Code    string
	Message string
	Details map[string]string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Kind
}

func NewNotFound(code, format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewForbidden(code, format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrForbidden, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewUnauthenticated(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrUnauthenticated, Code: "UNAUTHENTICATED", Message: fmt.Sprintf(format, args...)}
}

func NewValidation(code, format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches per-field messages.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// ErrorCode returns the AppError code carried by err, or "" when err is not an AppError.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
