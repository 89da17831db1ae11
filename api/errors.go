// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-clk.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrClosed            = errors.New("resource is closed")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrNotSupported      = errors.New("operation not supported")
	ErrNotFound          = errors.New("resource not found")
	ErrApplyFailed       = errors.New("hardware apply failed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeNotSupported
	ErrCodeNotFound
	ErrCodeApplyFailed
	ErrCodeInternal
)

// sentinel maps a code to the exported error matched by errors.Is.
func (c ErrorCode) sentinel() error {
	switch c {
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeResourceExhausted:
		return ErrResourceExhausted
	case ErrCodeNotSupported:
		return ErrNotSupported
	case ErrCodeNotFound:
		return ErrNotFound
	case ErrCodeApplyFailed:
		return ErrApplyFailed
	default:
		return nil
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the sentinel for the error code so callers can use errors.Is.
func (e *Error) Unwrap() error {
	return e.Code.sentinel()
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
