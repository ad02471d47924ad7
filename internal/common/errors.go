// Package common holds the error kinds shared by repositories, services and
// handlers. Match them with errors.Is; the message of a constructed error is
// safe to show to API clients.
package common

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// InvalidInput reports a missing or malformed field, or a rejected upload.
func InvalidInput(format string, args ...any) error {
	return newKind(ErrInvalidInput, format, args...)
}

// Unauthorized reports a missing session or failed credential check.
func Unauthorized(format string, args ...any) error {
	return newKind(ErrUnauthorized, format, args...)
}

// Conflict reports a uniqueness violation such as a taken username.
func Conflict(format string, args ...any) error {
	return newKind(ErrConflict, format, args...)
}

// NotFound reports an absent record, or one the caller does not own.
func NotFound(format string, args ...any) error {
	return newKind(ErrNotFound, format, args...)
}
