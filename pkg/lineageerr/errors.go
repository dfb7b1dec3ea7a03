// Package lineageerr defines the error kinds the lineage core reports to
// its caller. Only ConfigError and NotFoundError ever cross that boundary;
// LookupMiss and ParseError are logged by the engine that hit them and
// otherwise swallowed.
package lineageerr

import (
	"errors"
	"fmt"
)

// Code identifies an error kind independent of any transport. A caller's
// own API layer is free to map these to HTTP statuses, exit codes, etc.
type Code string

const (
	CodeConfig     Code = "CONFIG_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeLookupMiss Code = "LOOKUP_MISS"
	CodeParse      Code = "PARSE_ERROR"
)

// Error is a structured error carrying a stable Code alongside the usual
// message/cause.
type Error struct {
	code    Code
	message string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{code: code, message: message, cause: cause}
}

func (e *Error) Code() Code { return e.code }

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.cause }

// Config builds a fatal ConfigError — artifact files missing/unreadable,
// project directory not found.
func Config(message string, cause error) *Error {
	return Wrap(CodeConfig, message, cause)
}

// NotFound builds the sentinel cte_dependency returns when its source
// model can't be resolved or has no compiled SQL to decompose.
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.code == CodeNotFound
}

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.code == CodeConfig
}
