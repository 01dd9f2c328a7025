package errors

import (
	"fmt"
	"runtime"
)

// Category represents the type of error.
type Category string

const (
	CategoryRuntime Category = "runtime"
	CategoryState   Category = "state"
	CategoryConfig  Category = "config"
	CategoryStorage Category = "storage"
	CategoryCLI     Category = "cli"
)

// Location represents a source code location.
type Location struct {
	File string
	Line int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Error is a structured error with a registered code, an optional source
// location and a fix suggestion.
type Error struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type (runtime, config, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the call site that triggered the error, if known.
	Location *Location

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCaller records the location of the caller skip frames above the
// function that calls WithCaller.
func (e *Error) WithCaller(skip int) *Error {
	if _, file, line, ok := runtime.Caller(skip + 1); ok {
		e.Location = &Location{File: file, Line: line}
	}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail replaces the detailed explanation.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an Error.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if he, ok := err.(*Error); ok {
		return he
	}
	return New(code).Wrap(err)
}
