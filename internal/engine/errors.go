package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error raised while executing a program.
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Category and Command identify the failing instruction, when known.
	Category string
	Command  string

	// Err is the underlying handler error.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeHandlerFailed indicates a handler returned an error.
	ErrCodeHandlerFailed RuntimeErrorCode = "HANDLER_FAILED"

	// ErrCodeHandlerPanic indicates a handler panicked.
	ErrCodeHandlerPanic RuntimeErrorCode = "HANDLER_PANIC"

	// ErrCodeInvalidParam indicates an instruction parameter has the wrong type.
	ErrCodeInvalidParam RuntimeErrorCode = "INVALID_PARAM"

	// ErrCodeQuotaExceeded indicates the program has more instructions than allowed.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Category != "" {
		return fmt.Sprintf("%s: %s.%s: %s", e.Code, e.Category, e.Command, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Detail returns the failing handler's own message, without the code or
// the instruction it came from.
func (e *RuntimeError) Detail() string {
	var inner *RuntimeError
	switch {
	case e.Err != nil && errors.As(e.Err, &inner):
		return inner.Detail()
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying handler error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsHandlerError returns true if err is a handler failure or panic.
// Uses errors.As to handle wrapped errors.
func IsHandlerError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeHandlerFailed || re.Code == ErrCodeHandlerPanic
	}
	return false
}

// IsQuotaError returns true if err is a quota exceeded error.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	return false
}

// invalidParam reports an instruction parameter of the wrong type.
func invalidParam(format string, args ...any) error {
	return &RuntimeError{Code: ErrCodeInvalidParam, Message: fmt.Sprintf(format, args...)}
}
