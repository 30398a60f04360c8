package pluginapi

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable error class carried on the wire.
type ErrorKind string

const (
	ProtocolError      ErrorKind = "protocol_error"
	ValidationError    ErrorKind = "validation_error"
	CapabilityMissing  ErrorKind = "capability_missing"
	UnsupportedAction  ErrorKind = "unsupported_action"
	InvalidState       ErrorKind = "invalid_state"
	TimeoutError       ErrorKind = "timeout"
	ProcessExitedError ErrorKind = "process_exited"
	InternalError      ErrorKind = "internal_error"
)

// ErrorInfo is the error payload of a response envelope.
type ErrorInfo struct {
	Kind    ErrorKind              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Err converts the wire payload back into an *Error.
func (i *ErrorInfo) Err() *Error {
	return &Error{Kind: i.Kind, Message: i.Message, Details: i.Details}
}

// Error is a protocol error with a machine-readable kind. Use errors.As to
// recover it from wrapped chains and IsKind to test the class.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Info returns the wire form of the error.
func (e *Error) Info() *ErrorInfo {
	return &ErrorInfo{Kind: e.Kind, Message: e.Message, Details: e.Details}
}

// WithDetails attaches structured detail fields and returns the error.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// NewError builds an *Error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err carries the given error kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// KindOf returns the error kind of err, or InternalError for errors that do
// not carry one.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return InternalError
}
