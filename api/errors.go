// File: api/errors.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later
//
// Common error types and classification helpers for the nebula engine.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	// ErrWouldBlock marks a transient I/O condition: the operation cannot
	// proceed now and should be retried on the next readiness notification.
	ErrWouldBlock = fmt.Errorf("operation would block")
	// ErrClosed is returned by operations on a descriptor that is no
	// longer open.
	ErrClosed = fmt.Errorf("descriptor is closed")
	// ErrAlreadyRegistered is returned when registering a descriptor that
	// is already registered.
	ErrAlreadyRegistered = fmt.Errorf("descriptor already registered")
	// ErrNotRegistered is returned when modifying or unregistering a
	// descriptor that was never registered.
	ErrNotRegistered = fmt.Errorf("descriptor not registered")
	// ErrCapacity is returned synchronously by a bounded backend when a
	// descriptor identifier exceeds its maximum.
	ErrCapacity = fmt.Errorf("descriptor exceeds backend capacity")
	// ErrNotSupported is returned when the requested multiplexing
	// mechanism is unavailable on this platform.
	ErrNotSupported = fmt.Errorf("mechanism not supported")
	// ErrLoopStopped is returned by operations that require a running
	// event loop.
	ErrLoopStopped = fmt.Errorf("event loop is stopped")
)

// IsTransient reports whether err is a retry-later condition rather than a
// fatal descriptor fault.
func IsTransient(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}

// ErrorCode classifies faults reported through the loop's fault hook.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeHandlerFault
	ErrCodeTimerFault
	ErrCodeDescriptorFault
	ErrCodeBackendFault
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeHandlerFault:
		return "handler_fault"
	case ErrCodeTimerFault:
		return "timer_fault"
	case ErrCodeDescriptorFault:
		return "descriptor_fault"
	case ErrCodeBackendFault:
		return "backend_fault"
	default:
		return "unknown"
	}
}

// Error is a structured fault with a classification code and free-form
// context, suitable for one-way reporting to a diagnostic sink.
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
