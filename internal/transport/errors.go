package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/google/gousb"
)

// ErrorType represents the category of transport error that occurred
type ErrorType int

const (
	// ErrTypeIO indicates a low-level read/write failure
	ErrTypeIO ErrorType = iota
	// ErrTypeTimeout indicates a read or write exceeded its deadline
	ErrTypeTimeout
	// ErrTypeClosed indicates the transport was used after Close
	ErrTypeClosed
	// ErrTypeEnumerate indicates device enumeration failed
	ErrTypeEnumerate
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeIO:
		return "I/O Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeClosed:
		return "Transport Closed"
	case ErrTypeEnumerate:
		return "Enumeration Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// TransportError represents an error on the instrument connection
type TransportError struct {
	Type    ErrorType // Category of error
	Addr    string    // Connection address (for context)
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewIOError creates a low-level I/O error with automatic timeout
// classification
func NewIOError(addr, message string, err error) *TransportError {
	if isTimeout(err) {
		return &TransportError{Type: ErrTypeTimeout, Addr: addr, Message: message, Err: err}
	}
	return &TransportError{Type: ErrTypeIO, Addr: addr, Message: message, Err: err}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(addr, message string, err error) *TransportError {
	return &TransportError{Type: ErrTypeTimeout, Addr: addr, Message: message, Err: err}
}

// NewClosedError creates an error for use-after-close
func NewClosedError(addr string) *TransportError {
	return &TransportError{Type: ErrTypeClosed, Addr: addr, Message: "transport is closed"}
}

// NewEnumerateError creates a device-enumeration error
func NewEnumerateError(message string, err error) *TransportError {
	return &TransportError{Type: ErrTypeEnumerate, Message: message, Err: err}
}

// IsTimeout checks if an error is (or wraps) a transport timeout
func IsTimeout(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrTypeTimeout
	}
	return isTimeout(err)
}

// isTimeout classifies the raw errors the USB and TCP backends produce on
// deadline expiry
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, gousb.TransferTimedOut) || errors.Is(err, gousb.ErrorTimeout) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return os.IsTimeout(err)
}
