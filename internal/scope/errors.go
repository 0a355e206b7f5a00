package scope

import (
	"errors"
	"fmt"

	"github.com/hfujise/scopectl/internal/transport"
)

// ErrorKind represents the category of instrument error that occurred
type ErrorKind int

const (
	// KindDiscovery indicates no matching oscilloscope was found
	KindDiscovery ErrorKind = iota
	// KindFraming indicates a malformed block frame (bad start marker,
	// digit count or length field)
	KindFraming
	// KindTimeout indicates a read or write exceeded its deadline
	KindTimeout
	// KindNotConnected indicates an operation was attempted without an
	// identified session
	KindNotConnected
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindDiscovery:
		return "Discovery Failure"
	case KindFraming:
		return "Protocol Framing Error"
	case KindTimeout:
		return "Transport Timeout"
	case KindNotConnected:
		return "Not Connected"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// ScopeError represents a failed instrument operation. Device-transaction
// failures never propagate as raw faults above the session boundary; they
// are wrapped here with a short user-facing message.
type ScopeError struct {
	Kind    ErrorKind // Category of error
	Message string    // Short user-facing message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *ScopeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ScopeError) Unwrap() error {
	return e.Err
}

// NewFramingError creates a block-framing error
func NewFramingError(message string, err error) *ScopeError {
	// A timed-out read mid-frame is a timeout, not a framing defect
	if transport.IsTimeout(err) {
		return &ScopeError{Kind: KindTimeout, Message: message, Err: err}
	}
	return &ScopeError{Kind: KindFraming, Message: message, Err: err}
}

// NewTimeoutError creates a transport-timeout error
func NewTimeoutError(message string, err error) *ScopeError {
	return &ScopeError{Kind: KindTimeout, Message: message, Err: err}
}

// NewNotConnectedError creates an error for operations without a session
func NewNotConnectedError() *ScopeError {
	return &ScopeError{Kind: KindNotConnected, Message: "Oscilloscope not found"}
}

// IsFramingError checks if an error is a block-framing error
func IsFramingError(err error) bool {
	var se *ScopeError
	if errors.As(err, &se) {
		return se.Kind == KindFraming
	}
	return false
}

// IsTimeoutError checks if an error is a transport timeout
func IsTimeoutError(err error) bool {
	var se *ScopeError
	if errors.As(err, &se) {
		return se.Kind == KindTimeout
	}
	return transport.IsTimeout(err)
}

// IsNotConnected checks if an error indicates a missing session
func IsNotConnected(err error) bool {
	var se *ScopeError
	if errors.As(err, &se) {
		return se.Kind == KindNotConnected || se.Kind == KindDiscovery
	}
	return false
}
