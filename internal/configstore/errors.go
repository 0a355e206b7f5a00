package configstore

import (
	"errors"
	"fmt"
)

// StoreErrorKind represents the category of configuration-store failure
type StoreErrorKind int

const (
	// ErrKindNotConnected indicates no identified session was available
	ErrKindNotConnected StoreErrorKind = iota
	// ErrKindNoResponse indicates a configuration query returned nothing
	ErrKindNoResponse
	// ErrKindMissingSnapshot indicates the requested slot or backup file
	// is absent
	ErrKindMissingSnapshot
	// ErrKindPersist indicates a slot or backup file write failed
	ErrKindPersist
	// ErrKindInvalidSlot indicates a slot number outside 1..8
	ErrKindInvalidSlot
)

// String returns a human-readable name for the error kind
func (k StoreErrorKind) String() string {
	switch k {
	case ErrKindNotConnected:
		return "Not Connected"
	case ErrKindNoResponse:
		return "No Response"
	case ErrKindMissingSnapshot:
		return "Missing Snapshot"
	case ErrKindPersist:
		return "Persist Error"
	case ErrKindInvalidSlot:
		return "Invalid Slot"
	default:
		return fmt.Sprintf("StoreErrorKind(%d)", k)
	}
}

// StoreError represents a failed save/load/undo operation. Message is the
// short status text shown to the user.
type StoreError struct {
	Kind    StoreErrorKind
	Message string
	Err     error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Message returns the short user-facing status text for an error,
// falling back to Error() for foreign errors
func Message(err error) string {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// IsMissingSnapshot checks if an error reports an absent slot or backup
func IsMissingSnapshot(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind == ErrKindMissingSnapshot
	}
	return false
}
