package transport

import "time"

const (
	// DefaultTimeout is the per-call deadline applied to a transport until
	// the session configures one
	DefaultTimeout = 5 * time.Second

	// LineTerminator terminates every ASCII command and reply on the wire
	LineTerminator = '\n'
)

// Transport is one exclusive byte-oriented connection to an instrument.
//
// Implementations are not safe for concurrent use; the instrument is a
// single physical resource and callers serialize access to it. Every read
// blocks up to the configured timeout and surfaces a *TransportError on
// expiry.
type Transport interface {
	// Write sends an ASCII command string, appending the line terminator
	// if the string does not already end with one.
	Write(s string) error

	// ReadByte reads exactly one byte.
	ReadByte() (byte, error)

	// ReadExact reads exactly n bytes, blocking until all n have arrived
	// or the timeout expires.
	ReadExact(n int) ([]byte, error)

	// ReadLine reads up to and including the line terminator and returns
	// the line without it.
	ReadLine() (string, error)

	// SetTimeout sets the deadline applied to each subsequent call.
	SetTimeout(d time.Duration)

	// Timeout returns the currently configured per-call deadline.
	Timeout() time.Duration

	// Addr returns a human-readable address for the connection.
	Addr() string

	// Close releases the connection. Close is idempotent.
	Close() error
}

// CandidateSource enumerates candidate instrument connections for
// discovery. The session opens every candidate, probes it, keeps the first
// match and closes the rest.
type CandidateSource interface {
	// Candidates opens every candidate connection matching the source's
	// filter. The caller owns the returned transports and must close each
	// one it does not keep.
	Candidates() ([]Transport, error)

	// Close releases resources held by the source (for USB, the libusb
	// context). Must be called only after every retained transport is
	// closed.
	Close() error
}

// MultiSource chains several candidate sources into one, preserving
// order: USB candidates before network candidates gives local units
// priority during discovery.
type MultiSource []CandidateSource

// Candidates concatenates the candidates of every underlying source. A
// source that fails to enumerate is skipped; its candidates are simply
// absent.
func (m MultiSource) Candidates() ([]Transport, error) {
	var all []Transport
	for _, src := range m {
		cands, err := src.Candidates()
		if err != nil {
			continue
		}
		all = append(all, cands...)
	}
	return all, nil
}

// Close closes every underlying source, returning the first error
func (m MultiSource) Close() error {
	var first error
	for _, src := range m {
		if err := src.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
