// Package scope implements the instrument session layer for Yokogawa
// DL74x0-family oscilloscopes.
//
// A Session owns one exclusive transport connection for its whole
// lifetime: Connect enumerates candidate connections, probes each with an
// identification query under a short deadline, binds to the first reply
// matching a known model family and closes every other candidate.
// Identification also records the installed option tokens (LOGIC,
// USERDEFINE, ...), which gate the configuration sections that are valid
// to exchange with the unit.
//
// The package also contains the block codec for the instrument's
// length-prefixed binary transfer format ('#' + digit count + ASCII
// decimal length + payload), used by CaptureImage to pull JPEG
// screenshots.
//
// All failures surface as *ScopeError values with short user-facing
// messages; raw transport faults never cross this boundary. On any
// mid-protocol timeout the session writes a best-effort *CLS so the
// instrument stays recoverable.
package scope
