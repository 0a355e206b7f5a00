// Package configstore persists and restores full instrument
// configuration.
//
// A snapshot is an ordered sequence of command strings captured by
// querying every configuration section of the connected oscilloscope.
// Sections gated by an absent option (logic input, user-defined math)
// have their option-specific sub-fields stripped before persisting,
// because replaying them to a unit without the option raises a
// device-side error; the filter table in filter.go keys these rules by
// section and option token so they are independently testable.
//
// Oversized section replies are split by the chunker at section
// boundaries so no single write exceeds the instrument's safe
// transaction size.
//
// Snapshots live in numbered slot files (1..8) plus one shared backup
// slot. Every save and load writes the displaced or live state into the
// backup first, so exactly one level of undo is always available; the
// backup is consumed by the next undo or overwritten by the next
// mutating operation. Applying a snapshot is best effort: a command line
// that fails is logged and skipped, never rolled back mid-sequence.
package configstore
