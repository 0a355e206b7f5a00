// Package panel implements the interactive terminal front panel.
//
// The panel is a single-screen bubbletea application showing the
// identified instrument, a selector for the eight configuration slots,
// and the result of the last operation. Key bindings cover screenshot
// capture, slot save/load and both undos; a spinner runs while an
// operation is in flight and further input is ignored until it
// completes, because the instrument handles one transaction at a time.
//
// The panel drives the same controller interface the remote panel
// server exposes, so both surfaces stay in behavioral lockstep.
package panel
