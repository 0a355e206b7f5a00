// Package logging provides structured logging for scopectl.
//
// This package wraps zap logger with convenience functions for the logging
// patterns used throughout the tool. It provides both general logging
// functions and specialized helpers for instrument-protocol debugging.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (hex dumps of block transfers, per-command traffic)
//   - Info: Normal operations (connect, capture, save/load)
//   - Warn: Non-fatal issues (identify timeouts on a candidate, skipped command lines)
//   - Error: Fatal issues (startup failures, critical errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Oscilloscope connected",
//	    zap.String("addr", "usb:0b21:0001:2-1"),
//	    zap.String("family", "DL7480"),
//	    zap.String("options", "CH4MW,LOGIC,ETHER"),
//	)
//
// # Specialized Logging
//
// Transaction logging records every command sent to, and every reply read
// from, the oscilloscope:
//
//	logging.LogTransaction(addr, "write", "*IDN?;")
//	logging.LogTransaction(addr, "read", idn)
//
// Raw byte logging is used by the block codec when debugging image
// transfers:
//
//	logging.LogRawBytes("block payload", payload)
//
// # Configuration
//
// CLI commands are silent by default. Set SCOPECTL_LOG_LEVEL to enable
// output:
//
//	SCOPECTL_LOG_LEVEL=debug scopectl capture
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
