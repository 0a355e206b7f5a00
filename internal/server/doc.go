// Package server implements the remote panel HTTP server.
//
// The server exposes the connected oscilloscope to remote clients:
// screenshot capture, configuration slot save/load and their undos, and
// a status endpoint describing the identified unit. A websocket feed at
// /events notifies connected panels about every mutating operation so
// multiple viewers stay in sync.
//
// # Endpoints
//
//	GET  /api/status            instrument identity and options (JSON)
//	GET  /api/screenshot        capture the display (image/jpeg)
//	POST /api/slots/{n}/save    save configuration to slot n
//	POST /api/slots/{n}/load    load configuration from slot n
//	POST /api/undo/save         revert the most recent save
//	POST /api/undo/load         revert the most recent load
//	GET  /events                websocket event feed
//
// # Concurrency
//
// The instrument processes one transaction at a time. Every controller
// call is serialized behind a mutex, so concurrent HTTP requests queue
// on the wire order instead of interleaving commands.
package server
