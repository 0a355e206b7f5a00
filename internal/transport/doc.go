// Package transport provides byte-oriented connections to the
// oscilloscope.
//
// Two backends implement the Transport interface:
//
//   - USBTransport: raw bulk-endpoint I/O over google/gousb. The DL74x0
//     enumerates as a raw USB device, so there is no USBTMC header
//     framing; command strings and block replies travel as plain bytes.
//   - TCPTransport: the raw SCPI socket exposed by instruments fitted
//     with the Ethernet option (port 10001).
//
// A CandidateSource enumerates candidate connections for discovery. The
// USBHost source opens every device matching the vendor-ID filter; the
// session probes each with an identification query, keeps the first
// match and closes the rest.
//
// All reads and writes block up to the transport's configured timeout and
// surface a *TransportError on failure. Transports are not safe for
// concurrent use; the instrument is one exclusive physical connection.
package transport
