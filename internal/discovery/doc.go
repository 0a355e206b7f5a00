// Package discovery provides mDNS-based discovery of network-attached
// instruments.
//
// This package implements multicast DNS (mDNS) service discovery to
// locate LXI-style instruments that advertise a raw SCPI command socket
// using the "_scpi-raw._tcp" service type. It is the fallback path when
// no oscilloscope answers on USB.
//
// # Discovery Process
//
//  1. Broadcasts mDNS queries on the local network
//  2. Listens for service advertisements from instruments
//  3. Collects instrument information (hostname, IP, port, TXT metadata)
//  4. Returns the list of discovered instruments after the timeout
//
// # Usage Example
//
//	instruments, err := discovery.Scan(5 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, inst := range instruments {
//	    fmt.Printf("Found: %s\n", inst)
//	}
//
// A discovered instrument yields a transport candidate source via
// Source(), which plugs directly into the session connect loop.
//
// # Network Requirements
//
//   - Requires multicast support on the network interface
//   - Instruments must be on the same local network segment
//   - Firewall must allow mDNS (UDP port 5353)
//
// # Thread Safety
//
// This package is safe for concurrent use. Multiple discovery sessions
// can run simultaneously without interference.
package discovery
