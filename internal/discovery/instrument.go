package discovery

import (
	"fmt"
	"strings"
	"time"

	"github.com/hfujise/scopectl/internal/transport"
)

// Instrument represents a discovered network-attached instrument
type Instrument struct {
	// Name is the mDNS instance name (e.g., "DL7480 Digital Oscilloscope")
	Name string

	// Hostname is the mDNS hostname (e.g., "dl7480-lab2.local.")
	Hostname string

	// IP is the resolved address, IPv4 preferred
	IP string

	// Port is the raw SCPI socket port (typically 10001)
	Port int

	// Metadata contains additional mDNS TXT record data
	// Common fields: "Manufacturer=YOKOGAWA", "Model=701470"
	Metadata map[string]string

	// DiscoveredAt is when the instrument was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable representation of the instrument
func (i *Instrument) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d", i.Name, i.Hostname, i.IP, i.Port)
}

// Addr returns the socket address of the instrument's SCPI port
func (i *Instrument) Addr() string {
	return fmt.Sprintf("%s:%d", i.IP, i.Port)
}

// Source returns a transport candidate source dialing this instrument
func (i *Instrument) Source() *transport.TCPSource {
	return &transport.TCPSource{Host: i.IP, Port: i.Port}
}

// GetMetadata retrieves a TXT record value by key, or returns empty
// string if not found
func (i *Instrument) GetMetadata(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}

// Manufacturer returns the advertised manufacturer name, if any
func (i *Instrument) Manufacturer() string {
	return i.GetMetadata("Manufacturer")
}

// IsYokogawa reports whether the instrument advertises itself as a
// Yokogawa unit
func (i *Instrument) IsYokogawa() bool {
	return strings.EqualFold(i.Manufacturer(), "YOKOGAWA")
}
