package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/hfujise/scopectl/internal/transport"
)

const (
	// ServiceType is the mDNS service type for raw-socket SCPI
	// instruments (LXI units advertise this for their command port)
	ServiceType = "_scpi-raw._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for instrument discovery
	DefaultScanTimeout = 5 * time.Second
)

// Scanner handles mDNS instrument discovery
type Scanner struct {
	// Timeout is the maximum time to wait for instrument discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan discovers all SCPI instruments on the local network
func (s *Scanner) Scan() ([]*Instrument, error) {
	return s.ScanWithContext(context.Background())
}

// ScanWithContext discovers instruments with a custom context
func (s *Scanner) ScanWithContext(ctx context.Context) ([]*Instrument, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	instruments := make([]*Instrument, 0)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	// Collect entries in a goroutine while the resolver browses
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			if inst := s.parseServiceEntry(entry); inst != nil {
				instruments = append(instruments, inst)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// Wait for the browse to complete (timeout or cancellation)
	<-ctx.Done()
	<-done

	return instruments, nil
}

// WaitForHost waits for an instrument advertising the given hostname.
// Returns the instrument or an error if not found within the timeout.
func (s *Scanner) WaitForHost(host string) (*Instrument, error) {
	return s.WaitForHostWithContext(context.Background(), host)
}

// WaitForHostWithContext waits for a specific instrument with a custom context
func (s *Scanner) WaitForHostWithContext(ctx context.Context, host string) (*Instrument, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Instrument, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			inst := s.parseServiceEntry(entry)
			if inst != nil && hostMatches(inst.Hostname, host) {
				found <- inst
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case inst := <-found:
		return inst, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("instrument %s not found within timeout", host)
	}
}

// hostMatches compares hostnames ignoring case and trailing dots
func hostMatches(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}

// parseServiceEntry converts a zeroconf service entry to an Instrument.
// Returns nil for entries without a resolvable address.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Instrument {
	// Resolve the address (prefer IPv4)
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = transport.DefaultSCPIPort
	}

	// Parse TXT records ("key=value", or bare keys) into metadata
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Instrument{
		Name:         entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Scan is a convenience function to scan for instruments with a custom timeout
func Scan(timeout time.Duration) ([]*Instrument, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan()
}
