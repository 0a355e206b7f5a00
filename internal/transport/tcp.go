package transport

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/hfujise/scopectl/internal/logging"
)

const (
	// DefaultSCPIPort is the raw SCPI socket port LXI-capable instruments
	// listen on
	DefaultSCPIPort = 10001

	// dialTimeout bounds the initial TCP connect
	dialTimeout = 3 * time.Second
)

// TCPTransport is a raw SCPI socket connection for instruments fitted with
// the Ethernet option. The socket is a plain byte pipe carrying the same
// newline-terminated command strings as the USB link.
type TCPTransport struct {
	conn    net.Conn
	r       *bufio.Reader
	addr    string
	timeout time.Duration
	closed  bool
}

// DialSCPI opens a raw SCPI socket to host:port. A port of 0 falls back
// to DefaultSCPIPort.
func DialSCPI(host string, port int) (*TCPTransport, error) {
	if port == 0 {
		port = DefaultSCPIPort
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, NewIOError(addr, "dial failed", err)
	}
	return &TCPTransport{
		conn:    conn,
		r:       bufio.NewReader(conn),
		addr:    "tcp:" + addr,
		timeout: DefaultTimeout,
	}, nil
}

// Write sends an ASCII command string
func (t *TCPTransport) Write(s string) error {
	if t.closed {
		return NewClosedError(t.addr)
	}
	if len(s) == 0 || s[len(s)-1] != LineTerminator {
		s += string(LineTerminator)
	}
	logging.LogTransaction(t.addr, "write", s)

	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return NewIOError(t.addr, "set write deadline", err)
	}
	if _, err := io.WriteString(t.conn, s); err != nil {
		return NewIOError(t.addr, "write failed", err)
	}
	return nil
}

// ReadByte reads exactly one byte
func (t *TCPTransport) ReadByte() (byte, error) {
	if t.closed {
		return 0, NewClosedError(t.addr)
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return 0, NewIOError(t.addr, "set read deadline", err)
	}
	b, err := t.r.ReadByte()
	if err != nil {
		return 0, NewIOError(t.addr, "read failed", err)
	}
	return b, nil
}

// ReadExact reads exactly n bytes
func (t *TCPTransport) ReadExact(n int) ([]byte, error) {
	if t.closed {
		return nil, NewClosedError(t.addr)
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return nil, NewIOError(t.addr, "set read deadline", err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.r, buf); err != nil {
		return nil, NewIOError(t.addr, fmt.Sprintf("read of %d bytes failed", n), err)
	}
	return buf, nil
}

// ReadLine reads bytes until the line terminator and returns the line
// without it
func (t *TCPTransport) ReadLine() (string, error) {
	if t.closed {
		return "", NewClosedError(t.addr)
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return "", NewIOError(t.addr, "set read deadline", err)
	}
	line, err := t.r.ReadString(LineTerminator)
	if err != nil {
		return "", NewIOError(t.addr, "read line failed", err)
	}
	line = line[:len(line)-1]
	logging.LogTransaction(t.addr, "read", line)
	return line, nil
}

// SetTimeout sets the per-call deadline
func (t *TCPTransport) SetTimeout(d time.Duration) {
	t.timeout = d
}

// Timeout returns the current per-call deadline
func (t *TCPTransport) Timeout() time.Duration {
	return t.timeout
}

// Addr returns the socket address string
func (t *TCPTransport) Addr() string {
	return t.addr
}

// Close closes the socket. Idempotent.
func (t *TCPTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

// TCPSource adapts a single raw SCPI socket address to the
// CandidateSource interface so a session can probe a network instrument
// the same way it probes USB candidates.
type TCPSource struct {
	Host string
	Port int
}

// Candidates dials the configured address and returns it as the sole
// candidate. A connection failure yields an empty candidate list, not an
// error: discovery treats an unreachable host like an unmatched device.
func (s *TCPSource) Candidates() ([]Transport, error) {
	t, err := DialSCPI(s.Host, s.Port)
	if err != nil {
		logging.Warn("SCPI socket unreachable",
			zap.String("host", s.Host),
			zap.Int("port", s.Port),
			zap.Error(err),
		)
		return nil, nil
	}
	return []Transport{t}, nil
}

// Close implements CandidateSource. The socket itself is owned by the
// session once retained.
func (s *TCPSource) Close() error {
	return nil
}
