package scope

import (
	"strings"
	"time"

	"github.com/hfujise/scopectl/internal/transport"
)

// fakeTransport is a scripted in-memory transport. Writes are recorded;
// commands with a scripted reply append that reply to the read stream.
// Reading past the end of the stream behaves like a timeout.
type fakeTransport struct {
	addr    string
	timeout time.Duration

	writes  []string
	stream  []byte
	replies map[string]string

	closed     int
	writeErr   error
	dropWrites bool
}

func newFakeTransport(addr string) *fakeTransport {
	return &fakeTransport{
		addr:    addr,
		timeout: transport.DefaultTimeout,
		replies: make(map[string]string),
	}
}

func (f *fakeTransport) Write(s string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	s = strings.TrimSuffix(s, "\n")
	if !f.dropWrites {
		f.writes = append(f.writes, s)
	}
	if reply, ok := f.replies[s]; ok {
		f.stream = append(f.stream, reply...)
	}
	return nil
}

func (f *fakeTransport) ReadByte() (byte, error) {
	if len(f.stream) == 0 {
		return 0, transport.NewTimeoutError(f.addr, "read timed out", nil)
	}
	b := f.stream[0]
	f.stream = f.stream[1:]
	return b, nil
}

func (f *fakeTransport) ReadExact(n int) ([]byte, error) {
	if len(f.stream) < n {
		return nil, transport.NewTimeoutError(f.addr, "read timed out", nil)
	}
	out := make([]byte, n)
	copy(out, f.stream[:n])
	f.stream = f.stream[n:]
	return out, nil
}

func (f *fakeTransport) ReadLine() (string, error) {
	var line []byte
	for {
		b, err := f.ReadByte()
		if err != nil {
			return "", err
		}
		if b == transport.LineTerminator {
			return string(line), nil
		}
		line = append(line, b)
	}
}

func (f *fakeTransport) SetTimeout(d time.Duration) { f.timeout = d }
func (f *fakeTransport) Timeout() time.Duration     { return f.timeout }
func (f *fakeTransport) Addr() string               { return f.addr }

func (f *fakeTransport) Close() error {
	f.closed++
	return nil
}

// wrote reports whether a command was written at some point
func (f *fakeTransport) wrote(cmd string) bool {
	for _, w := range f.writes {
		if w == cmd {
			return true
		}
	}
	return false
}

// fakeSource hands out a fixed candidate list
type fakeSource struct {
	candidates []transport.Transport
	closed     int
}

func (s *fakeSource) Candidates() ([]transport.Transport, error) {
	return s.candidates, nil
}

func (s *fakeSource) Close() error {
	s.closed++
	return nil
}

// newTestSession builds a connected session around one scripted transport
// identifying as the given model number (e.g. "701480").
func newTestSession(model, options string) (*Session, *fakeTransport) {
	ft := newFakeTransport("usb:test")
	ft.replies["*IDN?;"] = "YOKOGAWA," + model + ",0,F1.20\n"
	ft.replies["*OPT?;"] = options + "\n"

	s := NewSession(&fakeSource{candidates: []transport.Transport{ft}})
	s.writeDelay = 0
	return s, ft
}
