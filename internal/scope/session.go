package scope

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hfujise/scopectl/internal/logging"
	"github.com/hfujise/scopectl/internal/transport"
)

// Family identifies the instrument model family by its identification
// string
type Family int

const (
	// FamilyNone means no identified device is bound to the session
	FamilyNone Family = iota
	// FamilyDL7440 covers models 701450 (4 MW memory) and 701460 (16 MW)
	FamilyDL7440
	// FamilyDL7480 covers models 701470 (4 MW memory) and 701480 (16 MW)
	FamilyDL7480
)

// String returns the marketing name of the family
func (f Family) String() string {
	switch f {
	case FamilyDL7440:
		return "DL7440"
	case FamilyDL7480:
		return "DL7480"
	default:
		return "none"
	}
}

// Channels returns the number of analog input channels on this family
func (f Family) Channels() int {
	if f == FamilyDL7480 {
		return 8
	}
	if f == FamilyDL7440 {
		return 4
	}
	return 0
}

const (
	// DefaultTimeout is applied to the transport once a device is
	// identified
	DefaultTimeout = 5 * time.Second

	// ExtendedTimeout is used for full configuration fetches and slow
	// command applies; callers widen to it temporarily and restore
	ExtendedTimeout = 20 * time.Second

	// IdentifyTimeout is the short per-candidate deadline for the
	// identification query during discovery
	IdentifyTimeout = 2 * time.Second

	// WriteDelay is the settle delay after every command write; the
	// instrument drops back-to-back writes without it
	WriteDelay = 100 * time.Millisecond

	// quiesceCommand hands the front panel back to local control before
	// the connection closes
	quiesceCommand = ":COMMunicate:REMote OFF"
)

// Accepted identification patterns, one per model family
var (
	idnDL7440 = regexp.MustCompile(`^YOKOGAWA,7014[56]0`)
	idnDL7480 = regexp.MustCompile(`^YOKOGAWA,7014[78]0`)
)

// Session owns the lifecycle of one oscilloscope connection: discovery,
// identification, command traffic and teardown. It is not safe for
// concurrent use; a multi-threaded host must wrap it in its own mutex.
type Session struct {
	source transport.CandidateSource
	tr     transport.Transport

	family   Family
	identity string
	options  string

	writeDelay time.Duration
}

// NewSession creates a session that will discover its device through the
// given candidate source. The source is owned by the session and closed
// on Disconnect.
func NewSession(source transport.CandidateSource) *Session {
	return &Session{
		source:     source,
		writeDelay: WriteDelay,
	}
}

// Connected reports whether the session is bound to an identified device
func (s *Session) Connected() bool {
	return s.tr != nil
}

// Family returns the identified model family, or FamilyNone
func (s *Session) Family() Family {
	return s.family
}

// Addr returns the retained transport's address, or "" when unconnected
func (s *Session) Addr() string {
	if s.tr == nil {
		return ""
	}
	return s.tr.Addr()
}

// Connect discovers and identifies the oscilloscope. It is idempotent:
// an already-identified session returns true immediately. Every opened
// candidate that does not match is closed before returning. No error
// escapes discovery; the result is connected / not connected.
func (s *Session) Connect() bool {
	if s.tr != nil {
		return true
	}

	candidates, err := s.source.Candidates()
	if err != nil {
		logging.Warn("Candidate enumeration failed", zap.Error(err))
		return false
	}

	for _, cand := range candidates {
		if s.tr != nil {
			// Already bound; close the remaining candidates
			_ = cand.Close()
			continue
		}

		if family, idn, ok := s.identify(cand); ok {
			s.tr = cand
			s.family = family
			s.identity = idn
			s.tr.SetTimeout(DefaultTimeout)

			// Option tokens gate which configuration sections are
			// valid to exchange with this unit
			if opt, err := s.Query("*OPT?;"); err == nil {
				s.options = strings.TrimSpace(opt)
			} else {
				logging.Warn("Option query failed", zap.Error(err))
			}

			logging.Info("Oscilloscope connected",
				zap.String("addr", s.tr.Addr()),
				zap.String("family", s.family.String()),
				zap.String("options", s.options),
			)
			continue
		}
		_ = cand.Close()
	}

	if s.tr == nil {
		logging.Info("No oscilloscope found")
		return false
	}
	return true
}

// identify sends the identification query to one candidate with a short
// deadline. A timeout or garbled reply is not fatal; scanning moves on.
func (s *Session) identify(t transport.Transport) (Family, string, bool) {
	t.SetTimeout(IdentifyTimeout)

	if err := t.Write("*IDN?;"); err != nil {
		logging.Debug("Identification write failed",
			zap.String("addr", t.Addr()),
			zap.Error(err),
		)
		return FamilyNone, "", false
	}
	idn, err := t.ReadLine()
	if err != nil {
		logging.Debug("Identification query timed out",
			zap.String("addr", t.Addr()),
			zap.Error(err),
		)
		return FamilyNone, "", false
	}

	switch {
	case idnDL7440.MatchString(idn):
		return FamilyDL7440, idn, true
	case idnDL7480.MatchString(idn):
		return FamilyDL7480, idn, true
	default:
		logging.Debug("Identification mismatch",
			zap.String("addr", t.Addr()),
			zap.String("idn", idn),
		)
		return FamilyNone, "", false
	}
}

// HasOption performs a case-insensitive substring membership test against
// the stored option string. Returns false when never connected.
func (s *Session) HasOption(token string) bool {
	if s.tr == nil {
		return false
	}
	return strings.Contains(strings.ToUpper(s.options), strings.ToUpper(token))
}

// Identity returns the raw identification reply of the bound device
// (manufacturer, model, serial number, firmware version), or "" when
// unconnected
func (s *Session) Identity() string {
	return s.identity
}

// Options returns the raw option token list reported at identification
func (s *Session) Options() string {
	return s.options
}

// Send writes one command and applies the inter-write settle delay
func (s *Session) Send(cmd string) error {
	if s.tr == nil {
		return NewNotConnectedError()
	}
	if err := s.tr.Write(cmd); err != nil {
		return err
	}
	time.Sleep(s.writeDelay)
	return nil
}

// Query writes one command and reads the single-line reply
func (s *Session) Query(cmd string) (string, error) {
	if err := s.Send(cmd); err != nil {
		return "", err
	}
	reply, err := s.tr.ReadLine()
	if err != nil {
		// Leave the device in a recoverable state for the next attempt
		s.clearStatus()
		if transport.IsTimeout(err) {
			return "", NewTimeoutError("no response from the oscilloscope. Aborted.", err)
		}
		return "", err
	}
	return reply, nil
}

// SetTimeout widens or narrows the transport deadline. Callers that widen
// for a long operation must restore the previous value on every exit
// path.
func (s *Session) SetTimeout(d time.Duration) {
	if s.tr != nil {
		s.tr.SetTimeout(d)
	}
}

// Timeout returns the current transport deadline, or 0 when unconnected
func (s *Session) Timeout() time.Duration {
	if s.tr == nil {
		return 0
	}
	return s.tr.Timeout()
}

// clearStatus issues a best-effort *CLS after a mid-protocol failure
func (s *Session) clearStatus() {
	if s.tr == nil {
		return
	}
	if err := s.tr.Write("*CLS"); err != nil {
		logging.Debug("Clear-status write failed", zap.Error(err))
	}
}

// Disconnect quiesces and releases the connection. Safe to call on an
// already-disconnected session (no-op then). The candidate source is
// closed as well, so the session cannot be reused afterwards.
func (s *Session) Disconnect() {
	if s.tr != nil {
		if err := s.tr.Write(quiesceCommand); err != nil {
			logging.Debug("Quiesce write failed", zap.Error(err))
		}
		_ = s.tr.Close()
		s.tr = nil
		s.family = FamilyNone
		s.identity = ""
		s.options = ""
	}
	if s.source != nil {
		_ = s.source.Close()
		s.source = nil
	}
}
