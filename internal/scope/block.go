package scope

import (
	"fmt"
	"strconv"

	"github.com/hfujise/scopectl/internal/transport"
)

// Block frame constants. The instrument transfers binary payloads in a
// self-describing frame: '#', one decimal digit giving the width of the
// length field, the ASCII-decimal payload length, an unreliable optional
// terminator, the payload, and a trailing terminator.
const (
	// BlockStartMarker opens every block frame
	BlockStartMarker = '#'

	// MaxLengthDigits bounds the length-field width ('1'..'9')
	MaxLengthDigits = 9
)

// ReadBlock decodes one block frame from the transport and returns the
// raw payload bytes.
//
// The decode tolerates exactly one stray byte before the start marker (a
// transport quirk observed on the USB link) and tolerates the absence of
// the terminator between the length field and the payload: the byte read
// there speculatively is either the terminator or the first payload byte.
//
// A zero-length frame is ambiguous on the wire: with only one terminator
// after the length field there is no way to tell the optional terminator
// from the trailing one. The decode resolves it pessimistically: a
// terminator there is taken as the optional one and a trailing byte must
// still follow, so "#10\n" fails with a timeout while "#10\n\n" decodes
// to an empty payload. A non-terminator byte after a zero length is
// consumed as the trailing byte.
func ReadBlock(t transport.Transport) ([]byte, error) {
	b, err := t.ReadByte()
	if err != nil {
		return nil, NewFramingError("block start marker not received", err)
	}
	if b != BlockStartMarker {
		// Tolerate one leading stray byte, no more
		b, err = t.ReadByte()
		if err != nil {
			return nil, NewFramingError("block start marker not received", err)
		}
		if b != BlockStartMarker {
			return nil, NewFramingError(fmt.Sprintf("expected block start marker, got 0x%02X", b), nil)
		}
	}

	d, err := t.ReadByte()
	if err != nil {
		return nil, NewFramingError("length digit count not received", err)
	}
	digits := int(d - '0')
	if digits < 1 || digits > MaxLengthDigits {
		return nil, NewFramingError(fmt.Sprintf("invalid length digit count %q", d), nil)
	}

	lenField, err := t.ReadExact(digits)
	if err != nil {
		return nil, NewFramingError("length field not received", err)
	}
	length, err := strconv.Atoi(string(lenField))
	if err != nil || length < 0 {
		return nil, NewFramingError(fmt.Sprintf("malformed length field %q", lenField), err)
	}

	// The terminator before the payload is not reliably sent. Read one
	// byte speculatively: a terminator means the payload follows; anything
	// else is already the first payload byte.
	first, err := t.ReadByte()
	if err != nil {
		return nil, NewFramingError("payload not received", err)
	}

	var payload []byte
	switch {
	case first == transport.LineTerminator:
		payload, err = t.ReadExact(length)
		if err != nil {
			return nil, NewFramingError("payload truncated", err)
		}
	case length == 0:
		// No payload to attach the speculative byte to; it was the
		// trailing terminator
		return []byte{}, nil
	default:
		rest, rerr := t.ReadExact(length - 1)
		if rerr != nil {
			return nil, NewFramingError("payload truncated", rerr)
		}
		payload = append([]byte{first}, rest...)
	}

	// Discard the trailing terminator
	if _, err := t.ReadByte(); err != nil {
		return nil, NewFramingError("trailing terminator not received", err)
	}
	return payload, nil
}

// EncodeBlock serializes a payload into the block frame format. Used by
// tests and device fakes; the instrument itself only ever sends frames.
// digits selects the width of the length field and must accommodate the
// payload length. withTerminator controls whether the optional terminator
// between the length field and the payload is emitted.
func EncodeBlock(payload []byte, digits int, withTerminator bool) ([]byte, error) {
	if digits < 1 || digits > MaxLengthDigits {
		return nil, fmt.Errorf("digit count %d out of range 1..%d", digits, MaxLengthDigits)
	}
	lenField := fmt.Sprintf("%0*d", digits, len(payload))
	if len(lenField) != digits {
		return nil, fmt.Errorf("payload length %d does not fit in %d digits", len(payload), digits)
	}

	frame := make([]byte, 0, len(payload)+digits+4)
	frame = append(frame, BlockStartMarker)
	frame = append(frame, byte('0'+digits))
	frame = append(frame, lenField...)
	if withTerminator {
		frame = append(frame, transport.LineTerminator)
	}
	frame = append(frame, payload...)
	frame = append(frame, transport.LineTerminator)
	return frame, nil
}
