package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"github.com/hfujise/scopectl/internal/logging"
)

const (
	// YokogawaVendorID is the USB vendor ID the candidate filter defaults to
	YokogawaVendorID = 0x0B21
)

// USBHost owns the libusb context and enumerates candidate instrument
// connections by vendor ID. It plays the role pyvisa's ResourceManager
// plays in VISA-based tools: created once per session, closed after the
// retained device connection is closed.
type USBHost struct {
	ctx    *gousb.Context
	vendor gousb.ID
}

// NewUSBHost creates a USB host filtering candidates on the given vendor
// ID. A vendorID of 0 falls back to the Yokogawa vendor ID.
func NewUSBHost(vendorID uint16) *USBHost {
	if vendorID == 0 {
		vendorID = YokogawaVendorID
	}
	return &USBHost{
		ctx:    gousb.NewContext(),
		vendor: gousb.ID(vendorID),
	}
}

// Candidates opens every USB device matching the vendor filter and wraps
// each in a Transport. Devices that cannot be claimed (busy, no bulk
// endpoints) are skipped, not fatal: the instrument may share the vendor
// ID with other bench equipment.
func (h *USBHost) Candidates() ([]Transport, error) {
	devs, err := h.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == h.vendor
	})
	if err != nil && len(devs) == 0 {
		return nil, NewEnumerateError("USB enumeration failed", err)
	}

	candidates := make([]Transport, 0, len(devs))
	for _, dev := range devs {
		t, err := newUSBTransport(dev)
		if err != nil {
			logging.Warn("Skipping USB device",
				zap.String("device", dev.String()),
				zap.Error(err),
			)
			_ = dev.Close()
			continue
		}
		candidates = append(candidates, t)
	}
	return candidates, nil
}

// Close releases the libusb context. Must be called after all candidate
// transports are closed.
func (h *USBHost) Close() error {
	if h.ctx == nil {
		return nil
	}
	err := h.ctx.Close()
	h.ctx = nil
	return err
}

// USBTransport is a raw bulk-endpoint connection to the instrument. The
// DL74x0 enumerates as a raw USB device (the VISA address ends in ::RAW),
// so commands and replies travel over plain bulk IN/OUT endpoints with no
// USBTMC header framing.
type USBTransport struct {
	dev      *gousb.Device
	intf     *gousb.Interface
	intfDone func()
	in       *gousb.InEndpoint
	out      *gousb.OutEndpoint

	addr    string
	timeout time.Duration

	// rbuf holds bytes received from the last bulk transfer that the
	// caller has not consumed yet. Bulk reads arrive in packets; the
	// block codec consumes them one byte at a time.
	rbuf []byte

	closed bool
}

// newUSBTransport claims the default interface of an opened device and
// locates its first bulk IN and OUT endpoints.
func newUSBTransport(dev *gousb.Device) (*USBTransport, error) {
	// Detach any kernel driver (usbtmc) that grabbed the device first
	if err := dev.SetAutoDetach(true); err != nil {
		return nil, fmt.Errorf("auto-detach: %w", err)
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		return nil, fmt.Errorf("claim default interface: %w", err)
	}

	var in *gousb.InEndpoint
	var out *gousb.OutEndpoint
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionIn && in == nil {
			in, err = intf.InEndpoint(ep.Number)
		} else if ep.Direction == gousb.EndpointDirectionOut && out == nil {
			out, err = intf.OutEndpoint(ep.Number)
		}
		if err != nil {
			done()
			return nil, fmt.Errorf("open endpoint %d: %w", ep.Number, err)
		}
	}
	if in == nil || out == nil {
		done()
		return nil, fmt.Errorf("no bulk endpoint pair on %s", dev.String())
	}

	return &USBTransport{
		dev:      dev,
		intf:     intf,
		intfDone: done,
		in:       in,
		out:      out,
		addr:     fmt.Sprintf("usb:%s:%s:%s", dev.Desc.Vendor, dev.Desc.Product, dev.String()),
		timeout:  DefaultTimeout,
	}, nil
}

// Write sends an ASCII command over the bulk OUT endpoint
func (t *USBTransport) Write(s string) error {
	if t.closed {
		return NewClosedError(t.addr)
	}
	if len(s) == 0 || s[len(s)-1] != LineTerminator {
		s += string(LineTerminator)
	}
	logging.LogTransaction(t.addr, "write", s)

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	if _, err := t.out.WriteContext(ctx, []byte(s)); err != nil {
		return NewIOError(t.addr, "bulk write failed", err)
	}
	return nil
}

// ReadByte reads exactly one byte
func (t *USBTransport) ReadByte() (byte, error) {
	b, err := t.ReadExact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadExact reads exactly n bytes, draining the internal buffer first and
// issuing bulk IN transfers for the rest
func (t *USBTransport) ReadExact(n int) ([]byte, error) {
	if t.closed {
		return nil, NewClosedError(t.addr)
	}
	out := make([]byte, 0, n)

	// Consume buffered bytes from a previous oversized bulk packet
	if len(t.rbuf) > 0 {
		take := len(t.rbuf)
		if take > n {
			take = n
		}
		out = append(out, t.rbuf[:take]...)
		t.rbuf = t.rbuf[take:]
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	buf := make([]byte, t.in.Desc.MaxPacketSize)
	for len(out) < n {
		got, err := t.in.ReadContext(ctx, buf)
		if got > 0 {
			need := n - len(out)
			if got > need {
				out = append(out, buf[:need]...)
				t.rbuf = append(t.rbuf, buf[need:got]...)
			} else {
				out = append(out, buf[:got]...)
			}
		}
		if err != nil && len(out) < n {
			return nil, NewIOError(t.addr, fmt.Sprintf("bulk read failed after %d/%d bytes", len(out), n), err)
		}
	}
	return out, nil
}

// ReadLine reads bytes until the line terminator and returns the line
// without it
func (t *USBTransport) ReadLine() (string, error) {
	var line []byte
	for {
		b, err := t.ReadByte()
		if err != nil {
			return "", err
		}
		if b == LineTerminator {
			break
		}
		line = append(line, b)
	}
	logging.LogTransaction(t.addr, "read", string(line))
	return string(line), nil
}

// SetTimeout sets the per-call deadline
func (t *USBTransport) SetTimeout(d time.Duration) {
	t.timeout = d
}

// Timeout returns the current per-call deadline
func (t *USBTransport) Timeout() time.Duration {
	return t.timeout
}

// Addr returns the USB address string
func (t *USBTransport) Addr() string {
	return t.addr
}

// Close releases the interface and device. Idempotent.
func (t *USBTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.intfDone != nil {
		t.intfDone()
	}
	return t.dev.Close()
}
