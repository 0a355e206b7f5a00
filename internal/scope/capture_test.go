package scope

import (
	"bytes"
	"testing"
)

// TestCaptureImage verifies the full capture sequence: setup commands,
// image request, block decode and cleanup
func TestCaptureImage(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0x00, 0x01, 0x02, 0x03, 0xFF, 0xD9}
	frame, err := EncodeBlock(jpeg, 6, false)
	if err != nil {
		t.Fatalf("EncodeBlock failed: %v", err)
	}

	s, ft := newTestSession("701480", "CH4MW")
	ft.replies[":IMAGe:SEND?;"] = string(frame)

	if !s.Connect() {
		t.Fatal("Connect failed")
	}

	data, err := s.CaptureImage()
	if err != nil {
		t.Fatalf("CaptureImage failed: %v", err)
	}
	if !bytes.Equal(data, jpeg) {
		t.Errorf("payload mismatch: got % X, want % X", data, jpeg)
	}

	// Setup commands precede the request, cleanup follows it
	for _, cmd := range []string{"*CLS;;", ":IMAGe:FORMat JPEG;", ":IMAGe:TONE COLor;", ":STOP;*WAI;", ":IMAGe:SEND?;", "*WAI;*CLS;"} {
		if !ft.wrote(cmd) {
			t.Errorf("command %q not sent", cmd)
		}
	}

	// Timeout widened for the transfer must be restored
	if s.Timeout() != DefaultTimeout {
		t.Errorf("timeout = %v after capture, want %v", s.Timeout(), DefaultTimeout)
	}
}

// TestCaptureImage_FramingFailure verifies a garbled block reply surfaces
// as a typed failure, issues *CLS and restores the timeout
func TestCaptureImage_FramingFailure(t *testing.T) {
	s, ft := newTestSession("701480", "CH4MW")
	// Two stray bytes before the marker: beyond the tolerated one
	ft.replies[":IMAGe:SEND?;"] = "xx#18ABCDEFGH\n"

	if !s.Connect() {
		t.Fatal("Connect failed")
	}

	_, err := s.CaptureImage()
	if err == nil {
		t.Fatal("expected framing error")
	}
	if !IsFramingError(err) {
		t.Errorf("expected framing error, got %v", err)
	}
	if !ft.wrote("*CLS") {
		t.Error("clear-status not issued after framing failure")
	}
	if s.Timeout() != DefaultTimeout {
		t.Errorf("timeout = %v after failure, want %v", s.Timeout(), DefaultTimeout)
	}
}

// TestCaptureImage_NotConnected verifies capture refuses without a session
func TestCaptureImage_NotConnected(t *testing.T) {
	s := NewSession(&fakeSource{})
	if _, err := s.CaptureImage(); !IsNotConnected(err) {
		t.Errorf("expected not-connected error, got %v", err)
	}
}
