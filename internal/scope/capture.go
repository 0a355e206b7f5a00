package scope

import (
	"time"

	"go.uber.org/zap"

	"github.com/hfujise/scopectl/internal/logging"
)

const (
	// CaptureTimeout bounds the image block read; rendering a full screen
	// takes the instrument several seconds
	CaptureTimeout = 10 * time.Second
)

// captureSetup is the command sequence that freezes the display and
// selects the screenshot format before the image is requested
var captureSetup = []string{
	"*CLS;;",
	":IMAGe:FORMat JPEG;",
	":IMAGe:TONE COLor;",
	":STOP;*WAI;",
}

// CaptureImage grabs a screenshot from the instrument and returns the raw
// JPEG bytes (0xFFD8 ... 0xFFD9). The session must be connected.
//
// The transport timeout is widened for the block read and restored on
// every exit path. On a mid-transfer failure a best-effort *CLS is issued
// so the device is recoverable for the next attempt.
func (s *Session) CaptureImage() ([]byte, error) {
	if s.tr == nil {
		return nil, NewNotConnectedError()
	}

	for _, cmd := range captureSetup {
		if err := s.Send(cmd); err != nil {
			return nil, err
		}
	}

	prev := s.tr.Timeout()
	s.tr.SetTimeout(CaptureTimeout)
	defer s.tr.SetTimeout(prev)

	if err := s.Send(":IMAGe:SEND?;"); err != nil {
		return nil, err
	}

	data, err := ReadBlock(s.tr)
	if err != nil {
		s.clearStatus()
		logging.Warn("Image transfer failed", zap.Error(err))
		return nil, err
	}
	logging.Info("Screenshot captured", zap.Int("bytes", len(data)))
	logging.LogRawBytes("image payload head", head(data, 8))

	// Wait out any still-running print job, then clear status
	if err := s.Send("*WAI;*CLS;"); err != nil {
		logging.Debug("Post-capture cleanup failed", zap.Error(err))
	}

	return data, nil
}

func head(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}
