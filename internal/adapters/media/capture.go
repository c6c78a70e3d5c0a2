package media

import (
	"context"
	"time"
)

// SilenceSource is the capture source used when no microphone backend is
// wired in: it emits opus silence frames at the frame cadence so the
// whole pipeline, peer track included, stays exercisable end to end.
type SilenceSource struct {
	ctx context.Context
}

func NewSilenceSource(ctx context.Context) *SilenceSource {
	return &SilenceSource{ctx: ctx}
}

// opusSilence is one canonical encoded silence frame.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

func (s *SilenceSource) NextFrame() ([]byte, error) {
	select {
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	case <-time.After(opusFrameDuration):
		frame := make([]byte, len(opusSilence))
		copy(frame, opusSilence)
		return frame, nil
	}
}

func (s *SilenceSource) Formats() []string {
	return []string{"audio/ogg;codecs=opus"}
}
