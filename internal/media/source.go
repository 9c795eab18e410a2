package media

import (
	"context"
	"sync"
)

// FrameSource adapts a Processor into the seek/capture source the thumbnail
// renderer drives. ffmpeg extraction is one-shot, so Seek only records the
// target time and signals completion immediately; Capture extracts the frame
// at the recorded position.
type FrameSource struct {
	processor Processor
	path      string

	mu  sync.Mutex
	pos float64
}

// NewFrameSource creates a FrameSource over a stored media file.
func NewFrameSource(processor Processor, path string) *FrameSource {
	return &FrameSource{processor: processor, path: path}
}

// Seek records the target time and returns an already-settled completion
// channel.
func (s *FrameSource) Seek(t float64) <-chan struct{} {
	s.mu.Lock()
	s.pos = t
	s.mu.Unlock()

	done := make(chan struct{})
	close(done)
	return done
}

// Capture extracts the frame at the last sought position.
func (s *FrameSource) Capture(ctx context.Context, w, h int) ([]byte, error) {
	s.mu.Lock()
	pos := s.pos
	s.mu.Unlock()
	return s.processor.ExtractFrame(ctx, s.path, pos, w, h)
}
