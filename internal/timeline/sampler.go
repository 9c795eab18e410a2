// Package timeline provides frame sampling and range projection for the
// frame-thumbnail timeline. A Sampler turns a media duration into a dense,
// ordered set of sample points; Project converts a committed frame-index
// range back into a seconds-based time range.
package timeline

import (
	"errors"
	"fmt"
	"math"
)

// Static errors for timeline construction.
var (
	// ErrInvalidMedia is returned when the media duration is zero, negative,
	// or unknown. No timeline can be built from such a source.
	ErrInvalidMedia = errors.New("timeline: invalid media: duration must be positive")
	// ErrInvalidInterval is returned when the sampling interval is not positive.
	ErrInvalidInterval = errors.New("timeline: sampling interval must be positive")
)

// Default sampling parameters. MaxFrames bounds both capture cost and the
// number of rendered frame elements regardless of media length.
const (
	DefaultInterval  = 1.0
	DefaultMaxFrames = 60
)

// SamplePoint is a fixed timestamp at which a thumbnail is captured.
// Indices are dense (0..N-1) and Time is strictly increasing with Index.
type SamplePoint struct {
	Index int     `json:"index"`
	Time  float64 `json:"time"`
}

// Sampler produces sample points at a fixed interval, capped at MaxFrames.
type Sampler struct {
	// Interval is the sampling interval in seconds.
	Interval float64
	// MaxFrames caps the number of sample points.
	MaxFrames int
}

// NewSampler creates a Sampler. Non-positive interval or maxFrames fall back
// to the defaults.
func NewSampler(interval float64, maxFrames int) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	return &Sampler{Interval: interval, MaxFrames: maxFrames}
}

// Build produces the sample point sequence for a media of the given duration
// in seconds. It returns ErrInvalidMedia for non-positive or non-finite
// durations. The result replaces any previous sequence entirely; partial
// reuse across media sources is never attempted.
func (s *Sampler) Build(duration float64) ([]SamplePoint, error) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidMedia, duration)
	}
	if s.Interval <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidInterval, s.Interval)
	}

	count := int(math.Floor(duration / s.Interval))
	if count > s.MaxFrames {
		count = s.MaxFrames
	}

	samples := make([]SamplePoint, count)
	for i := range samples {
		samples[i] = SamplePoint{Index: i, Time: float64(i) * s.Interval}
	}
	return samples, nil
}
