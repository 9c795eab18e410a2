package timeline

import (
	"errors"
	"fmt"
)

// ErrEmptyTimeline is returned when a projection is attempted against an
// empty sample sequence.
var ErrEmptyTimeline = errors.New("timeline: no sample points")

// TimeRange is a seconds-based range derived from a committed frame-index
// selection. End > Start holds by construction.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the length of the range in seconds.
func (r TimeRange) Duration() float64 {
	return r.End - r.Start
}

// Contains reports whether t falls inside the half-open interval [Start, End).
func (r TimeRange) Contains(t float64) bool {
	return t >= r.Start && t < r.End
}

// Clamp restricts t to [Start, End].
func (r TimeRange) Clamp(t float64) float64 {
	if t < r.Start {
		return r.Start
	}
	if t > r.End {
		return r.End
	}
	return t
}

// Project converts a committed frame-index range into a TimeRange. Indices
// are normalized to [min,max] and clamped into the sample sequence. The end
// time lands one interval past the last selected frame so the selected frames
// are fully enclosed. A single-frame selection is widened to the next index
// before projection so the resulting duration is always at least one interval.
func Project(start, end int, samples []SamplePoint, interval float64) (TimeRange, error) {
	if len(samples) == 0 {
		return TimeRange{}, ErrEmptyTimeline
	}
	if interval <= 0 {
		return TimeRange{}, fmt.Errorf("%w: got %v", ErrInvalidInterval, interval)
	}

	lo, hi := start, end
	if lo > hi {
		lo, hi = hi, lo
	}
	lo = clampIndex(lo, len(samples))
	hi = clampIndex(hi, len(samples))

	if lo == hi && hi < len(samples)-1 {
		hi++
	}

	return TimeRange{
		Start: samples[lo].Time,
		End:   samples[hi].Time + interval,
	}, nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
