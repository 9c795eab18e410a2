package timeline

import (
	"errors"
	"testing"
)

func buildSamples(t *testing.T, duration, interval float64) []SamplePoint {
	t.Helper()
	samples, err := NewSampler(interval, DefaultMaxFrames).Build(duration)
	if err != nil {
		t.Fatalf("failed to build samples: %v", err)
	}
	return samples
}

func TestProject(t *testing.T) {
	samples := buildSamples(t, 30, 1)

	tests := []struct {
		name      string
		start     int
		end       int
		wantStart float64
		wantEnd   float64
	}{
		{"simple range", 5, 10, 5, 11},
		{"reversed indices normalize", 10, 5, 5, 11},
		{"full range", 0, 29, 0, 30},
		{"single frame widens", 7, 7, 7, 9},
		{"single last frame stays single", 29, 29, 29, 30},
		{"start below zero clamps", -5, 10, 0, 11},
		{"end beyond timeline clamps", 5, 100, 5, 30},
		{"both out of range clamp", -5, 100, 0, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Project(tt.start, tt.end, samples, 1)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tr.Start != tt.wantStart {
				t.Errorf("expected start %v, got %v", tt.wantStart, tr.Start)
			}
			if tr.End != tt.wantEnd {
				t.Errorf("expected end %v, got %v", tt.wantEnd, tr.End)
			}
			if tr.End <= tr.Start {
				t.Errorf("projected range must have End > Start, got [%v, %v]", tr.Start, tr.End)
			}
		})
	}
}

func TestProject_Idempotent(t *testing.T) {
	samples := buildSamples(t, 30, 1)

	first, err := Project(5, 10, samples, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Project(5, 10, samples, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("repeated projection differs: %+v vs %+v", first, second)
	}
}

func TestProject_SubSecondInterval(t *testing.T) {
	samples := buildSamples(t, 10, 0.5)

	tr, err := Project(2, 4, samples, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Start != 1.0 {
		t.Errorf("expected start 1.0, got %v", tr.Start)
	}
	if tr.End != 2.5 {
		t.Errorf("expected end 2.5, got %v", tr.End)
	}
}

func TestProject_EmptyTimeline(t *testing.T) {
	_, err := Project(0, 0, nil, 1)
	if !errors.Is(err, ErrEmptyTimeline) {
		t.Errorf("expected ErrEmptyTimeline, got %v", err)
	}
}

func TestProject_InvalidInterval(t *testing.T) {
	samples := buildSamples(t, 10, 1)
	_, err := Project(0, 5, samples, 0)
	if !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestTimeRange_Contains(t *testing.T) {
	r := TimeRange{Start: 10, End: 20}

	tests := []struct {
		name string
		t    float64
		want bool
	}{
		{"before start", 9.9, false},
		{"at start", 10, true},
		{"inside", 15, true},
		{"at end is excluded", 20, false},
		{"after end", 20.1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.t); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestTimeRange_Clamp(t *testing.T) {
	r := TimeRange{Start: 10, End: 20}

	if got := r.Clamp(5); got != 10 {
		t.Errorf("expected clamp to start 10, got %v", got)
	}
	if got := r.Clamp(25); got != 20 {
		t.Errorf("expected clamp to end 20, got %v", got)
	}
	if got := r.Clamp(15); got != 15 {
		t.Errorf("expected in-range value untouched, got %v", got)
	}
}

func TestTimeRange_Duration(t *testing.T) {
	r := TimeRange{Start: 10, End: 21}
	if got := r.Duration(); got != 11 {
		t.Errorf("expected duration 11, got %v", got)
	}
}
