package timeline

import "testing"

func TestComputeOverlay(t *testing.T) {
	geom := UniformGeometry{FrameWidth: 100, Gap: 4}

	tests := []struct {
		name       string
		start, end int
		want       Overlay
	}{
		{
			name:  "multi-frame range",
			start: 2,
			end:   4,
			want:  Overlay{Left: 208, Width: 308, StartMarker: 208, EndMarker: 516},
		},
		{
			name:  "single frame",
			start: 3,
			end:   3,
			want:  Overlay{Left: 312, Width: 100, StartMarker: 312, EndMarker: 412},
		},
		{
			name:  "reversed indices normalize",
			start: 4,
			end:   2,
			want:  Overlay{Left: 208, Width: 308, StartMarker: 208, EndMarker: 516},
		},
		{
			name:  "out-of-range indices clamp",
			start: -3,
			end:   50,
			want:  Overlay{Left: 0, Width: 9*104 + 100, StartMarker: 0, EndMarker: 9*104 + 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeOverlay(tt.start, tt.end, 10, geom)
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestComputeOverlay_EmptyTimeline(t *testing.T) {
	got := ComputeOverlay(0, 5, 0, UniformGeometry{FrameWidth: 100})
	if got != (Overlay{}) {
		t.Errorf("expected zero overlay for empty timeline, got %+v", got)
	}
}

func TestComputeOverlay_NilGeometry(t *testing.T) {
	got := ComputeOverlay(0, 5, 10, nil)
	if got != (Overlay{}) {
		t.Errorf("expected zero overlay with nil geometry, got %+v", got)
	}
}

func TestUniformGeometry_Bounds(t *testing.T) {
	geom := UniformGeometry{FrameWidth: 160, Gap: 2}

	left, width := geom.Bounds(0)
	if left != 0 || width != 160 {
		t.Errorf("frame 0: expected (0, 160), got (%v, %v)", left, width)
	}

	left, width = geom.Bounds(5)
	if left != 810 || width != 160 {
		t.Errorf("frame 5: expected (810, 160), got (%v, %v)", left, width)
	}
}
