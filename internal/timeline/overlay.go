package timeline

// FrameGeometry reports the rendered position of a frame element. The view
// layer supplies it; Bounds returns the left pixel offset and width of the
// frame at the given index.
type FrameGeometry interface {
	Bounds(index int) (left, width float64)
}

// Overlay holds the pixel geometry of the selection overlay and its two
// marker handles, derived from the rendered positions of the boundary frames.
// Recomputed on every commit and on resize; never stored across layouts.
type Overlay struct {
	Left        float64 `json:"left"`
	Width       float64 `json:"width"`
	StartMarker float64 `json:"start_marker"`
	EndMarker   float64 `json:"end_marker"`
}

// ComputeOverlay derives overlay geometry for a normalized [start,end] frame
// range. Indices are clamped into [0, frameCount-1]. The overlay spans from
// the left edge of the start frame to the right edge of the end frame; the
// marker handles sit on those two edges.
func ComputeOverlay(start, end, frameCount int, geom FrameGeometry) Overlay {
	if frameCount == 0 || geom == nil {
		return Overlay{}
	}
	if start > end {
		start, end = end, start
	}
	start = clampIndex(start, frameCount)
	end = clampIndex(end, frameCount)

	startLeft, _ := geom.Bounds(start)
	endLeft, endWidth := geom.Bounds(end)

	right := endLeft + endWidth
	return Overlay{
		Left:        startLeft,
		Width:       right - startLeft,
		StartMarker: startLeft,
		EndMarker:   right,
	}
}

// UniformGeometry is a FrameGeometry for evenly laid out frames of a fixed
// width, the layout the timeline strip renders by default.
type UniformGeometry struct {
	FrameWidth float64
	Gap        float64
}

// Bounds implements FrameGeometry.
func (g UniformGeometry) Bounds(index int) (left, width float64) {
	return float64(index) * (g.FrameWidth + g.Gap), g.FrameWidth
}
