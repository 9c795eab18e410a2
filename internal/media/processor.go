// Package media provides the ffmpeg/ffprobe toolbox behind the timeline and
// processing pipeline: duration probing, still-frame extraction for
// thumbnails, time-range cutting, and concatenation.
package media

import "context"

// Processor defines the media operations the service depends on.
// Implementations shell out to ffmpeg or an equivalent tool.
type Processor interface {
	// ProbeDuration returns the duration in seconds of a media file.
	// A zero or unreadable duration is reported as ErrInvalidMedia.
	ProbeDuration(ctx context.Context, path string) (float64, error)

	// ExtractFrame captures the still frame at time t scaled to w×h and
	// returns it as encoded JPEG bytes.
	ExtractFrame(ctx context.Context, path string, t float64, w, h int) ([]byte, error)

	// Cut writes the [start,end] time range of src to dst. It attempts a
	// stream copy first and falls back to re-encoding when the copy fails
	// on a non-keyframe boundary.
	Cut(ctx context.Context, src, dst string, start, end float64) error

	// Join concatenates multiple video files into a single output file,
	// preferring stream copy over re-encoding.
	Join(ctx context.Context, paths []string, output string) error
}
