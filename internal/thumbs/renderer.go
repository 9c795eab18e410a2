// Package thumbs provides the sequential thumbnail renderer for the frame
// timeline. For each sample point it seeks the media source, waits for the
// seek to settle (or a short fallback timeout), and captures a still into a
// fixed-size buffer. Captures run strictly one at a time because concurrent
// seeks on a single media source are not well-ordered.
package thumbs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/framepick/framepick-api/internal/timeline"
)

// Default capture parameters.
const (
	// DefaultWidth and DefaultHeight are the fixed thumbnail dimensions.
	DefaultWidth  = 160
	DefaultHeight = 90
	// DefaultSeekTimeout is the fallback wait for sources that never signal
	// seek completion.
	DefaultSeekTimeout = 100 * time.Millisecond
)

// Status is the capture state of a thumbnail. It is written exactly once
// per sample point; failed and captured are terminal.
type Status string

const (
	// StatusPending means the thumbnail has not been captured yet.
	StatusPending Status = "pending"
	// StatusCaptured means the still frame was captured successfully.
	StatusCaptured Status = "captured"
	// StatusFailed means capture failed; a placeholder is shown instead.
	// Retries are not attempted.
	StatusFailed Status = "failed"
)

// Thumbnail is the captured still for one sample point. Image holds the
// encoded pixels on success, or a placeholder labeled with the timestamp
// when capture failed.
type Thumbnail struct {
	Index  int     `json:"index"`
	Time   float64 `json:"time"`
	Status Status  `json:"status"`
	Image  []byte  `json:"image,omitempty"`
	// Label carries the placeholder timestamp text for failed captures.
	Label string `json:"label,omitempty"`
}

// Source is the media element the renderer drives. Seek starts an
// asynchronous seek to t and returns a channel that is closed when the seek
// settles; sources that cannot report completion may return a channel that
// never closes and rely on the renderer's fallback timeout. Capture grabs
// the frame at the current position scaled to w×h.
type Source interface {
	Seek(t float64) <-chan struct{}
	Capture(ctx context.Context, w, h int) ([]byte, error)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithDimensions sets the thumbnail capture dimensions.
func WithDimensions(w, h int) Option {
	return func(r *Renderer) {
		if w > 0 && h > 0 {
			r.width, r.height = w, h
		}
	}
}

// WithSeekTimeout sets the fallback wait for seek completion.
func WithSeekTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.seekTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Renderer captures one thumbnail per sample point, in index order. Starting
// a new render bumps an internal generation counter so a superseded run can
// never write into the thumbnail set of its replacement.
type Renderer struct {
	width       int
	height      int
	seekTimeout time.Duration
	logger      *slog.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewRenderer creates a Renderer with the default dimensions and timeout.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		width:       DefaultWidth,
		height:      DefaultHeight,
		seekTimeout: DefaultSeekTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render captures thumbnails for all sample points sequentially and returns
// them in index order. A capture failure is non-fatal: the thumbnail gets a
// placeholder label and terminal failed status, and the sequence continues.
// Calling Render again invalidates any in-flight run; the superseded run
// stops at its next sample boundary and returns ctx.Err().
func (r *Renderer) Render(ctx context.Context, src Source, samples []timeline.SamplePoint) ([]Thumbnail, error) {
	ctx, gen := r.begin(ctx)

	thumbs := make([]Thumbnail, 0, len(samples))
	for _, sp := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !r.current(gen) {
			return nil, context.Canceled
		}

		r.awaitSeek(ctx, src, sp.Time)

		thumb := Thumbnail{Index: sp.Index, Time: sp.Time, Status: StatusPending}
		img, err := src.Capture(ctx, r.width, r.height)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("thumbnail capture failed",
				slog.Int("index", sp.Index),
				slog.Float64("time", sp.Time),
				slog.String("error", err.Error()),
			)
			thumb.Status = StatusFailed
			thumb.Label = FormatTimestamp(sp.Time)
		} else {
			thumb.Status = StatusCaptured
			thumb.Image = img
		}
		thumbs = append(thumbs, thumb)
	}

	if !r.current(gen) {
		return nil, context.Canceled
	}
	return thumbs, nil
}

// Cancel invalidates any in-flight render without starting a new one.
func (r *Renderer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// begin bumps the generation, cancels the previous run, and derives a
// cancellable context for the new one.
func (r *Renderer) begin(ctx context.Context) (context.Context, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	if r.cancel != nil {
		r.cancel()
	}
	ctx, r.cancel = context.WithCancel(ctx)
	return ctx, r.generation
}

func (r *Renderer) current(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation == gen
}

// awaitSeek starts the seek and waits for completion, the fallback timeout,
// or cancellation, whichever comes first.
func (r *Renderer) awaitSeek(ctx context.Context, src Source, t float64) {
	done := src.Seek(t)
	timer := time.NewTimer(r.seekTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	case <-ctx.Done():
	}
}
