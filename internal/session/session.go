// Package session owns the application state of one trimming session: the
// sample sequence, thumbnails, selection machine, committed time range, and
// bounded preview player. It replaces ad-hoc shared state with a single
// owned object and typed change notifications.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/framepick/framepick-api/internal/job/id"
	"github.com/framepick/framepick-api/internal/preview"
	"github.com/framepick/framepick-api/internal/remote"
	"github.com/framepick/framepick-api/internal/selection"
	"github.com/framepick/framepick-api/internal/thumbs"
	"github.com/framepick/framepick-api/internal/timeline"
)

// Static errors for session operations.
var (
	// ErrNoTimeline is returned when an operation needs a built timeline.
	ErrNoTimeline = errors.New("session: no timeline built")
	// ErrNoTimeRange is returned when submit is attempted before a selection
	// was committed.
	ErrNoTimeRange = errors.New("session: no committed time range")
	// ErrNoRemote is returned when submit is attempted without a backend client.
	ErrNoRemote = errors.New("session: no remote client configured")
)

// Listener receives typed change notifications from a session. Callbacks run
// synchronously on the mutating goroutine; implementations must not call
// back into the session.
type Listener interface {
	// TimelineBuilt fires after a successful sampler+renderer run.
	TimelineBuilt(samples []timeline.SamplePoint, thumbnails []thumbs.Thumbnail)
	// SelectionCommitted fires on every commit with the normalized frame
	// range and its projected time range.
	SelectionCommitted(r selection.Range, tr timeline.TimeRange)
	// PreviewSeeked fires when a plain click seeks the preview media.
	PreviewSeeked(t float64)
}

// Option configures a Session.
type Option func(*Session)

// WithRemote sets the processing backend client used by Submit.
func WithRemote(client remote.Client) Option {
	return func(s *Session) { s.remote = client }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMonitorInterval sets the preview boundary monitor interval, mainly
// for tests.
func WithMonitorInterval(d time.Duration) Option {
	return func(s *Session) { s.monitorInterval = d }
}

// Session is one interactive trimming session over an uploaded video.
type Session struct {
	// ID is the unique session identifier.
	ID string
	// UploadID is the source video this session trims.
	UploadID string
	// CreatedAt is when the session was created.
	CreatedAt time.Time

	sampler         *timeline.Sampler
	renderer        *thumbs.Renderer
	remote          remote.Client
	logger          *slog.Logger
	monitorInterval time.Duration

	mu         sync.Mutex
	samples    []timeline.SamplePoint
	thumbnails []thumbs.Thumbnail
	machine    *selection.Machine
	timeRange  *timeline.TimeRange
	player     *preview.Player
	listeners  []Listener
}

// New creates a session for the given upload with the given sampling
// parameters.
func New(uploadID string, sampler *timeline.Sampler, renderer *thumbs.Renderer, opts ...Option) *Session {
	s := &Session{
		ID:              id.Generate("session"),
		UploadID:        uploadID,
		CreatedAt:       time.Now(),
		sampler:         sampler,
		renderer:        renderer,
		logger:          slog.Default(),
		monitorInterval: preview.DefaultMonitorInterval,
		machine:         selection.NewMachine(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.player = preview.NewPlayerWithInterval(s.monitorInterval)
	return s
}

// Subscribe registers a listener for change notifications.
func (s *Session) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// BuildTimeline samples the media and captures thumbnails sequentially.
// Rebuilding discards the previous sequence, resets the selection, and
// invalidates any in-flight render so a superseded run cannot write into
// the new thumbnail set.
func (s *Session) BuildTimeline(ctx context.Context, src thumbs.Source, duration float64) error {
	samples, err := s.sampler.Build(duration)
	if err != nil {
		return err
	}

	rendered, err := s.renderer.Render(ctx, src, samples)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.samples = samples
	s.thumbnails = rendered
	s.machine.Reset(len(samples))
	s.timeRange = nil
	s.player.Detach()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	s.logger.Info("timeline built",
		slog.String("session_id", s.ID),
		slog.String("upload_id", s.UploadID),
		slog.Int("frames", len(samples)),
	)

	for _, l := range listeners {
		l.TimelineBuilt(samples, rendered)
	}
	return nil
}

// HandlePointer feeds one pointer event to the selection machine. A commit
// projects the normalized range into a time range and re-attaches the
// bounded preview player to it; a plain click seeks the preview instead.
func (s *Session) HandlePointer(ev selection.PointerEvent) error {
	s.mu.Lock()

	if len(s.samples) == 0 {
		s.mu.Unlock()
		return ErrNoTimeline
	}

	act := s.machine.Handle(ev)

	var (
		committed *selection.Range
		tr        timeline.TimeRange
		seekTime  float64
		seeked    bool
	)

	if act.Committed != nil {
		projected, err := timeline.Project(act.Committed.Start, act.Committed.End, s.samples, s.sampler.Interval)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		tr = projected
		s.timeRange = &projected
		committed = act.Committed
		s.player.Attach(preview.NewClockTransport(), projected)
	}
	if act.SeekIndex != nil {
		idx := *act.SeekIndex
		if idx >= 0 && idx < len(s.samples) {
			seekTime = s.samples[idx].Time
			seeked = true
		}
	}

	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if committed != nil {
		s.logger.Debug("selection committed",
			slog.String("session_id", s.ID),
			slog.Int("start", committed.Start),
			slog.Int("end", committed.End),
			slog.Float64("start_time", tr.Start),
			slog.Float64("end_time", tr.End),
		)
		for _, l := range listeners {
			l.SelectionCommitted(*committed, tr)
		}
	}
	if seeked {
		for _, l := range listeners {
			l.PreviewSeeked(seekTime)
		}
	}
	return nil
}

// Samples returns the sample sequence.
func (s *Session) Samples() []timeline.SamplePoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// Thumbnails returns the rendered thumbnail set.
func (s *Session) Thumbnails() []thumbs.Thumbnail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thumbnails
}

// Selection returns the current normalized selection, if any.
func (s *Session) Selection() (selection.Range, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.machine.Normalized()
	return r, err == nil
}

// Mode returns the selection machine's drag mode.
func (s *Session) Mode() selection.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Mode()
}

// TimeRange returns the committed time range, if any.
func (s *Session) TimeRange() (timeline.TimeRange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeRange == nil {
		return timeline.TimeRange{}, false
	}
	return *s.timeRange, true
}

// Overlay computes the selection overlay geometry against the given frame
// layout.
func (s *Session) Overlay(geom timeline.FrameGeometry) (timeline.Overlay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.machine.Normalized()
	if err != nil {
		return timeline.Overlay{}, false
	}
	return timeline.ComputeOverlay(r.Start, r.End, len(s.samples), geom), true
}

// PreviewPlay starts bounded preview playback over the committed range.
func (s *Session) PreviewPlay() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeRange == nil {
		return ErrNoTimeRange
	}
	return s.player.Play()
}

// PreviewPause pauses preview playback in place.
func (s *Session) PreviewPause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeRange == nil {
		return ErrNoTimeRange
	}
	return s.player.Pause()
}

// PreviewSeek moves the preview cursor, clamped into the committed range.
func (s *Session) PreviewSeek(t float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeRange == nil {
		return ErrNoTimeRange
	}
	return s.player.Seek(t)
}

// PreviewState returns the current preview playback snapshot.
func (s *Session) PreviewState() preview.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Snapshot()
}

// Submit sends the committed time range and the two source identifiers to
// the processing backend. Timeline and selection state are preserved on
// failure so a retry needs no rebuild.
func (s *Session) Submit(ctx context.Context, secondVideoID, branch string) (remote.ProcessResult, error) {
	s.mu.Lock()
	client := s.remote
	var tr *timeline.TimeRange
	if s.timeRange != nil {
		copied := *s.timeRange
		tr = &copied
	}
	s.mu.Unlock()

	if client == nil {
		return remote.ProcessResult{}, ErrNoRemote
	}
	if tr == nil {
		return remote.ProcessResult{}, ErrNoTimeRange
	}

	result, err := client.Process(ctx, remote.ProcessRequest{
		FirstVideoID:  s.UploadID,
		SecondVideoID: secondVideoID,
		StartTime:     tr.Start,
		EndTime:       tr.End,
		Branch:        branch,
	})
	if err != nil {
		s.logger.Error("submit failed",
			slog.String("session_id", s.ID),
			slog.String("error", err.Error()),
		)
		return remote.ProcessResult{}, err
	}

	s.logger.Info("range submitted",
		slog.String("session_id", s.ID),
		slog.String("job_id", result.ID),
		slog.Float64("start", tr.Start),
		slog.Float64("end", tr.End),
	)
	return result, nil
}
