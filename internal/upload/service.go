package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/framepick/framepick-api/internal/media"
	"github.com/framepick/framepick-api/internal/storage"
	"github.com/framepick/framepick-api/internal/thumbs"
	"github.com/framepick/framepick-api/internal/timeline"
)

// ErrInvalidMedia mirrors the media package sentinel so handlers can match
// it without importing the toolbox.
var ErrInvalidMedia = media.ErrInvalidMedia

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithThumbnailSize sets the timeline thumbnail dimensions.
func WithThumbnailSize(w, h int) ServiceOption {
	return func(s *Service) {
		if w > 0 && h > 0 {
			s.thumbWidth, s.thumbHeight = w, h
		}
	}
}

// Service stores uploaded source videos and builds frame timelines over them.
type Service struct {
	repo        Repository
	store       storage.Storage
	processor   media.Processor
	logger      *slog.Logger
	thumbWidth  int
	thumbHeight int
}

// NewService creates an upload Service.
func NewService(repo Repository, store storage.Storage, processor media.Processor, opts ...ServiceOption) *Service {
	s := &Service{
		repo:        repo,
		store:       store,
		processor:   processor,
		logger:      slog.Default(),
		thumbWidth:  thumbs.DefaultWidth,
		thumbHeight: thumbs.DefaultHeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store persists an uploaded video, probes its duration, and records the
// upload in the catalog. Sources with a zero or unreadable duration are
// rejected with ErrInvalidMedia and the stored file is removed again.
func (s *Service) Store(ctx context.Context, filename string, data io.Reader) (*Upload, error) {
	path, err := s.store.Save(ctx, filename, data)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	duration, err := s.processor.ProbeDuration(ctx, path)
	if err != nil {
		_ = s.store.Remove(ctx, []string{path})
		if errors.Is(err, media.ErrInvalidMedia) || errors.Is(err, media.ErrFFprobeExecution) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidMedia, filename)
		}
		return nil, fmt.Errorf("probe duration: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		_ = s.store.Remove(ctx, []string{path})
		return nil, fmt.Errorf("stat upload: %w", err)
	}

	u := New(filename, info.Size(), duration)
	u.Path = path
	u.URL = "/uploads/" + u.ID + "/file"

	if err := s.repo.Save(ctx, u); err != nil {
		_ = s.store.Remove(ctx, []string{path})
		return nil, fmt.Errorf("save upload: %w", err)
	}

	s.logger.Info("upload stored",
		slog.String("upload_id", u.ID),
		slog.String("filename", filename),
		slog.Int64("size", u.Size),
		slog.Float64("duration", duration),
	)
	return u, nil
}

// Get retrieves an upload by ID.
func (s *Service) Get(ctx context.Context, id string) (*Upload, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns all uploads, newest first.
func (s *Service) List(ctx context.Context) ([]*Upload, error) {
	return s.repo.List(ctx)
}

// OpenFile opens the stored file of an upload for streaming.
func (s *Service) OpenFile(ctx context.Context, id string) (io.ReadCloser, *Upload, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, u.Path)
	if err != nil {
		return nil, nil, err
	}
	return rc, u, nil
}

// Timeline samples an upload at the given interval and captures one
// thumbnail per sample point, sequentially and in index order.
func (s *Service) Timeline(ctx context.Context, id string, interval float64, maxFrames int) ([]timeline.SamplePoint, []thumbs.Thumbnail, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	sampler := timeline.NewSampler(interval, maxFrames)
	samples, err := sampler.Build(u.Duration)
	if err != nil {
		return nil, nil, err
	}

	renderer := thumbs.NewRenderer(
		thumbs.WithDimensions(s.thumbWidth, s.thumbHeight),
		thumbs.WithLogger(s.logger),
	)
	src := media.NewFrameSource(s.processor, u.Path)
	rendered, err := renderer.Render(ctx, src, samples)
	if err != nil {
		return nil, nil, err
	}
	return samples, rendered, nil
}
