package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/framepick/framepick-api/internal/media"
	"github.com/framepick/framepick-api/internal/storage"
	"github.com/framepick/framepick-api/internal/upload"
)

// Static errors for the trim service.
var (
	// ErrInvalidTimeRange is returned when the submitted range is empty or inverted.
	ErrInvalidTimeRange = errors.New("job: invalid time range: end must be after start")
	// ErrInvalidBranch is returned for an unknown pipeline variant.
	ErrInvalidBranch = errors.New("job: invalid branch")
	// ErrSecondVideoRequired is returned when a splice job has no second video.
	ErrSecondVideoRequired = errors.New("job: splice requires a second video")
	// ErrOutputNotReady is returned when a download is attempted before the
	// job has completed.
	ErrOutputNotReady = errors.New("job: output not ready")
)

// TrimInput contains the parameters for a trim job: the committed time range
// plus the two source video identifiers.
type TrimInput struct {
	// FirstVideoID identifies the video the range was selected on.
	FirstVideoID string
	// SecondVideoID identifies the optional splice video.
	SecondVideoID string
	// StartTime is the range start in seconds.
	StartTime float64
	// EndTime is the range end in seconds.
	EndTime float64
	// Branch is the processing pipeline variant.
	Branch Branch
	// PushToS3 indicates whether to upload the output for delivery.
	PushToS3 bool
}

// ServiceOption configures a TrimService.
type ServiceOption func(*TrimService)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *TrimService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// TrimService executes trim jobs: it resolves the stored sources, cuts the
// committed time range out of the first video, optionally splices the second
// one after the clip, and records the output on the job.
type TrimService struct {
	repo      Repository
	uploads   upload.Repository
	processor media.Processor
	store     storage.Storage
	logger    *slog.Logger
}

// NewTrimService creates a TrimService.
func NewTrimService(repo Repository, uploads upload.Repository, processor media.Processor, store storage.Storage, opts ...ServiceOption) *TrimService {
	s := &TrimService{
		repo:      repo,
		uploads:   uploads,
		processor: processor,
		store:     store,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJob validates the input, resolves the source uploads, and persists a
// queued job. Processing happens separately so the HTTP layer can return
// immediately and run the pipeline on a detached context.
func (s *TrimService) CreateJob(ctx context.Context, input TrimInput) (*Job, error) {
	if input.EndTime <= input.StartTime {
		return nil, fmt.Errorf("%w: start=%.3f, end=%.3f", ErrInvalidTimeRange, input.StartTime, input.EndTime)
	}
	if input.Branch == "" {
		input.Branch = BranchTrim
	}
	if !input.Branch.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBranch, input.Branch)
	}
	if input.Branch == BranchSplice && input.SecondVideoID == "" {
		return nil, ErrSecondVideoRequired
	}

	if _, err := s.uploads.FindByID(ctx, input.FirstVideoID); err != nil {
		return nil, fmt.Errorf("first video: %w", err)
	}
	if input.SecondVideoID != "" {
		if _, err := s.uploads.FindByID(ctx, input.SecondVideoID); err != nil {
			return nil, fmt.Errorf("second video: %w", err)
		}
	}

	j := New()
	j.FirstVideoID = input.FirstVideoID
	j.SecondVideoID = input.SecondVideoID
	j.StartTime = input.StartTime
	j.EndTime = input.EndTime
	j.Branch = input.Branch

	s.logger.Info("creating trim job",
		slog.String("job_id", j.ID),
		slog.String("first_video_id", input.FirstVideoID),
		slog.String("second_video_id", input.SecondVideoID),
		slog.Float64("start", input.StartTime),
		slog.Float64("end", input.EndTime),
		slog.String("branch", string(input.Branch)),
	)

	if err := s.repo.Save(ctx, j); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	return j, nil
}

// ProcessExistingJob runs the pipeline for a previously created job.
func (s *TrimService) ProcessExistingJob(ctx context.Context, jobID string, input TrimInput) (*Job, error) {
	j, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := j.Start(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, j); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	if err := s.process(ctx, j, input); err != nil {
		_ = j.Fail(err.Error())
		if saveErr := s.repo.Save(ctx, j); saveErr != nil {
			s.logger.Error("failed to persist failed job",
				slog.String("job_id", j.ID),
				slog.String("error", saveErr.Error()),
			)
		}
		return j, err
	}

	if err := j.Complete(); err != nil {
		return nil, err
	}
	j.UpdateProgress(100)
	if err := s.repo.Save(ctx, j); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	s.logger.Info("trim job completed",
		slog.String("job_id", j.ID),
		slog.String("output", j.OutputPath),
	)
	return j, nil
}

// process executes the cut/splice pipeline and records the output on j.
func (s *TrimService) process(ctx context.Context, j *Job, input TrimInput) error {
	first, err := s.uploads.FindByID(ctx, j.FirstVideoID)
	if err != nil {
		return fmt.Errorf("first video: %w", err)
	}

	outDir, err := os.MkdirTemp("", "framepick-job-*")
	if err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(outDir) }()

	clipPath := filepath.Join(outDir, "clip.mp4")
	if err := s.processor.Cut(ctx, first.Path, clipPath, j.StartTime, j.EndTime); err != nil {
		return fmt.Errorf("cut range: %w", err)
	}
	j.UpdateProgress(50)
	_ = s.repo.Save(ctx, j)

	outputPath := clipPath
	if j.Branch == BranchSplice {
		second, err := s.uploads.FindByID(ctx, j.SecondVideoID)
		if err != nil {
			return fmt.Errorf("second video: %w", err)
		}
		joined := filepath.Join(outDir, "output.mp4")
		if err := s.processor.Join(ctx, []string{clipPath, second.Path}, joined); err != nil {
			return fmt.Errorf("splice videos: %w", err)
		}
		outputPath = joined
	}
	j.UpdateProgress(80)
	_ = s.repo.Save(ctx, j)

	// Move the output out of the ephemeral work directory.
	f, err := os.Open(outputPath) // #nosec G304 - path built above
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	stored, err := s.store.Save(ctx, j.ID+".mp4", f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("store output: %w", err)
	}

	var outputURL string
	if input.PushToS3 {
		sf, err := os.Open(stored) // #nosec G304 - path from storage
		if err != nil {
			return fmt.Errorf("open stored output: %w", err)
		}
		outputURL, err = s.store.UploadToS3(ctx, j.ID+".mp4", sf)
		_ = sf.Close()
		if err != nil {
			return fmt.Errorf("upload output: %w", err)
		}
	}

	j.SetOutput(stored, outputURL)
	return nil
}

// GetJob retrieves a job by ID.
func (s *TrimService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all jobs.
func (s *TrimService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// Output opens the processed output of a completed job for streaming.
func (s *TrimService) Output(ctx context.Context, id string) (io.ReadCloser, error) {
	j, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.GetStatus() != StatusCompleted || j.OutputPath == "" {
		return nil, ErrOutputNotReady
	}
	return s.store.Open(ctx, j.OutputPath)
}
