// Package bootstrap provides dependency initialization for the API server.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/framepick/framepick-api/internal/config"
	"github.com/framepick/framepick-api/internal/job"
	"github.com/framepick/framepick-api/internal/media"
	"github.com/framepick/framepick-api/internal/remote"
	"github.com/framepick/framepick-api/internal/server"
	"github.com/framepick/framepick-api/internal/session"
	"github.com/framepick/framepick-api/internal/storage"
	"github.com/framepick/framepick-api/internal/upload"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Uploads  *upload.Service
	Jobs     *job.TrimService
	Sessions *server.SessionHandlers
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	uploadRepo, err := initUploadRepo(cfg, logger)
	if err != nil {
		return nil, err
	}

	processor := media.NewFFmpegProcessor(cfg.FFmpegPath, cfg.FFprobePath)

	uploads := upload.NewService(uploadRepo, store, processor,
		upload.WithLogger(logger),
		upload.WithThumbnailSize(cfg.ThumbWidth, cfg.ThumbHeight),
	)

	jobRepo := job.NewMemoryRepository()
	jobs := job.NewTrimService(jobRepo, uploadRepo, processor, store,
		job.WithLogger(logger),
	)

	var remoteClient remote.Client
	if cfg.RemoteBaseURL != "" {
		client, err := remote.NewClient(cfg.RemoteBaseURL)
		if err != nil {
			return nil, fmt.Errorf("create remote client: %w", err)
		}
		remoteClient = client
		logger.Info("remote processing backend configured",
			slog.String("base_url", cfg.RemoteBaseURL),
		)
	}

	sessions := server.NewSessionHandlers(session.NewManager(), uploads, processor, jobs, remoteClient)

	return &Dependencies{
		Uploads:  uploads,
		Jobs:     jobs,
		Sessions: sessions,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.DataDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("data_dir", cfg.DataDir),
	)
	return localStore, nil
}

// initUploadRepo selects the persistent SQLite catalog when configured, the
// in-memory catalog otherwise.
func initUploadRepo(cfg *config.Config, logger *slog.Logger) (upload.Repository, error) {
	if cfg.SQLitePath == "" {
		logger.Info("in-memory upload catalog configured")
		return upload.NewMemoryRepository(), nil
	}

	repo, err := upload.NewSQLiteRepository(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("create SQLite upload catalog: %w", err)
	}
	logger.Info("SQLite upload catalog configured",
		slog.String("path", cfg.SQLitePath),
	)
	return repo, nil
}
