// Package upload provides the Upload entity and its persistence: the
// catalog of source videos the timeline and processing pipeline operate on.
package upload

import (
	"context"
	"errors"
	"time"

	"github.com/framepick/framepick-api/internal/job/id"
)

// ErrUploadNotFound is returned when an upload cannot be found by ID.
var ErrUploadNotFound = errors.New("upload not found")

// Upload is the stored record of one uploaded source video.
type Upload struct {
	// ID is the stable identifier handed back to clients.
	ID string `json:"id"`
	// Filename is the original client-side filename.
	Filename string `json:"filename"`
	// Size is the stored file size in bytes.
	Size int64 `json:"size"`
	// Duration is the probed media duration in seconds.
	Duration float64 `json:"duration"`
	// URL is the path the stored file is served from.
	URL string `json:"url"`
	// Path is the location of the stored file on disk.
	Path string `json:"-"`
	// CreatedAt is when the upload was stored.
	CreatedAt time.Time `json:"created_at"`
}

// New creates an Upload with a generated ID.
func New(filename string, size int64, duration float64) *Upload {
	return &Upload{
		ID:        id.Generate("upload"),
		Filename:  filename,
		Size:      size,
		Duration:  duration,
		CreatedAt: time.Now(),
	}
}

// Repository defines the interface for upload persistence.
type Repository interface {
	// Save persists an upload record. Existing records are updated.
	Save(ctx context.Context, u *Upload) error

	// FindByID retrieves an upload by its identifier.
	// Returns ErrUploadNotFound if the upload does not exist.
	FindByID(ctx context.Context, id string) (*Upload, error)

	// List returns all uploads ordered by creation time, newest first.
	List(ctx context.Context) ([]*Upload, error)

	// Delete removes an upload record.
	// Returns ErrUploadNotFound if the upload does not exist.
	Delete(ctx context.Context, id string) error
}
