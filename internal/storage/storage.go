// Package storage provides file storage for uploaded sources and processed
// outputs. It defines the Storage port and implementations for local disk
// and S3-backed delivery.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for storing media files. Uploaded sources
// and processed outputs live on local disk; completed outputs can optionally
// be pushed to S3 for delivery.
type Storage interface {
	// Save writes data to a file in the data directory and returns its path.
	// The name parameter is used as a hint for the filename.
	Save(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Open reads a stored file. The caller closes the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes the specified files. It continues even if some files
	// fail to delete, returning the first error encountered.
	Remove(ctx context.Context, paths []string) error

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
