package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when no job exists for a given ID.
var ErrJobNotFound = errors.New("job not found")

// Repository is the persistence port for trim jobs. Save upserts;
// FindByID and Delete report unknown IDs as ErrJobNotFound.
type Repository interface {
	Save(ctx context.Context, j *Job) error
	FindByID(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context) ([]*Job, error)
	Delete(ctx context.Context, id string) error
}
