package job

import (
	"context"
	"sync"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps jobs in a mutex-guarded map. Every value that
// crosses the boundary is cloned so callers cannot mutate stored state.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*Job
}

// NewMemoryRepository creates an empty in-memory job repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*Job)}
}

// Save stores a job, replacing any existing entry with the same ID.
func (r *MemoryRepository) Save(_ context.Context, j *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[j.ID] = j.Clone()
	return nil
}

// FindByID returns the job with the given ID or ErrJobNotFound.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.byID[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return j.Clone(), nil
}

// List returns every stored job in unspecified order.
func (r *MemoryRepository) List(_ context.Context) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Job, 0, len(r.byID))
	for _, j := range r.byID {
		out = append(out, j.Clone())
	}
	return out, nil
}

// Delete removes the job with the given ID or returns ErrJobNotFound.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrJobNotFound
	}
	delete(r.byID, id)
	return nil
}
