package upload

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	uploads map[string]*Upload
}

// NewMemoryRepository creates a new in-memory upload repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{uploads: make(map[string]*Upload)}
}

// Save persists an upload record.
func (r *MemoryRepository) Save(_ context.Context, u *Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *u
	r.uploads[u.ID] = &copied
	return nil
}

// FindByID retrieves an upload by its ID.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, ErrUploadNotFound
	}
	copied := *u
	return &copied, nil
}

// List returns all uploads, newest first.
func (r *MemoryRepository) List(_ context.Context) ([]*Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Upload, 0, len(r.uploads))
	for _, u := range r.uploads {
		copied := *u
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Delete removes an upload record.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.uploads[id]; !ok {
		return ErrUploadNotFound
	}
	delete(r.uploads, id)
	return nil
}
