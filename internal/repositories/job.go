package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"alfredoptarigan/call-auditor/internal/models"
)

var ErrNotFound = errors.New("record not found")

// JobRepository owns the audit job table. FindByID returns a snapshot the
// caller may keep; Update applies mutate atomically with respect to other
// callers of the same repository.
type JobRepository interface {
	Create(ctx context.Context, job *models.AuditJob) error
	FindByID(ctx context.Context, id string) (*models.AuditJob, error)
	Update(ctx context.Context, id string, mutate func(job *models.AuditJob)) error
}

type memoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*models.AuditJob
}

func NewMemoryJobRepository() JobRepository {
	return &memoryJobRepository{jobs: make(map[string]*models.AuditJob)}
}

// Create implements JobRepository.
func (r *memoryJobRepository) Create(_ context.Context, job *models.AuditJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	stored := *job
	r.jobs[job.ID] = &stored
	return nil
}

// FindByID implements JobRepository.
func (r *memoryJobRepository) FindByID(_ context.Context, id string) (*models.AuditJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	snapshot := *job
	return &snapshot, nil
}

// Update implements JobRepository.
func (r *memoryJobRepository) Update(_ context.Context, id string, mutate func(job *models.AuditJob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	mutate(job)
	return nil
}
