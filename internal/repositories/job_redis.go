package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"alfredoptarigan/call-auditor/internal/models"
)

type redisJobRepository struct {
	client *redis.Client
	ttl    time.Duration
	// Serialises read-modify-write cycles issued from this process. Each job
	// has a single writer, so cross-process locking is not needed.
	mu sync.Mutex
}

// NewRedisJobRepository stores jobs as JSON documents that expire after ttl.
func NewRedisJobRepository(client *redis.Client, ttl time.Duration) JobRepository {
	return &redisJobRepository{client: client, ttl: ttl}
}

func JobKey(id string) string {
	return "audit:job:" + id
}

// Create implements JobRepository.
func (r *redisJobRepository) Create(ctx context.Context, job *models.AuditJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	ok, err := r.client.SetNX(ctx, JobKey(job.ID), payload, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	if !ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	return nil
}

// FindByID implements JobRepository.
func (r *redisJobRepository) FindByID(ctx context.Context, id string) (*models.AuditJob, error) {
	payload, err := r.client.Get(ctx, JobKey(id)).Bytes()
	if err != nil {
		return nil, lookupError(id, err)
	}

	var job models.AuditJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

// Update implements JobRepository.
func (r *redisJobRepository) Update(ctx context.Context, id string, mutate func(job *models.AuditJob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	mutate(job)

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := r.client.Set(ctx, JobKey(id), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// lookupError maps a missing key, wrapped or not, to ErrNotFound.
func lookupError(id string, err error) error {
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("failed to find job: %w", err)
}
