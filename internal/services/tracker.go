package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/call-auditor/internal/models"
	"alfredoptarigan/call-auditor/internal/repositories"
)

const (
	progressFanOutStarted = 10.0
	progressFilesSpan     = 80.0
	progressDone          = 100.0
)

// JobTracker runs batches in the background and answers status polls.
// Jobs move from processing to completed or failed and never back.
type JobTracker interface {
	// Submit takes ownership of files: cleanup runs once the job ends, or
	// immediately if the job cannot be created.
	Submit(ctx context.Context, files []StoredFile, req models.AuditRequest, cleanup func()) (string, error)
	GetStatus(ctx context.Context, jobID string) (*models.AuditJob, error)
	GetResult(ctx context.Context, jobID string) (*models.BatchResult, error)
	Stop()
}

type jobTracker struct {
	jobs   repositories.JobRepository
	audits *AuditService
	logger *zap.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewJobTracker(jobs repositories.JobRepository, audits *AuditService, logger *zap.Logger) JobTracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &jobTracker{
		jobs:   jobs,
		audits: audits,
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit implements JobTracker.
func (t *jobTracker) Submit(ctx context.Context, files []StoredFile, req models.AuditRequest, cleanup func()) (string, error) {
	if cleanup == nil {
		cleanup = func() {}
	}
	if t.ctx.Err() != nil {
		cleanup()
		return "", fmt.Errorf("job tracker is stopped")
	}

	job := &models.AuditJob{
		ID:         uuid.New().String(),
		Status:     models.JobStatusProcessing,
		TotalFiles: len(files),
		StartedAt:  t.now().UTC(),
	}
	if err := t.jobs.Create(ctx, job); err != nil {
		cleanup()
		return "", fmt.Errorf("creating job: %w", err)
	}

	t.wg.Add(1)
	go t.run(job.ID, files, req, cleanup)

	t.logger.Info("audit job submitted", zap.String("job_id", job.ID), zap.Int("files", len(files)))
	return job.ID, nil
}

// run always leaves the job completed or failed, panics included.
func (t *jobTracker) run(jobID string, files []StoredFile, req models.AuditRequest, cleanup func()) {
	defer t.wg.Done()
	defer cleanup()
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in audit job", zap.String("job_id", jobID), zap.Any("panic", r))
			t.fail(jobID, fmt.Sprintf("panic: %v", r))
		}
	}()

	ctx := t.ctx
	total := len(files)

	t.update(jobID, func(j *models.AuditJob) {
		j.Progress = max(j.Progress, progressFanOutStarted)
	})

	obs := BatchObserver{
		FileStarted: func(_ int, file StoredFile) {
			t.update(jobID, func(j *models.AuditJob) {
				j.CurrentFile = file.Name
			})
		},
		FileFinished: func(_ int, _ models.FileAuditResult) {
			t.update(jobID, func(j *models.AuditJob) {
				j.ProcessedFiles++
				if total > 0 {
					p := progressFanOutStarted + progressFilesSpan*float64(j.ProcessedFiles)/float64(total)
					j.Progress = max(j.Progress, p)
				}
			})
		},
	}

	batch, err := t.audits.Run(ctx, NewAuditID(), files, req, obs)
	if err != nil {
		t.fail(jobID, err.Error())
		return
	}

	completedAt := t.now().UTC()
	t.update(jobID, func(j *models.AuditJob) {
		j.Status = models.JobStatusCompleted
		j.Progress = progressDone
		j.CurrentFile = ""
		j.ProcessedFiles = batch.ProcessedFiles
		j.Result = batch
		j.CompletedAt = &completedAt
	})
	t.logger.Info("audit job completed", zap.String("job_id", jobID))
}

func (t *jobTracker) fail(jobID, message string) {
	failedAt := t.now().UTC()
	t.update(jobID, func(j *models.AuditJob) {
		if j.IsDone() {
			return
		}
		j.Status = models.JobStatusFailed
		j.ErrorMessage = message
		j.CurrentFile = ""
		j.CompletedAt = &failedAt
	})
	t.logger.Error("audit job failed", zap.String("job_id", jobID), zap.String("error", message))
}

// update uses a background context so a stopping tracker can still record
// the terminal state of its jobs.
func (t *jobTracker) update(jobID string, mutate func(j *models.AuditJob)) {
	if err := t.jobs.Update(context.Background(), jobID, mutate); err != nil {
		t.logger.Warn("failed to update audit job", zap.String("job_id", jobID), zap.Error(err))
	}
}

// GetStatus implements JobTracker.
func (t *jobTracker) GetStatus(ctx context.Context, jobID string) (*models.AuditJob, error) {
	job, err := t.find(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.ElapsedTime = job.Elapsed(t.now()).Seconds()
	return job, nil
}

// GetResult implements JobTracker.
func (t *jobTracker) GetResult(ctx context.Context, jobID string) (*models.BatchResult, error) {
	job, err := t.find(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrJobNotReady, job.Status)
	}
	if job.Result == nil {
		return nil, ErrResultMissing
	}
	return job.Result, nil
}

func (t *jobTracker) find(ctx context.Context, jobID string) (*models.AuditJob, error) {
	job, err := t.jobs.FindByID(ctx, jobID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading job: %w", err)
	}
	return job, nil
}

// Stop cancels running jobs and waits until each has recorded its final state.
func (t *jobTracker) Stop() {
	t.logger.Info("🛑 Stopping job tracker...")
	t.cancel()
	t.wg.Wait()
	t.logger.Info("✅ Job tracker stopped")
}
