package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"alfredoptarigan/call-auditor/internal/models"
)

// ProgressStreamer runs a batch and reports it as a sequence of events.
type ProgressStreamer struct {
	audits *AuditService
	logger *zap.Logger
}

func NewProgressStreamer(audits *AuditService, logger *zap.Logger) *ProgressStreamer {
	return &ProgressStreamer{audits: audits, logger: logger}
}

// Stream starts the batch and returns its events. started and every
// file_started come first, in submission order; per-file outcomes follow
// in completion order; completed or error is always last, after which the
// channel is closed. The channel holds the whole sequence, so the run
// finishes (and done runs) even if nobody reads.
func (s *ProgressStreamer) Stream(ctx context.Context, files []StoredFile, req models.AuditRequest, done func()) <-chan models.ProgressEvent {
	events := make(chan models.ProgressEvent, 2*len(files)+2)
	auditID := NewAuditID()

	go func() {
		defer close(events)
		if done != nil {
			defer done()
		}
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in audit stream", zap.String("audit_id", auditID), zap.Any("panic", r))
				events <- models.ProgressEvent{Type: models.EventError, AuditID: auditID, Error: fmt.Sprintf("panic: %v", r)}
			}
		}()

		events <- models.ProgressEvent{
			Type:            models.EventStarted,
			AuditID:         auditID,
			TotalFiles:      len(files),
			TotalParameters: len(req.Parameters),
		}

		for i, f := range files {
			events <- models.ProgressEvent{
				Type:     models.EventFileStarted,
				AuditID:  auditID,
				Index:    indexPtr(i),
				Filename: f.Name,
				Progress: float64(i) / float64(len(files)) * 100,
			}
		}

		obs := BatchObserver{
			FileFinished: func(i int, result models.FileAuditResult) {
				if result.Error != "" {
					events <- models.ProgressEvent{
						Type:     models.EventFileError,
						AuditID:  auditID,
						Index:    indexPtr(i),
						Filename: result.Filename,
						Error:    result.Error,
					}
					return
				}
				score := result.OverallScore
				events <- models.ProgressEvent{
					Type:     models.EventFileCompleted,
					AuditID:  auditID,
					Index:    indexPtr(i),
					Filename: result.Filename,
					Score:    &score,
					File:     &result,
				}
			},
		}

		batch, err := s.audits.Run(ctx, auditID, files, req, obs)
		if err != nil {
			events <- models.ProgressEvent{Type: models.EventError, AuditID: auditID, Error: err.Error()}
			return
		}

		events <- models.ProgressEvent{
			Type:           models.EventCompleted,
			AuditID:        auditID,
			TotalFiles:     batch.TotalFiles,
			ProcessedFiles: batch.ProcessedFiles,
			Summary:        batch.OverallSummary,
			ProcessingTime: batch.ProcessingTime,
		}
	}()

	return events
}

func indexPtr(i int) *int {
	return &i
}
