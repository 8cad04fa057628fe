package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/call-auditor/internal/models"
)

// AudioReader loads the bytes of a staged file.
type AudioReader interface {
	ReadAudio(file StoredFile) (Audio, error)
}

// BatchObserver receives per-file notifications from worker goroutines, in
// completion order. Either hook may be nil.
type BatchObserver struct {
	FileStarted  func(index int, file StoredFile)
	FileFinished func(index int, result models.FileAuditResult)
}

// Coordinator fans a batch out over a bounded number of concurrent file
// audits.
type Coordinator struct {
	auditor     *FileAuditor
	reader      AudioReader
	concurrency int
	logger      *zap.Logger
}

func NewCoordinator(auditor *FileAuditor, reader AudioReader, concurrency int, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		auditor:     auditor,
		reader:      reader,
		concurrency: max(concurrency, 1),
		logger:      logger,
	}
}

// RunBatch audits every file. The result slice is aligned with files no
// matter in which order the audits finish, and a failing file never stops
// its siblings. The only error is ctx's, when it ends before all files ran.
func (c *Coordinator) RunBatch(ctx context.Context, files []StoredFile, req models.AuditRequest, obs BatchObserver) ([]models.FileAuditResult, error) {
	results := make([]models.FileAuditResult, len(files))

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for i, file := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if obs.FileStarted != nil {
				c.notify(file.Name, func() { obs.FileStarted(i, file) })
			}
			results[i] = c.auditFile(ctx, file, req)
			if obs.FileFinished != nil {
				c.notify(file.Name, func() { obs.FileFinished(i, results[i]) })
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch interrupted: %w", err)
	}
	return results, nil
}

// notify runs an observer hook. A panicking hook is logged and swallowed so
// it can neither kill the worker nor cost the file its result.
func (c *Coordinator) notify(file string, hook func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in batch observer", zap.String("file", file), zap.Any("panic", r))
		}
	}()
	hook()
}

func (c *Coordinator) auditFile(ctx context.Context, file StoredFile, req models.AuditRequest) (result models.FileAuditResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while auditing file", zap.String("file", file.Name), zap.Any("panic", r))
			result = failedFileResult(file, req, fmt.Errorf("panic: %v", r))
		}
	}()

	audio, err := c.reader.ReadAudio(file)
	if err != nil {
		c.logger.Error("failed to load audio", zap.String("file", file.Name), zap.Error(err))
		return failedFileResult(file, req, err)
	}

	verdicts, mode := c.auditor.evaluate(ctx, audio, req)

	c.logger.Info("file audited",
		zap.String("file", file.Name),
		zap.String("mode", string(mode)),
		zap.Duration("elapsed", time.Since(start)))

	return models.FileAuditResult{
		Filename:     file.Name,
		FileSize:     file.Size,
		Results:      verdicts,
		OverallScore: CalculateOverallScore(verdicts),
	}
}

// failedFileResult still carries one placeholder per requested parameter so
// every file reports the same verdict count.
func failedFileResult(file StoredFile, req models.AuditRequest, err error) models.FileAuditResult {
	reasoning := fmt.Sprintf("Error processing file: %v", err)
	verdicts := make([]models.Verdict, 0, len(req.Parameters))
	for _, p := range req.Parameters {
		verdicts = append(verdicts, models.IndeterminateVerdict(p, reasoning))
	}
	return models.FileAuditResult{
		Filename:     file.Name,
		FileSize:     file.Size,
		Results:      verdicts,
		OverallScore: 0,
		Error:        reasoning,
	}
}
