package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/call-auditor/internal/models"
	"alfredoptarigan/call-auditor/internal/repositories"
)

// Strategy names a submission mode's oracle call policy.
type Strategy string

const (
	// StrategyAuto uses one combined call per file unless custom prompts
	// force per-criterion calls.
	StrategyAuto Strategy = "auto"
	// StrategyCombined insists on one combined call per file.
	StrategyCombined Strategy = "combined"
)

// AuditService runs a batch end to end: fan-out, scoring, archiving.
type AuditService struct {
	coordinator *Coordinator
	reports     repositories.ReportRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewAuditService builds the engine. reports may be nil to disable archiving.
func NewAuditService(coordinator *Coordinator, reports repositories.ReportRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		coordinator: coordinator,
		reports:     reports,
		logger:      logger,
		now:         time.Now,
	}
}

// ValidateRequest rejects requests that must not start a batch.
func ValidateRequest(req models.AuditRequest, strategy Strategy) error {
	if len(req.Parameters) == 0 {
		return validationErrorf("at least one audit parameter is required")
	}
	for _, p := range req.Parameters {
		if strings.TrimSpace(p) == "" {
			return validationErrorf("audit parameters must not be blank")
		}
	}
	if strategy == StrategyCombined && req.HasOverrides() {
		return validationErrorf("custom_prompts cannot be used with the combined strategy")
	}
	return nil
}

// NewAuditID returns an opaque batch identifier.
func NewAuditID() string {
	return uuid.New().String()
}

// Run audits files under auditID and returns the aggregated batch.
func (s *AuditService) Run(ctx context.Context, auditID string, files []StoredFile, req models.AuditRequest, obs BatchObserver) (*models.BatchResult, error) {
	start := s.now()

	s.logger.Info("audit started",
		zap.String("audit_id", auditID),
		zap.Int("files", len(files)),
		zap.Strings("parameters", req.Parameters))

	results, err := s.coordinator.RunBatch(ctx, files, req, obs)
	if err != nil {
		s.logger.Error("audit interrupted", zap.String("audit_id", auditID), zap.Error(err))
		return nil, err
	}

	batch := &models.BatchResult{
		AuditID:        auditID,
		TotalFiles:     len(files),
		ProcessedFiles: len(results),
		Results:        results,
		OverallSummary: GenerateOverallSummary(results, len(files)),
		ProcessingTime: s.now().Sub(start).Seconds(),
		GeneratedAt:    s.now().UTC(),
	}

	s.logger.Info("audit completed",
		zap.String("audit_id", auditID),
		zap.Float64("processing_time", batch.ProcessingTime),
		zap.String("summary", batch.OverallSummary))

	s.archive(ctx, batch, req)

	return batch, nil
}

func (s *AuditService) archive(ctx context.Context, batch *models.BatchResult, req models.AuditRequest) {
	if s.reports == nil {
		return
	}

	id, err := uuid.Parse(batch.AuditID)
	if err != nil {
		s.logger.Warn("audit id is not a uuid, skipping archive", zap.String("audit_id", batch.AuditID))
		return
	}

	report := &models.AuditReport{
		ID:             id,
		TotalFiles:     batch.TotalFiles,
		ProcessedFiles: batch.ProcessedFiles,
		Parameters:     req.Parameters,
		Results:        batch.Results,
		OverallSummary: batch.OverallSummary,
		ProcessingTime: batch.ProcessingTime,
		CreatedAt:      batch.GeneratedAt,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		s.logger.Error("failed to archive audit report", zap.String("audit_id", batch.AuditID), zap.Error(err))
	}
}
