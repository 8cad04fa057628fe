package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"alfredoptarigan/call-auditor/internal/models"
)

// AuditMode records how the verdicts of one file were obtained.
type AuditMode string

const (
	ModeCombined     AuditMode = "combined"
	ModePerCriterion AuditMode = "per_criterion"
)

type stageStatus int

const (
	stageOK stageStatus = iota
	stageRecoverable
)

// stageResult is the outcome of one strategy attempt. Recoverable results
// send the pipeline to the next strategy.
type stageResult struct {
	status   stageStatus
	verdicts []models.Verdict
	err      error
}

// FileAuditor evaluates one recording against a list of criteria.
type FileAuditor struct {
	oracle  OracleClient
	catalog *CriterionCatalog
	logger  *zap.Logger
}

func NewFileAuditor(oracle OracleClient, catalog *CriterionCatalog, logger *zap.Logger) *FileAuditor {
	return &FileAuditor{
		oracle:  oracle,
		catalog: catalog,
		logger:  logger,
	}
}

// Evaluate returns one verdict per requested parameter, in request order.
// Oracle and decoding failures degrade to Unknown verdicts; nothing is
// returned as an error.
func (a *FileAuditor) Evaluate(ctx context.Context, audio Audio, req models.AuditRequest) []models.Verdict {
	verdicts, _ := a.evaluate(ctx, audio, req)
	return verdicts
}

func (a *FileAuditor) evaluate(ctx context.Context, audio Audio, req models.AuditRequest) ([]models.Verdict, AuditMode) {
	if len(req.Parameters) == 0 {
		return []models.Verdict{}, ModeCombined
	}

	// Custom prompts cannot be merged into the combined instruction.
	if req.HasOverrides() {
		return a.perCriterion(ctx, audio, req), ModePerCriterion
	}

	combined := a.tryCombined(ctx, audio, req.Parameters)
	if combined.status == stageOK {
		return combined.verdicts, ModeCombined
	}

	a.logger.Warn("combined audit failed, falling back to per-criterion calls",
		zap.String("file", audio.Name),
		zap.Int("parameters", len(req.Parameters)),
		zap.Error(combined.err))

	return a.perCriterion(ctx, audio, req), ModePerCriterion
}

func (a *FileAuditor) tryCombined(ctx context.Context, audio Audio, parameters []string) stageResult {
	text, err := a.oracle.Invoke(ctx, audio, a.catalog.ResolveCombined(parameters))
	if err != nil {
		return stageResult{status: stageRecoverable, err: fmt.Errorf("oracle: %w", err)}
	}

	verdicts, err := ParseBatchResponse(parameters, text)
	if err != nil {
		return stageResult{status: stageRecoverable, err: err}
	}

	return stageResult{status: stageOK, verdicts: verdicts}
}

func (a *FileAuditor) perCriterion(ctx context.Context, audio Audio, req models.AuditRequest) []models.Verdict {
	verdicts := make([]models.Verdict, 0, len(req.Parameters))

	for _, parameter := range req.Parameters {
		instruction := req.CustomPrompts[parameter]
		if instruction == "" {
			instruction = a.catalog.Resolve(parameter)
		}

		text, err := a.oracle.Invoke(ctx, audio, instruction)
		if err != nil {
			a.logger.Error("criterion audit failed",
				zap.String("file", audio.Name),
				zap.String("parameter", parameter),
				zap.Error(err))
			verdicts = append(verdicts, models.IndeterminateVerdict(parameter, fmt.Sprintf("Error: %v", err)))
			continue
		}

		verdicts = append(verdicts, ParseSingleResponse(parameter, text))
	}

	return verdicts
}
