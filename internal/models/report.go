package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditReport is the archived form of a finished batch.
type AuditReport struct {
	ID             uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	TotalFiles     int               `gorm:"not null" json:"total_files"`
	ProcessedFiles int               `gorm:"not null" json:"processed_files"`
	Parameters     []string          `gorm:"type:jsonb;serializer:json" json:"parameters"`
	Results        []FileAuditResult `gorm:"type:jsonb;serializer:json" json:"results"`
	OverallSummary string            `gorm:"type:text" json:"overall_summary"`
	ProcessingTime float64           `json:"processing_time"`
	CreatedAt      time.Time         `gorm:"type:timestamp;default:now()" json:"created_at"`
}

func (AuditReport) TableName() string {
	return "audit_reports"
}

// ToBatchResult rebuilds the API shape of an archived batch.
func (r *AuditReport) ToBatchResult() *BatchResult {
	return &BatchResult{
		AuditID:        r.ID.String(),
		TotalFiles:     r.TotalFiles,
		ProcessedFiles: r.ProcessedFiles,
		Results:        r.Results,
		OverallSummary: r.OverallSummary,
		ProcessingTime: r.ProcessingTime,
		GeneratedAt:    r.CreatedAt,
	}
}
