package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/call-auditor/internal/models"
)

type ReportRepository interface {
	Create(ctx context.Context, report *models.AuditReport) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AuditReport, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// Create implements ReportRepository.
func (r *reportRepository) Create(ctx context.Context, report *models.AuditReport) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to create audit report: %w", err)
	}
	return nil
}

// FindByID implements ReportRepository.
func (r *reportRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.AuditReport, error) {
	var report models.AuditReport
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("audit report %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find audit report: %w", err)
	}
	return &report, nil
}
