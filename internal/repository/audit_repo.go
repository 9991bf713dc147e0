package repository

import (
	"context"

	"github.com/settleops/settlement-engine/internal/domain"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(ctx context.Context, record *domain.AuditRecord) error
	ListByProcess(ctx context.Context, processID string) ([]domain.AuditRecord, error)
}

type GormAuditRepo struct {
	db *gorm.DB
}

func NewGormAuditRepo(db *gorm.DB) *GormAuditRepo {
	return &GormAuditRepo{db: db}
}

func (r *GormAuditRepo) Create(ctx context.Context, record *domain.AuditRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListByProcess returns the process's audit trail in insertion order, the
// durable source of truth when a live delivery was missed.
func (r *GormAuditRepo) ListByProcess(ctx context.Context, processID string) ([]domain.AuditRecord, error) {
	var records []domain.AuditRecord
	err := r.db.WithContext(ctx).
		Where("process_id = ?", processID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
