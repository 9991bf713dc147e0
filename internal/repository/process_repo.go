package repository

import (
	"context"
	"errors"

	"github.com/settleops/settlement-engine/internal/domain"
	"gorm.io/gorm"
)

type ProcessRepository interface {
	Create(ctx context.Context, process *domain.Process) error
	GetByID(ctx context.Context, id string) (*domain.Process, error)
	UpdateStatus(ctx context.Context, id string, status domain.ProcessStatus) error
	HasActiveByOwner(ctx context.Context, ownerID string) (bool, error)
}

type GormProcessRepo struct {
	db *gorm.DB
}

func NewGormProcessRepo(db *gorm.DB) *GormProcessRepo {
	return &GormProcessRepo{db: db}
}

func (r *GormProcessRepo) Create(ctx context.Context, process *domain.Process) error {
	return r.db.WithContext(ctx).Create(process).Error
}

func (r *GormProcessRepo) GetByID(ctx context.Context, id string) (*domain.Process, error) {
	var process domain.Process
	err := r.db.WithContext(ctx).First(&process, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &process, nil
}

func (r *GormProcessRepo) UpdateStatus(ctx context.Context, id string, status domain.ProcessStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Process{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// HasActiveByOwner reports whether the owner already has a PENDING or
// PROCESSING process. Callers enforce the one-active-process invariant
// before creating a new one.
func (r *GormProcessRepo) HasActiveByOwner(ctx context.Context, ownerID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Process{}).
		Where("owner_id = ? AND status IN ?", ownerID,
			[]domain.ProcessStatus{domain.ProcessPending, domain.ProcessProcessing}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
