package repository

import (
	"context"
	"errors"

	"github.com/settleops/settlement-engine/internal/domain"
	"gorm.io/gorm"
)

type PermissionRepository interface {
	Create(ctx context.Context, grant *domain.PermissionGrant) error
	GetByID(ctx context.Context, id string) (*domain.PermissionGrant, error)
	List(ctx context.Context, status *domain.GrantStatus) ([]domain.PermissionGrant, error)
	ListAcceptedBySender(ctx context.Context, senderID string) ([]domain.PermissionGrant, error)
	Review(ctx context.Context, id string, reviewerID string, status domain.GrantStatus) error
	Delete(ctx context.Context, id string) (int64, error)
}

type GormPermissionRepo struct {
	db *gorm.DB
}

func NewGormPermissionRepo(db *gorm.DB) *GormPermissionRepo {
	return &GormPermissionRepo{db: db}
}

func (r *GormPermissionRepo) Create(ctx context.Context, grant *domain.PermissionGrant) error {
	return r.db.WithContext(ctx).Create(grant).Error
}

func (r *GormPermissionRepo) GetByID(ctx context.Context, id string) (*domain.PermissionGrant, error) {
	var grant domain.PermissionGrant
	err := r.db.WithContext(ctx).First(&grant, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *GormPermissionRepo) List(ctx context.Context, status *domain.GrantStatus) ([]domain.PermissionGrant, error) {
	query := r.db.WithContext(ctx).Model(&domain.PermissionGrant{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var grants []domain.PermissionGrant
	if err := query.Order("created_at DESC").Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *GormPermissionRepo) ListAcceptedBySender(ctx context.Context, senderID string) ([]domain.PermissionGrant, error) {
	var grants []domain.PermissionGrant
	err := r.db.WithContext(ctx).
		Where("sender_id = ? AND status = ?", senderID, domain.GrantAccepted).
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// Review flips a PENDING grant to ACCEPTED or REJECTED. Reviewing a grant
// in any other state is a conflict.
func (r *GormPermissionRepo) Review(ctx context.Context, id string, reviewerID string, status domain.GrantStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.PermissionGrant{}).
		Where("id = ? AND status = ?", id, domain.GrantPending).
		Updates(map[string]any{
			"status":      status,
			"reviewer_id": reviewerID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormPermissionRepo) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&domain.PermissionGrant{}, "id = ?", id)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
