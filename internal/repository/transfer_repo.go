package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/settleops/settlement-engine/internal/domain"
	"gorm.io/gorm"
)

type TransferRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.TransferAccount, error)
	ListAll(ctx context.Context) ([]domain.TransferAccount, error)
	UpdateCurrencyStatus(ctx context.Context, accountID string, currency string, status string) error
}

type GormTransferRepo struct {
	db *gorm.DB
}

func NewGormTransferRepo(db *gorm.DB) *GormTransferRepo {
	return &GormTransferRepo{db: db}
}

func (r *GormTransferRepo) GetByUsername(ctx context.Context, username string) (*domain.TransferAccount, error) {
	var account domain.TransferAccount
	err := r.db.WithContext(ctx).
		Preload("Currencies").
		First(&account, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *GormTransferRepo) ListAll(ctx context.Context) ([]domain.TransferAccount, error) {
	var accounts []domain.TransferAccount
	err := r.db.WithContext(ctx).
		Preload("Currencies").
		Order("username ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpdateCurrencyStatus upserts the account's per-currency status row.
func (r *GormTransferRepo) UpdateCurrencyStatus(ctx context.Context, accountID string, currency string, status string) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&domain.TransferAccountCurrency{}).
		Where("account_id = ? AND currency = ?", accountID, currency).
		Updates(map[string]any{
			"status":     status,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	return r.db.WithContext(ctx).Create(&domain.TransferAccountCurrency{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Currency:  currency,
		Status:    status,
		UpdatedAt: now,
	}).Error
}
