package repository

import (
	"context"
	"errors"

	"github.com/settleops/settlement-engine/internal/domain"
	"gorm.io/gorm"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

type GormUserRepo struct {
	db *gorm.DB
}

func NewGormUserRepo(db *gorm.DB) *GormUserRepo {
	return &GormUserRepo{db: db}
}

func (r *GormUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

type APIKeyRepository interface {
	GetByKey(ctx context.Context, key string) (*domain.APIKey, error)
}

type GormAPIKeyRepo struct {
	db *gorm.DB
}

func NewGormAPIKeyRepo(db *gorm.DB) *GormAPIKeyRepo {
	return &GormAPIKeyRepo{db: db}
}

func (r *GormAPIKeyRepo) GetByKey(ctx context.Context, key string) (*domain.APIKey, error) {
	var apiKey domain.APIKey
	err := r.db.WithContext(ctx).First(&apiKey, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &apiKey, nil
}
