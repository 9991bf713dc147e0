package repository

import (
	"context"
	"errors"

	"github.com/settleops/settlement-engine/internal/domain"
	"gorm.io/gorm"
)

type PlayerRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.Player, error)
	GetIDsByUsernames(ctx context.Context, usernames []string) (map[string]string, error)
}

type GormPlayerRepo struct {
	db *gorm.DB
}

func NewGormPlayerRepo(db *gorm.DB) *GormPlayerRepo {
	return &GormPlayerRepo{db: db}
}

func (r *GormPlayerRepo) GetByUsername(ctx context.Context, username string) (*domain.Player, error) {
	var player domain.Player
	err := r.db.WithContext(ctx).First(&player, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// GetIDsByUsernames resolves known usernames to player ids in one query.
// Unknown usernames are simply absent from the result map.
func (r *GormPlayerRepo) GetIDsByUsernames(ctx context.Context, usernames []string) (map[string]string, error) {
	ids := make(map[string]string, len(usernames))
	if len(usernames) == 0 {
		return ids, nil
	}

	var players []domain.Player
	err := r.db.WithContext(ctx).
		Select("id", "username").
		Where("username IN ?", usernames).
		Find(&players).Error
	if err != nil {
		return nil, err
	}

	for _, player := range players {
		ids[player.Username] = player.ID
	}
	return ids, nil
}
