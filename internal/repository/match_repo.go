package repository

import (
	"context"
	"errors"
	"time"

	"github.com/settleops/settlement-engine/internal/domain"
	"gorm.io/gorm"
)

// MatchStatusUpdate is one submitted terminal status for a username
// within a reconciliation batch.
type MatchStatusUpdate struct {
	Username string
	Status   domain.MatchStatus
}

type MatchRepository interface {
	CreateBatch(ctx context.Context, matches []*domain.Match) error
	GetByID(ctx context.Context, id string) (*domain.Match, error)
	UpdateStatus(ctx context.Context, id string, status domain.MatchStatus) (time.Time, error)
	SetPlayer(ctx context.Context, id string, playerID string) error
	ListUnmatched(ctx context.Context) ([]domain.Match, error)
	ListMatched(ctx context.Context, processID string, status domain.MatchStatus) ([]domain.Match, error)
	DeleteByProcess(ctx context.Context, processID string) (int64, error)
	ReconcileBatch(ctx context.Context, processID string, updates []MatchStatusUpdate) error
}

type GormMatchRepo struct {
	db *gorm.DB
}

func NewGormMatchRepo(db *gorm.DB) *GormMatchRepo {
	return &GormMatchRepo{db: db}
}

// CreateBatch inserts the given matches in a single transaction. The
// caller chunks input to the configured batch size; a failure here rolls
// back only this batch.
func (r *GormMatchRepo) CreateBatch(ctx context.Context, matches []*domain.Match) error {
	if len(matches) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(matches).Error
	})
}

func (r *GormMatchRepo) GetByID(ctx context.Context, id string) (*domain.Match, error) {
	var match domain.Match
	err := r.db.WithContext(ctx).First(&match, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *GormMatchRepo) UpdateStatus(ctx context.Context, id string, status domain.MatchStatus) (time.Time, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&domain.Match{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": now,
		})
	if result.Error != nil {
		return time.Time{}, result.Error
	}
	if result.RowsAffected == 0 {
		return time.Time{}, domain.ErrNotFound
	}
	return now, nil
}

func (r *GormMatchRepo) SetPlayer(ctx context.Context, id string, playerID string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Match{}).
		Where("id = ?", id).
		Update("player_id", playerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListUnmatched returns every match without a player reference, across
// all processes. Rematch walks this set record by record.
func (r *GormMatchRepo) ListUnmatched(ctx context.Context) ([]domain.Match, error) {
	var matches []domain.Match
	err := r.db.WithContext(ctx).
		Where("player_id IS NULL").
		Order("created_at ASC").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// ListMatched returns the process's matches in the given status that have
// a resolved player. This is the raw material of resume/restart payloads.
func (r *GormMatchRepo) ListMatched(ctx context.Context, processID string, status domain.MatchStatus) ([]domain.Match, error) {
	var matches []domain.Match
	err := r.db.WithContext(ctx).
		Where("process_id = ? AND status = ? AND player_id IS NOT NULL", processID, status).
		Order("created_at ASC").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *GormMatchRepo) DeleteByProcess(ctx context.Context, processID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("process_id = ?", processID).
		Delete(&domain.Match{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReconcileBatch applies one batch of submitted terminal statuses inside
// a single transaction: loads the batch's matches with their players,
// writes the submitted status per match, and touches the linked player's
// updated_at when the new status is SUCCESS.
func (r *GormMatchRepo) ReconcileBatch(ctx context.Context, processID string, updates []MatchStatusUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	statusByUsername := make(map[string]domain.MatchStatus, len(updates))
	usernames := make([]string, 0, len(updates))
	for _, update := range updates {
		if _, seen := statusByUsername[update.Username]; !seen {
			usernames = append(usernames, update.Username)
		}
		statusByUsername[update.Username] = update.Status
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var matches []domain.Match
		err := tx.Preload("Player").
			Where("process_id = ? AND username IN ?", processID, usernames).
			Find(&matches).Error
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for i := range matches {
			match := &matches[i]
			status, ok := statusByUsername[match.Username]
			if !ok {
				continue
			}

			err := tx.Model(&domain.Match{}).
				Where("id = ?", match.ID).
				Updates(map[string]any{
					"status":     status,
					"updated_at": now,
				}).Error
			if err != nil {
				return err
			}

			if status == domain.MatchSuccess && match.Player != nil {
				err := tx.Model(&domain.Player{}).
					Where("id = ?", match.Player.ID).
					Update("updated_at", now).Error
				if err != nil {
					return err
				}
			}
		}

		return nil
	})
}
