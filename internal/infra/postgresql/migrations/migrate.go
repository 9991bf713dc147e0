package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/settleops/settlement-engine/internal/domain"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_users_players",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.User{}, &domain.Player{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.Player{}, &domain.User{})
			},
		},
		{
			ID: "000002_create_processes",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.Process{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_processes_owner_status ON processes (owner_id, status)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.Process{})
			},
		},
		{
			ID: "000003_create_matches",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.Match{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_matches_process_status ON matches (process_id, status)`,
					`CREATE INDEX IF NOT EXISTS idx_matches_unlinked ON matches (created_at) WHERE player_id IS NULL`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.Match{})
			},
		},
		{
			ID: "000004_create_audit_records",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.AuditRecord{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_records_process_created ON audit_records (process_id, created_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.AuditRecord{})
			},
		},
		{
			ID: "000005_create_notifications",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.Notification{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.Notification{})
			},
		},
		{
			ID: "000006_create_permission_grants",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.PermissionGrant{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_permission_grants_sender_status ON permission_grants (sender_id, status)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.PermissionGrant{})
			},
		},
		{
			ID: "000007_create_transfer_accounts",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.TransferAccount{}, &domain.TransferAccountCurrency{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.TransferAccountCurrency{}, &domain.TransferAccount{})
			},
		},
		{
			ID: "000008_create_api_keys",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.APIKey{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.APIKey{})
			},
		},
	})

	return m.Migrate()
}
