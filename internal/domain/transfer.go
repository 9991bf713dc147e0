package domain

import "time"

// TransferAccount is a payout account the automation worker settles
// matches through, identified by username.
type TransferAccount struct {
	ID         string                    `gorm:"type:uuid;primaryKey"`
	Username   string                    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Currencies []TransferAccountCurrency `gorm:"foreignKey:AccountID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (TransferAccount) TableName() string { return "transfer_accounts" }

// TransferAccountCurrency is the per-currency status row of a transfer
// account, updated by TRANSFER_STATUS dispatches from the worker.
type TransferAccountCurrency struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	AccountID string `gorm:"type:uuid;not null;index:idx_transfer_account_currency,unique"`
	Currency  string `gorm:"type:varchar(10);not null;index:idx_transfer_account_currency,unique"`
	Status    string `gorm:"type:varchar(50);not null"`
	UpdatedAt time.Time
}

func (TransferAccountCurrency) TableName() string { return "transfer_account_currencies" }
