package domain

import (
	"fmt"
	"strings"
	"time"
)

// MatchStatus represents the settlement state of a single match.
type MatchStatus string

const (
	MatchPending MatchStatus = "PENDING"
	MatchSuccess MatchStatus = "SUCCESS"
	MatchFailed  MatchStatus = "FAILED"
)

func (s MatchStatus) String() string { return string(s) }

func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchPending, MatchSuccess, MatchFailed:
		return true
	}
	return false
}

func ParseMatchStatusFromString(s string) (MatchStatus, error) {
	st := MatchStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid match status %q", ErrValidation, s)
	}
	return st, nil
}

// Match is one player-to-transfer-account candidate pairing awaiting
// settlement. Rows are owned by their process and bulk-deleted when the
// process is terminated. PlayerID is a weak reference: nil until the
// username resolves to a known player.
type Match struct {
	ID        string      `gorm:"type:uuid;primaryKey"`
	ProcessID string      `gorm:"type:uuid;not null;index"`
	Username  string      `gorm:"type:varchar(255);not null;index"`
	Currency  string      `gorm:"type:varchar(10);not null"`
	Amount    float64     `gorm:"type:numeric(18,2);not null"`
	Status    MatchStatus `gorm:"type:varchar(10);not null"`
	PlayerID  *string     `gorm:"type:uuid"`
	BonusRef  string      `gorm:"type:varchar(255)"`
	Player    *Player     `gorm:"foreignKey:PlayerID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Match) TableName() string { return "matches" }

// Player is username-keyed and owned by the CRM side of the system; the
// settlement core only touches UpdatedAt when a match settles successfully.
type Player struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Username  string `gorm:"type:varchar(255);not null;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Player) TableName() string { return "players" }
