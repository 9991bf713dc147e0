package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role represents a back-office user role.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
)

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOperator:
		return true
	}
	return false
}

func ParseRoleFromString(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: invalid role %q", ErrValidation, s)
	}
	return r, nil
}

// User is a back-office operator or admin. Admins receive every fanned-out
// notification in addition to their own.
type User struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Username  string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Role      Role   `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }

// APIKey authenticates the external automation worker on the webhook.
// A key is scoped to one application and one process.
type APIKey struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Key         string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Application string `gorm:"type:varchar(50);not null"`
	ProcessID   string `gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time
}

func (APIKey) TableName() string { return "api_keys" }

// ApplicationAutomation is the application scope the webhook accepts.
const ApplicationAutomation = "automation"
