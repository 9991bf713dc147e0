package domain

import (
	"fmt"
	"strings"
	"time"
)

// ResourceIDNew is the sentinel resource id for grants guarding the
// creation of resources that do not exist yet.
const ResourceIDNew = "new"

// GrantStatus represents the review state of a permission grant.
type GrantStatus string

const (
	GrantPending  GrantStatus = "PENDING"
	GrantAccepted GrantStatus = "ACCEPTED"
	GrantRejected GrantStatus = "REJECTED"
)

func (s GrantStatus) String() string { return string(s) }

func (s GrantStatus) IsValid() bool {
	switch s {
	case GrantPending, GrantAccepted, GrantRejected:
		return true
	}
	return false
}

func ParseGrantStatusFromString(s string) (GrantStatus, error) {
	st := GrantStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid grant status %q", ErrValidation, s)
	}
	return st, nil
}

// PermissionGrant is a single-use authorization letting one non-admin
// actor perform one otherwise-restricted action once. An ACCEPTED grant
// authorizes exactly one subsequent successful execution of the guarded
// action and is deleted on consumption.
type PermissionGrant struct {
	ID           string      `gorm:"type:uuid;primaryKey"`
	SenderID     string      `gorm:"type:uuid;not null;index"`
	ReviewerID   *string     `gorm:"type:uuid"`
	ResourceType string      `gorm:"type:varchar(100);not null"`
	ResourceID   string      `gorm:"type:varchar(100);not null"`
	Action       string      `gorm:"type:varchar(100);not null"`
	Message      string      `gorm:"type:text"`
	Status       GrantStatus `gorm:"type:varchar(10);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (PermissionGrant) TableName() string { return "permission_grants" }

func (g *PermissionGrant) Validate() error {
	if g.SenderID == "" {
		return fmt.Errorf("%w: sender id is required", ErrValidation)
	}
	if g.ResourceType == "" {
		return fmt.Errorf("%w: resource type is required", ErrValidation)
	}
	if g.ResourceID == "" {
		return fmt.Errorf("%w: resource id is required", ErrValidation)
	}
	if g.Action == "" {
		return fmt.Errorf("%w: action is required", ErrValidation)
	}
	return nil
}
