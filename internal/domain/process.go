package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProcessStatus represents the lifecycle state of a settlement process.
type ProcessStatus string

const (
	ProcessPending      ProcessStatus = "PENDING"
	ProcessProcessing   ProcessStatus = "PROCESSING"
	ProcessOnHold       ProcessStatus = "ON_HOLD"
	ProcessCompleted    ProcessStatus = "COMPLETED"
	ProcessSemCompleted ProcessStatus = "SEM_COMPLETED"
	ProcessFailed       ProcessStatus = "FAILED"
)

func (s ProcessStatus) String() string { return string(s) }

func (s ProcessStatus) IsValid() bool {
	switch s {
	case ProcessPending, ProcessProcessing, ProcessOnHold,
		ProcessCompleted, ProcessSemCompleted, ProcessFailed:
		return true
	}
	return false
}

// IsActive reports whether the process still occupies its owner's
// single active slot.
func (s ProcessStatus) IsActive() bool {
	return s == ProcessPending || s == ProcessProcessing
}

func ParseProcessStatusFromString(s string) (ProcessStatus, error) {
	st := ProcessStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid process status %q", ErrValidation, s)
	}
	return st, nil
}

// Process is one run of the batch-matching workflow owned by a user
// over a date range. Its status is mutated only by the batch engine.
type Process struct {
	ID        string        `gorm:"type:uuid;primaryKey"`
	OwnerID   string        `gorm:"type:uuid;not null;index"`
	Status    ProcessStatus `gorm:"type:varchar(20);not null"`
	StartDate time.Time     `gorm:"not null"`
	EndDate   time.Time     `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Process) TableName() string { return "processes" }

func (p *Process) Validate() error {
	if p.OwnerID == "" {
		return fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("%w: invalid process status %q", ErrValidation, p.Status)
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: end date is before start date", ErrValidation)
	}
	return nil
}
