package domain

import (
	"fmt"
	"strings"
	"time"
)

// NotificationType classifies the severity of a notification.
type NotificationType string

const (
	NotificationSuccess NotificationType = "SUCCESS"
	NotificationError   NotificationType = "ERROR"
	NotificationInfo    NotificationType = "INFO"
	NotificationWarning NotificationType = "WARNING"
)

func (t NotificationType) String() string { return string(t) }

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationSuccess, NotificationError, NotificationInfo, NotificationWarning:
		return true
	}
	return false
}

func ParseNotificationTypeFromString(s string) (NotificationType, error) {
	nt := NotificationType(strings.ToUpper(strings.TrimSpace(s)))
	if !nt.IsValid() {
		return "", fmt.Errorf("%w: invalid notification type %q", ErrValidation, s)
	}
	return nt, nil
}

// Notification is one persisted occurrence fanned out to the acting user
// and every admin. One row is written per occurrence, not per recipient.
type Notification struct {
	ID        string           `gorm:"type:uuid;primaryKey"`
	Recipient string           `gorm:"type:uuid;not null;index"`
	Message   string           `gorm:"type:text;not null"`
	Type      NotificationType `gorm:"type:varchar(10);not null"`
	CreatedAt time.Time
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) Validate() error {
	if n.Recipient == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if n.Message == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	if !n.Type.IsValid() {
		return fmt.Errorf("%w: invalid notification type %q", ErrValidation, n.Type)
	}
	return nil
}
