package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Payload is an arbitrary JSON document stored alongside an audit record.
type Payload map[string]any

func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func (p *Payload) Scan(value any) error {
	if value == nil {
		*p = nil
		return nil
	}
	raw, ok := value.([]byte)
	if !ok {
		if s, isString := value.(string); isString {
			raw = []byte(s)
		} else {
			return fmt.Errorf("unsupported payload column type %T", value)
		}
	}
	return json.Unmarshal(raw, p)
}

// AuditRecord is the append-only trace of a dispatched event. Records are
// never mutated and survive deletion of their process; their insertion
// order is the durable source of truth for reconciliation when a live
// delivery is missed.
type AuditRecord struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	ProcessID   string  `gorm:"type:uuid;not null;index"`
	Stage       string  `gorm:"type:varchar(100);not null"`
	EventName   string  `gorm:"type:varchar(50);not null"`
	Status      string  `gorm:"type:varchar(50);not null"`
	Payload     Payload `gorm:"type:jsonb"`
	ThreadStage *string `gorm:"type:varchar(100)"`
	ThreadID    *string `gorm:"type:varchar(100)"`
	CreatedAt   time.Time
}

func (AuditRecord) TableName() string { return "audit_records" }
