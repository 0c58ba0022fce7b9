package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Webhook processing statuses. A log row starts as received and transitions
// once, to processed or failed; never backward.
const (
	WebhookStatusReceived  = "received"
	WebhookStatusProcessed = "processed"
	WebhookStatusFailed    = "failed"
)

// WebhookLog is an append-only audit record of every inbound webhook. The
// raw payload is persisted before any processing so the log exists even if
// downstream handling fails.
type WebhookLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	OrderID          string          `gorm:"type:varchar(100);index" json:"order_id"`
	StatusCode       int             `json:"status_code"`
	Payload          json.RawMessage `gorm:"type:jsonb" json:"payload"`
	Source           string          `gorm:"type:varchar(100)" json:"source"`
	ProcessingStatus string          `gorm:"type:varchar(20);default:'received'" json:"processing_status"`
	ErrorMessage     string          `gorm:"type:text" json:"error_message"`
}
