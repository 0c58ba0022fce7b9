package models

import (
	"time"

	"gorm.io/gorm"
)

// Order statuses written by our own code paths. The webhook ingestor stores
// the gateway's vocabulary verbatim, so the column may also hold raw strings
// outside this set (see WebhookService).
const (
	OrderStatusPending   = "pending"
	OrderStatusInitiated = "initiated"
	OrderStatusSuccess   = "success"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
)

// StudentInfo identifies the student a fee payment is for.
type StudentInfo struct {
	Name  string `gorm:"type:varchar(255)" json:"name"`
	ID    string `gorm:"type:varchar(100)" json:"id"`
	Email string `gorm:"type:varchar(255)" json:"email"`
}

// Order represents a fee-payment intent. CustomOrderID is the externally
// visible correlation key (format EDV_<epoch-ms>_<8-char-random>) and is
// immutable once created. Orders are never deleted.
type Order struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	SchoolID      string      `gorm:"type:varchar(100);index" json:"school_id"`
	TrusteeID     string      `gorm:"type:varchar(100)" json:"trustee_id"`
	StudentInfo   StudentInfo `gorm:"embedded;embeddedPrefix:student_" json:"student_info"`
	GatewayName   string      `gorm:"type:varchar(100)" json:"gateway_name"`
	CustomOrderID string      `gorm:"type:varchar(100);uniqueIndex" json:"custom_order_id"`
	Status        string      `gorm:"type:varchar(50);default:'pending';index" json:"status"`

	// Relationship: at most one OrderStatus per order, joined on collect_id.
	OrderStatus *OrderStatus `gorm:"foreignKey:CollectID" json:"order_status,omitempty"`
}
