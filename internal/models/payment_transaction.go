package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentTransaction is the gateway-facing record of a collect request,
// created at request time and independent of Order until reconciled.
// CollectRequestID is the identifier the upstream gateway returned at
// creation; it is the natural join key to Order.CustomOrderID. Status holds
// the gateway's free-form vocabulary; normalize via MapStatus before acting
// on it.
type PaymentTransaction struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	CollectRequestID     string          `gorm:"type:varchar(100);uniqueIndex" json:"collect_request_id"`
	SchoolID             string          `gorm:"type:varchar(100);index" json:"school_id"`
	Amount               float64         `gorm:"type:decimal(15,2)" json:"amount"`
	CallbackURL          string          `gorm:"type:text" json:"callback_url"`
	PaymentURL           string          `gorm:"type:text" json:"payment_url"`
	JWTSign              string          `gorm:"type:text" json:"jwt_sign"`
	Status               string          `gorm:"type:varchar(50);default:'initiated';index" json:"status"`
	PaymentMode          string          `gorm:"type:varchar(100)" json:"payment_mode"`
	PaymentDetails       string          `gorm:"type:text" json:"payment_details"`
	BankReference        string          `gorm:"type:varchar(255)" json:"bank_reference"`
	GatewayTransactionID string          `gorm:"type:varchar(255)" json:"gateway_transaction_id"`
	PaymentTime          *time.Time      `gorm:"index" json:"payment_time"`
	FailureReason        string          `gorm:"type:text" json:"failure_reason"`
	GatewayResponse      json.RawMessage `gorm:"type:jsonb" json:"gateway_response"`
	Metadata             json.RawMessage `gorm:"type:jsonb" json:"metadata"`
}
