package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus holds the gateway-return details for an Order. CollectID is a
// back-reference to the owning Order's primary key; at most one row exists
// per collect_id (upsert semantics: create if absent, else overwrite).
type OrderStatus struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	CollectID         uint       `gorm:"uniqueIndex" json:"collect_id"`
	OrderAmount       float64    `gorm:"type:decimal(15,2)" json:"order_amount"`
	TransactionAmount float64    `gorm:"type:decimal(15,2)" json:"transaction_amount"`
	PaymentMode       string     `gorm:"type:varchar(100)" json:"payment_mode"`
	PaymentDetails    string     `gorm:"type:text" json:"payment_details"`
	BankReference     string     `gorm:"type:varchar(255)" json:"bank_reference"`
	PaymentMessage    string     `gorm:"type:text" json:"payment_message"`
	Status            string     `gorm:"type:varchar(50)" json:"status"`
	ErrorMessage      string     `gorm:"type:text" json:"error_message"`
	PaymentTime       *time.Time `json:"payment_time"`
}
