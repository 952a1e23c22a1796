package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord is a received webhook persisted for idempotency. Duplicate
// deliveries collide on (provider, provider_event_id) and short-circuit
// once the original has been processed.
type EventRecord struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	Provider        string         `gorm:"type:text;not null;uniqueIndex:ux_payment_event,priority:1"`
	ProviderEventID string         `gorm:"type:text;not null;uniqueIndex:ux_payment_event,priority:2"`
	EventType       string         `gorm:"type:text;not null;index"`
	Payload         datatypes.JSON `gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `gorm:"not null"`
	ProcessedAt     *time.Time     `gorm:"column:processed_at"`
}

// TableName sets the database table name.
func (EventRecord) TableName() string { return "payment_events" }

// VerifyPaymentRequest is the payment verification callback body.
type VerifyPaymentRequest struct {
	ProviderSubscriptionID string `json:"subscription_id"`
	ProviderPaymentID      string `json:"payment_id"`
	Signature              string `json:"signature"`
}

// VerifyPaymentResponse reports the subscription state after verification.
type VerifyPaymentResponse struct {
	SubscriptionID string     `json:"subscription_id"`
	Status         string     `json:"status"`
	PaymentStatus  string     `json:"payment_status"`
	CurrentStart   *time.Time `json:"current_start,omitempty"`
	CurrentEnd     *time.Time `json:"current_end,omitempty"`
}
