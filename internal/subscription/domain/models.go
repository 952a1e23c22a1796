package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SubscriptionStatus represents the lifecycle stage of a subscription,
// mirroring the payment provider's vocabulary.
type SubscriptionStatus string

const (
	SubscriptionStatusCreated       SubscriptionStatus = "CREATED"
	SubscriptionStatusPending       SubscriptionStatus = "PENDING"
	SubscriptionStatusAuthenticated SubscriptionStatus = "AUTHENTICATED"
	SubscriptionStatusActive        SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPaused        SubscriptionStatus = "PAUSED"
	SubscriptionStatusHalted        SubscriptionStatus = "HALTED"
	SubscriptionStatusExpired       SubscriptionStatus = "EXPIRED"
	SubscriptionStatusCompleted     SubscriptionStatus = "COMPLETED"
	SubscriptionStatusCancelled     SubscriptionStatus = "CANCELLED"
)

// PaymentStatus tracks the settlement state of the most recent charge.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Subscription ties a user to a coaching plan. Rows are never deleted;
// terminal statuses are retained for audit. The status column is written
// only through the reconciler.
type Subscription struct {
	ID                     snowflake.ID       `gorm:"primaryKey"`
	UserID                 snowflake.ID       `gorm:"not null;index"`
	PlanID                 snowflake.ID       `gorm:"not null;index"`
	Status                 SubscriptionStatus `gorm:"type:text;not null;default:'CREATED'"`
	PaymentStatus          PaymentStatus      `gorm:"type:text;not null;default:'PENDING'"`
	CurrentStart           *time.Time         `gorm:"column:current_start"`
	CurrentEnd             *time.Time         `gorm:"column:current_end"`
	PaidCount              int                `gorm:"not null;default:0"`
	RemainingCount         int                `gorm:"not null;default:0"`
	ProviderSubscriptionID string             `gorm:"type:text;not null;uniqueIndex"`
	ProviderPaymentID      *string            `gorm:"type:text"`
	CreatedAt              time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt              time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
