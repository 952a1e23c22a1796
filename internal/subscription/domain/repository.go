package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// UpdateFields is the typed partial-update bag for subscription columns
// that may be written independently of the status decision. Nil pointers
// and zero deltas are skipped, preserving "only write what's provided"
// semantics while catching bad column names at compile time.
type UpdateFields struct {
	PaymentStatus       *PaymentStatus
	CurrentStart        *time.Time
	CurrentEnd          *time.Time
	ProviderPaymentID   *string
	PaidCount           *int
	RemainingCount      *int
	PaidCountDelta      int
	RemainingCountDelta int
}

// IsEmpty reports whether the bag carries nothing to persist.
func (f UpdateFields) IsEmpty() bool {
	return f.PaymentStatus == nil &&
		f.CurrentStart == nil &&
		f.CurrentEnd == nil &&
		f.ProviderPaymentID == nil &&
		f.PaidCount == nil &&
		f.RemainingCount == nil &&
		f.PaidCountDelta == 0 &&
		f.RemainingCountDelta == 0
}

// Repository is the persistence surface the reconciler and its callers
// need. Methods take the database handle explicitly so reads and writes
// can share one caller-supplied transaction.
type Repository interface {
	Create(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByProviderID(ctx context.Context, db *gorm.DB, providerSubscriptionID string) (*Subscription, error)
	FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Subscription, error)

	// LockByID reads the row under a row-level lock so that concurrent
	// webhook deliveries serialize their read-decide-write sequences.
	LockByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Subscription, error)

	UpdateStatus(ctx context.Context, tx *gorm.DB, id snowflake.ID, status SubscriptionStatus, fields UpdateFields) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id snowflake.ID, fields UpdateFields) error

	// LockExpiryCandidates returns ACTIVE rows whose period ended before
	// the cutoff, locked for the expiry sweep.
	LockExpiryCandidates(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]Subscription, error)
}
