package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/strideworks/traincore/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormRepository struct{}

// Provide constructs the gorm-backed subscription repository.
func Provide() domain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) Create(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	if sub == nil {
		return domain.ErrInvalidSubscription
	}
	return db.WithContext(ctx).Create(sub).Error
}

func (r *gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) FindByProviderID(ctx context.Context, db *gorm.DB, providerSubscriptionID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).
		First(&sub, "provider_subscription_id = ?", providerSubscriptionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).
		Order("created_at DESC").
		First(&sub, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) LockByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := lockingClause(tx.WithContext(ctx)).First(&sub, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id snowflake.ID, status domain.SubscriptionStatus, fields domain.UpdateFields) error {
	updates := fieldColumns(fields)
	updates["status"] = status
	updates["updated_at"] = time.Now().UTC()
	return tx.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *gormRepository) UpdateFields(ctx context.Context, tx *gorm.DB, id snowflake.ID, fields domain.UpdateFields) error {
	updates := fieldColumns(fields)
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return tx.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *gormRepository) LockExpiryCandidates(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]domain.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	var subs []domain.Subscription
	err := lockingClause(tx.WithContext(ctx)).
		Where("status = ? AND current_end IS NOT NULL AND current_end < ?", domain.SubscriptionStatusActive, cutoff).
		Order("current_end ASC").
		Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func fieldColumns(fields domain.UpdateFields) map[string]any {
	updates := map[string]any{}
	if fields.PaymentStatus != nil {
		updates["payment_status"] = *fields.PaymentStatus
	}
	if fields.CurrentStart != nil {
		updates["current_start"] = *fields.CurrentStart
	}
	if fields.CurrentEnd != nil {
		updates["current_end"] = *fields.CurrentEnd
	}
	if fields.ProviderPaymentID != nil {
		updates["provider_payment_id"] = *fields.ProviderPaymentID
	}
	if fields.PaidCount != nil {
		updates["paid_count"] = *fields.PaidCount
	}
	if fields.RemainingCount != nil {
		updates["remaining_count"] = *fields.RemainingCount
	}
	if fields.PaidCountDelta != 0 {
		updates["paid_count"] = gorm.Expr("paid_count + ?", fields.PaidCountDelta)
	}
	if fields.RemainingCountDelta != 0 {
		updates["remaining_count"] = gorm.Expr("remaining_count + ?", fields.RemainingCountDelta)
	}
	return updates
}

// lockingClause adds FOR UPDATE on dialects that support row locks.
// SQLite, used by the tests, serializes writers at the database level.
func lockingClause(db *gorm.DB) *gorm.DB {
	if db.Dialector != nil && db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
