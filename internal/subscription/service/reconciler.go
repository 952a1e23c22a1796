package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/strideworks/traincore/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ReconcilerParams struct {
	fx.In

	Log  *zap.Logger
	Repo domain.Repository
}

// Reconciler applies proposed subscription status transitions inside a
// caller-supplied transaction. It is the only writer of the status column.
// Stale proposals are absorbed as no-ops, never surfaced as errors, because
// webhook redelivery and out-of-order arrival are normal operation.
type Reconciler struct {
	log  *zap.Logger
	repo domain.Repository
}

func NewReconciler(p ReconcilerParams) *Reconciler {
	return &Reconciler{
		log:  p.Log.Named("subscription.reconciler"),
		repo: p.Repo,
	}
}

// SafeUpdateStatus reads the current row under lock, authorizes the
// proposed transition, and conditionally writes. Three outcomes:
//
//   - transition authorized: status plus fields are written
//   - transition stale, fields non-empty: fields alone are written, so a
//     stale event can still deliver valid auxiliary data (a payment
//     confirmation, a retry counter) without regressing the status
//   - transition stale, fields empty: no write, nil result
//
// The caller must invoke this inside a transaction; the row lock taken by
// the read serializes concurrent deliveries for the same subscription so
// the second one re-reads the first one's committed state.
func (r *Reconciler) SafeUpdateStatus(
	ctx context.Context,
	tx *gorm.DB,
	id snowflake.ID,
	proposed domain.SubscriptionStatus,
	fields domain.UpdateFields,
) (*domain.Subscription, error) {
	if tx == nil {
		return nil, domain.ErrMissingTransaction
	}

	current, err := r.repo.LockByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: id=%d", domain.ErrSubscriptionNotFound, id)
	}

	decision, err := domain.DecideTransition(current.Status, proposed)
	if err != nil {
		return nil, err
	}

	r.log.Info("status transition decision",
		zap.String("subscription_id", id.String()),
		zap.String("provider_subscription_id", current.ProviderSubscriptionID),
		zap.String("from", string(decision.Current)),
		zap.Int("from_rank", decision.CurrentRank),
		zap.String("to", string(decision.Proposed)),
		zap.Int("to_rank", decision.ProposedRank),
		zap.Bool("allowed", decision.Allowed),
		zap.String("reason", decision.Reason),
	)

	if decision.Allowed {
		if err := r.repo.UpdateStatus(ctx, tx, id, proposed, fields); err != nil {
			return nil, err
		}
		return r.reload(ctx, tx, id)
	}

	if !fields.IsEmpty() {
		if err := r.repo.UpdateFields(ctx, tx, id, fields); err != nil {
			return nil, err
		}
		return r.reload(ctx, tx, id)
	}

	return nil, nil
}

// ApplyBillingCycle persists a new billing period for the subscription if
// it passes the no-regression guard, returning the update that was applied
// or nil when the incoming period was discarded.
func (r *Reconciler) ApplyBillingCycle(
	ctx context.Context,
	tx *gorm.DB,
	id snowflake.ID,
	newStart, newEnd *time.Time,
) (*domain.BillingCycleUpdate, error) {
	if tx == nil {
		return nil, domain.ErrMissingTransaction
	}

	current, err := r.repo.LockByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: id=%d", domain.ErrSubscriptionNotFound, id)
	}

	update := domain.SafeBillingCycleUpdate(current.CurrentStart, current.CurrentEnd, newStart, newEnd)
	if update == nil {
		r.log.Info("billing cycle update discarded",
			zap.String("subscription_id", id.String()),
			zap.Timep("current_start", current.CurrentStart),
			zap.Timep("current_end", current.CurrentEnd),
			zap.Timep("new_start", newStart),
			zap.Timep("new_end", newEnd),
		)
		return nil, nil
	}

	fields := domain.UpdateFields{
		CurrentStart: &update.CurrentStart,
		CurrentEnd:   &update.CurrentEnd,
	}
	if err := r.repo.UpdateFields(ctx, tx, id, fields); err != nil {
		return nil, err
	}
	return update, nil
}

func (r *Reconciler) reload(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Subscription, error) {
	sub, err := r.repo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: id=%d", domain.ErrSubscriptionNotFound, id)
	}
	return sub, nil
}
