package scheduler

import (
	"context"

	auditdomain "github.com/strideworks/traincore/internal/audit/domain"
	"github.com/strideworks/traincore/internal/clock"
	"github.com/strideworks/traincore/internal/events"
	subscriptiondomain "github.com/strideworks/traincore/internal/subscription/domain"
	subscriptionservice "github.com/strideworks/traincore/internal/subscription/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Locker serializes the sweep across replicas. A nil Locker means the
// process runs alone and sweeps without coordination.
type Locker interface {
	Lock(ctx context.Context) (func(), error)
}

type ExpirySweeperParams struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       subscriptiondomain.Repository
	Reconciler *subscriptionservice.Reconciler
	AuditSvc   auditdomain.Service
	Outbox     *events.Outbox
	Locker     Locker `optional:"true"`
}

// ExpirySweeper moves ACTIVE subscriptions whose billing period has
// lapsed to EXPIRED. The provider does not webhook on expiry, so the
// sweep is the only writer of that transition.
type ExpirySweeper struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       subscriptiondomain.Repository
	reconciler *subscriptionservice.Reconciler
	auditSvc   auditdomain.Service
	outbox     *events.Outbox
	locker     Locker
	batchSize  int
}

func NewExpirySweeper(p ExpirySweeperParams) *ExpirySweeper {
	return &ExpirySweeper{
		db:         p.DB,
		log:        p.Log.Named("scheduler.expiry"),
		clock:      p.Clock,
		repo:       p.Repo,
		reconciler: p.Reconciler,
		auditSvc:   p.AuditSvc,
		outbox:     p.Outbox,
		locker:     p.Locker,
		batchSize:  100,
	}
}

// WithBatchSize overrides how many rows each sweep transaction locks.
func (s *ExpirySweeper) WithBatchSize(size int) *ExpirySweeper {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// Sweep expires lapsed subscriptions in batches until none remain.
// Returns how many subscriptions were expired.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx)
		if err != nil {
			// Another replica holds the sweep.
			s.log.Debug("expiry sweep skipped", zap.Error(err))
			return 0, nil
		}
		defer unlock()
	}

	total := 0
	for {
		expired, err := s.sweepBatch(ctx)
		if err != nil {
			return total, err
		}
		total += expired
		if expired < s.batchSize {
			break
		}
	}
	if total > 0 {
		s.log.Info("expiry sweep finished", zap.Int("expired", total))
	}
	return total, nil
}

func (s *ExpirySweeper) sweepBatch(ctx context.Context) (int, error) {
	cutoff := s.clock.Now()
	expired := 0

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidates, err := s.repo.LockExpiryCandidates(ctx, tx, cutoff, s.batchSize)
		if err != nil {
			return err
		}

		for _, sub := range candidates {
			updated, err := s.reconciler.SafeUpdateStatus(ctx, tx, sub.ID, subscriptiondomain.SubscriptionStatusExpired, subscriptiondomain.UpdateFields{})
			if err != nil {
				return err
			}
			if updated == nil {
				continue
			}
			expired++

			if err := s.auditSvc.TxLog(ctx, tx, auditdomain.ActorTypeSystem, "expiry-sweep", "subscription.expired", "subscription", sub.ID.String(), map[string]any{
				"current_end": sub.CurrentEnd,
				"cutoff":      cutoff,
			}); err != nil {
				return err
			}
			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				Type:      events.EventSubscriptionExpired,
				DedupeKey: "expiry:" + sub.ID.String(),
				Payload: map[string]any{
					"subscription_id": sub.ID.String(),
					"user_id":         sub.UserID.String(),
					"status":          string(subscriptiondomain.SubscriptionStatusExpired),
					"previous_status": string(sub.Status),
				},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}
