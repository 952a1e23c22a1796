package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/strideworks/traincore/internal/audit/domain"
	"github.com/strideworks/traincore/internal/clock"
	"github.com/strideworks/traincore/internal/config"
	"github.com/strideworks/traincore/internal/events"
	"github.com/strideworks/traincore/internal/observability/logger"
	"github.com/strideworks/traincore/internal/observability/metrics"
	"github.com/strideworks/traincore/internal/payment/adapters"
	"github.com/strideworks/traincore/internal/payment/adapters/razorpay"
	paymentdomain "github.com/strideworks/traincore/internal/payment/domain"
	plandomain "github.com/strideworks/traincore/internal/plan/domain"
	subscriptiondomain "github.com/strideworks/traincore/internal/subscription/domain"
	subscriptionservice "github.com/strideworks/traincore/internal/subscription/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Clock            clock.Clock
	Cfg              config.Config
	Adapters         *adapters.Registry
	Repo             paymentdomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
	PlanRepo         plandomain.Repository
	Reconciler       *subscriptionservice.Reconciler
	AuditSvc         auditdomain.Service
	Outbox           *events.Outbox
	WebhookMetrics   *metrics.WebhookMetrics `optional:"true"`
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	clock            clock.Clock
	cfg              config.Config
	adapters         *adapters.Registry
	repo             paymentdomain.Repository
	subscriptionRepo subscriptiondomain.Repository
	planRepo         plandomain.Repository
	reconciler       *subscriptionservice.Reconciler
	auditSvc         auditdomain.Service
	outbox           *events.Outbox
	webhookMetrics   *metrics.WebhookMetrics
	genID            *snowflake.Node
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("payment.service"),
		genID:            p.GenID,
		clock:            p.Clock,
		cfg:              p.Cfg,
		adapters:         p.Adapters,
		repo:             p.Repo,
		subscriptionRepo: p.SubscriptionRepo,
		planRepo:         p.PlanRepo,
		reconciler:       p.Reconciler,
		auditSvc:         p.AuditSvc,
		outbox:           p.Outbox,
		webhookMetrics:   p.WebhookMetrics,
	}
}

// eventTargets maps provider subscription events to the status each one
// proposes. The reconciler decides whether the proposal applies.
var eventTargets = map[string]subscriptiondomain.SubscriptionStatus{
	"subscription.authenticated": subscriptiondomain.SubscriptionStatusAuthenticated,
	"subscription.activated":     subscriptiondomain.SubscriptionStatusActive,
	"subscription.charged":       subscriptiondomain.SubscriptionStatusActive,
	"subscription.resumed":       subscriptiondomain.SubscriptionStatusActive,
	"subscription.pending":       subscriptiondomain.SubscriptionStatusPending,
	"subscription.halted":        subscriptiondomain.SubscriptionStatusHalted,
	"subscription.paused":        subscriptiondomain.SubscriptionStatusPaused,
	"subscription.cancelled":     subscriptiondomain.SubscriptionStatusCancelled,
	"subscription.completed":     subscriptiondomain.SubscriptionStatusCompleted,
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		s.webhookMetrics.RecordRejected(ctx, provider, "provider_not_found")
		return paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		s.webhookMetrics.RecordRejected(ctx, provider, "invalid_payload")
		return paymentdomain.ErrInvalidPayload
	}

	adapter, err := s.adapters.NewAdapter(provider, paymentdomain.AdapterConfig{
		Provider:      provider,
		KeySecret:     s.cfg.Provider.KeySecret,
		WebhookSecret: s.cfg.Provider.WebhookSecret,
	})
	if err != nil {
		return err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.webhookMetrics.RecordRejected(ctx, provider, "invalid_signature")
		return err
	}

	event, err := adapter.Parse(ctx, payload, headers)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return nil
		}
		s.webhookMetrics.RecordRejected(ctx, provider, "invalid_event")
		return err
	}

	s.webhookMetrics.RecordReceived(ctx, provider, event.Type)

	now := s.clock.Now()
	snapshot, err := json.Marshal(logger.MaskPayload(event.Payload))
	if err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	received := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		Payload:         datatypes.JSON(snapshot),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	if err := s.processEvent(ctx, stored, event); err != nil {
		return err
	}

	return s.repo.MarkProcessed(ctx, s.db, stored.ID, s.clock.Now())
}

func (s *Service) processEvent(ctx context.Context, stored *paymentdomain.EventRecord, event *paymentdomain.WebhookEvent) error {
	if stored == nil || event == nil {
		return paymentdomain.ErrInvalidEvent
	}

	proposed, ok := eventTargets[event.Type]
	if !ok {
		// Unknown subscription event: keep the audit trail, change nothing.
		return s.writeWebhookAudit(ctx, s.db, stored, event, "webhook.unhandled", nil)
	}

	sub, err := s.subscriptionRepo.FindByProviderID(ctx, s.db, event.ProviderSubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		s.log.Warn("webhook for unknown subscription",
			zap.String("provider", event.Provider),
			zap.String("provider_subscription_id", event.ProviderSubscriptionID),
			zap.String("event_type", event.Type),
		)
		// Outside any transaction: the orphan record must survive the
		// error return so redeliveries are traceable.
		if err := s.writeWebhookAudit(ctx, s.db, stored, event, "webhook.orphaned", nil); err != nil {
			return err
		}
		return paymentdomain.ErrUnknownSubscription
	}

	fields := s.buildEventFields(event)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The audit row is written before the reconciler decides, so the
		// delivery history is complete even when the update is a no-op.
		if err := s.writeWebhookAudit(ctx, tx, stored, event, "webhook.received", map[string]any{
			"subscription_id": sub.ID.String(),
			"proposed_status": string(proposed),
		}); err != nil {
			return err
		}

		// The period guard must decide against the row as it stands under
		// the lock, not the snapshot read above; a delivery that committed
		// in between must not be rolled back by this one.
		if event.CurrentStart != nil && event.CurrentEnd != nil {
			if _, err := s.reconciler.ApplyBillingCycle(ctx, tx, sub.ID, event.CurrentStart, event.CurrentEnd); err != nil {
				return err
			}
		}

		updated, err := s.reconciler.SafeUpdateStatus(ctx, tx, sub.ID, proposed, fields)
		if err != nil {
			return err
		}

		if updated != nil && updated.Status == proposed && sub.Status != proposed {
			s.webhookMetrics.RecordApplied(ctx, event.Provider, event.Type)
			return s.outbox.PublishTx(ctx, tx, events.Event{
				Type:      event.Type,
				DedupeKey: event.Provider + ":" + event.ProviderEventID,
				Payload: map[string]any{
					"subscription_id": sub.ID.String(),
					"user_id":         sub.UserID.String(),
					"status":          string(proposed),
					"previous_status": string(sub.Status),
				},
			})
		}

		s.webhookMetrics.RecordStale(ctx, event.Provider, event.Type)
		return nil
	})
}

// buildEventFields extracts the auxiliary columns an event may carry.
// These persist even when the status proposal is stale, because a late
// webhook can still deliver new valid data (a payment confirmation).
// The billing period is deliberately absent: it goes through the
// reconciler's cycle guard, which decides against the locked row.
func (s *Service) buildEventFields(event *paymentdomain.WebhookEvent) subscriptiondomain.UpdateFields {
	fields := subscriptiondomain.UpdateFields{}

	if event.Type == "subscription.charged" {
		completed := subscriptiondomain.PaymentStatusCompleted
		fields.PaymentStatus = &completed
	}
	if event.Type == "subscription.pending" || event.Type == "subscription.halted" {
		failed := subscriptiondomain.PaymentStatusFailed
		fields.PaymentStatus = &failed
	}
	if event.ProviderPaymentID != "" {
		paymentID := event.ProviderPaymentID
		fields.ProviderPaymentID = &paymentID
	}

	// Counters arrive as absolute values in the provider payload, so a
	// redelivered event writes the same numbers instead of re-counting.
	if event.PaidCount != nil {
		fields.PaidCount = event.PaidCount
	}
	if event.RemainingCount != nil {
		fields.RemainingCount = event.RemainingCount
	}

	return fields
}

func (s *Service) writeWebhookAudit(ctx context.Context, db *gorm.DB, stored *paymentdomain.EventRecord, event *paymentdomain.WebhookEvent, action string, extra map[string]any) error {
	metadata := map[string]any{
		"provider":                 stored.Provider,
		"provider_event_id":        stored.ProviderEventID,
		"event_type":               stored.EventType,
		"provider_subscription_id": event.ProviderSubscriptionID,
		"occurred_at":              event.OccurredAt.UTC().Format(time.RFC3339),
		"received_at":              stored.ReceivedAt.UTC().Format(time.RFC3339),
		"payload":                  logger.MaskPayload(event.Payload),
	}
	for key, value := range extra {
		metadata[key] = value
	}
	return s.auditSvc.TxLog(ctx, db, auditdomain.ActorTypeProvider, stored.Provider, action, "payment_event", stored.ID.String(), metadata)
}

func (s *Service) VerifyPayment(ctx context.Context, req paymentdomain.VerifyPaymentRequest) (paymentdomain.VerifyPaymentResponse, error) {
	subID := strings.TrimSpace(req.ProviderSubscriptionID)
	payID := strings.TrimSpace(req.ProviderPaymentID)
	signature := strings.TrimSpace(req.Signature)
	if subID == "" || payID == "" || signature == "" {
		return paymentdomain.VerifyPaymentResponse{}, paymentdomain.ErrInvalidPayload
	}
	if s.cfg.Provider.KeySecret == "" {
		return paymentdomain.VerifyPaymentResponse{}, paymentdomain.ErrVerificationUnavailable
	}

	// The checkout callback signs "payment_id|subscription_id" with the
	// provider key secret.
	message := []byte(payID + "|" + subID)
	if !razorpay.VerifySignature(message, signature, s.cfg.Provider.KeySecret) {
		s.log.Warn("payment verification signature mismatch",
			zap.String("provider_subscription_id", subID),
		)
		return paymentdomain.VerifyPaymentResponse{}, paymentdomain.ErrInvalidSignature
	}

	sub, err := s.subscriptionRepo.FindByProviderID(ctx, s.db, subID)
	if err != nil {
		return paymentdomain.VerifyPaymentResponse{}, err
	}
	if sub == nil {
		return paymentdomain.VerifyPaymentResponse{}, paymentdomain.ErrUnknownSubscription
	}

	plan, err := s.planRepo.FindByID(ctx, s.db, sub.PlanID)
	if err != nil {
		return paymentdomain.VerifyPaymentResponse{}, err
	}
	months := 1
	if plan != nil && plan.BillingPeriodMonths > 0 {
		months = plan.BillingPeriodMonths
	}

	now := s.clock.Now()
	periodEnd := now.AddDate(0, months, 0)
	completed := subscriptiondomain.PaymentStatusCompleted

	var updated *subscriptiondomain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Cycle adoption is decided against the locked row, not the read
		// above, so a webhook that committed a newer period in between
		// keeps it.
		if _, err := s.reconciler.ApplyBillingCycle(ctx, tx, sub.ID, &now, &periodEnd); err != nil {
			return err
		}

		fields := subscriptiondomain.UpdateFields{
			PaymentStatus:       &completed,
			ProviderPaymentID:   &payID,
			PaidCountDelta:      1,
			RemainingCountDelta: -1,
		}

		var err error
		updated, err = s.reconciler.SafeUpdateStatus(ctx, tx, sub.ID, subscriptiondomain.SubscriptionStatusActive, fields)
		if err != nil {
			return err
		}

		return s.auditSvc.TxLog(ctx, tx, auditdomain.ActorTypeUser, sub.UserID.String(), "payment.verified", "subscription", sub.ID.String(), map[string]any{
			"provider_subscription_id": subID,
			"provider_payment_id":      payID,
			"current_end":              periodEnd.Format(time.RFC3339),
		})
	})
	if err != nil {
		if !isWriteConflict(err) {
			s.log.Error("payment verification transaction failed",
				zap.String("provider_subscription_id", subID),
				zap.Error(err),
			)
			return paymentdomain.VerifyPaymentResponse{}, err
		}
		// A concurrent webhook won the row lock race. The user already
		// paid, so answer from the committed state instead of failing
		// the callback.
		s.log.Warn("payment verification write conflict, re-reading state",
			zap.String("provider_subscription_id", subID),
			zap.Error(err),
		)
		updated, err = s.subscriptionRepo.FindByProviderID(ctx, s.db, subID)
		if err != nil {
			return paymentdomain.VerifyPaymentResponse{}, err
		}
		if updated == nil {
			return paymentdomain.VerifyPaymentResponse{}, paymentdomain.ErrUnknownSubscription
		}
	}
	if updated == nil {
		// Reconciler no-op: report whatever is currently persisted.
		updated, err = s.subscriptionRepo.FindByProviderID(ctx, s.db, subID)
		if err != nil {
			return paymentdomain.VerifyPaymentResponse{}, err
		}
		if updated == nil {
			return paymentdomain.VerifyPaymentResponse{}, paymentdomain.ErrUnknownSubscription
		}
	}

	return paymentdomain.VerifyPaymentResponse{
		SubscriptionID: updated.ID.String(),
		Status:         string(updated.Status),
		PaymentStatus:  string(updated.PaymentStatus),
		CurrentStart:   updated.CurrentStart,
		CurrentEnd:     updated.CurrentEnd,
	}, nil
}

// isWriteConflict classifies transaction failures caused by a concurrent
// writer holding the row: deadlocks, serialization aborts, and lock
// timeouts. Only these are safe to answer from re-read committed state;
// anything else is surfaced to the caller.
func isWriteConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "lock")
}
