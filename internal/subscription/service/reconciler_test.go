package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/strideworks/traincore/internal/subscription/domain"
	"github.com/strideworks/traincore/internal/subscription/repository"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSubscriptionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id INTEGER PRIMARY KEY,
			user_id BIGINT NOT NULL,
			plan_id BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'CREATED',
			payment_status TEXT NOT NULL DEFAULT 'PENDING',
			current_start DATETIME,
			current_end DATETIME,
			paid_count INTEGER NOT NULL DEFAULT 0,
			remaining_count INTEGER NOT NULL DEFAULT 0,
			provider_subscription_id TEXT NOT NULL,
			provider_payment_id TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	).Error; err != nil {
		t.Fatalf("create subscriptions: %v", err)
	}
	return db
}

func insertSubscription(t *testing.T, db *gorm.DB, id int64, status domain.SubscriptionStatus) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO subscriptions (id, user_id, plan_id, status, provider_subscription_id, remaining_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		id,
		1,
		status,
		"sub_test",
		12,
	).Error; err != nil {
		t.Fatalf("insert subscription: %v", err)
	}
}

func newTestReconciler(t *testing.T) (*Reconciler, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	rec := NewReconciler(ReconcilerParams{
		Log:  zap.New(core),
		Repo: repository.Provide(),
	})
	return rec, logs
}

func applyStatus(t *testing.T, db *gorm.DB, rec *Reconciler, id int64, proposed domain.SubscriptionStatus, fields domain.UpdateFields) *domain.Subscription {
	t.Helper()
	var result *domain.Subscription
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = rec.SafeUpdateStatus(context.Background(), tx, snowflake.ID(id), proposed, fields)
		return err
	})
	if err != nil {
		t.Fatalf("SafeUpdateStatus(%s): %v", proposed, err)
	}
	return result
}

func TestSafeUpdateStatusNotFound(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	rec, _ := newTestReconciler(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := rec.SafeUpdateStatus(context.Background(), tx, snowflake.ID(999), domain.SubscriptionStatusActive, domain.UpdateFields{})
		return err
	})
	if !errors.Is(err, domain.ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
}

func TestSafeUpdateStatusUpgrade(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	rec, _ := newTestReconciler(t)
	insertSubscription(t, db, 1, domain.SubscriptionStatusCreated)

	updated := applyStatus(t, db, rec, 1, domain.SubscriptionStatusAuthenticated, domain.UpdateFields{})
	if updated == nil || updated.Status != domain.SubscriptionStatusAuthenticated {
		t.Fatalf("expected AUTHENTICATED, got %+v", updated)
	}
}

func TestSafeUpdateStatusOutOfOrderEventIgnored(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	rec, logs := newTestReconciler(t)
	insertSubscription(t, db, 2, domain.SubscriptionStatusCreated)

	// activated arrives first, then the stale authenticated event.
	applyStatus(t, db, rec, 2, domain.SubscriptionStatusActive, domain.UpdateFields{})
	result := applyStatus(t, db, rec, 2, domain.SubscriptionStatusAuthenticated, domain.UpdateFields{})
	if result != nil {
		t.Fatalf("stale event must be a no-op, got %+v", result)
	}

	var status domain.SubscriptionStatus
	if err := db.Raw(`SELECT status FROM subscriptions WHERE id = 2`).Scan(&status).Error; err != nil {
		t.Fatalf("read status: %v", err)
	}
	if status != domain.SubscriptionStatusActive {
		t.Fatalf("persisted status = %s, want ACTIVE", status)
	}

	entries := logs.FilterMessage("status transition decision").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 decision logs, got %d", len(entries))
	}
	last := entries[1].ContextMap()
	if last["allowed"] != false || last["reason"] != domain.ReasonStaleStatus {
		t.Fatalf("stale decision log = %v", last)
	}
	if last["from_rank"] != int64(2) || last["to_rank"] != int64(1) {
		t.Fatalf("decision ranks = %v", last)
	}
}

func TestSafeUpdateStatusPartialFieldWrite(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	rec, logs := newTestReconciler(t)
	insertSubscription(t, db, 3, domain.SubscriptionStatusActive)

	// A charged event proposing ACTIVE on an already ACTIVE subscription
	// must keep the status but persist the payment confirmation fields.
	completed := domain.PaymentStatusCompleted
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	fields := domain.UpdateFields{
		PaymentStatus: &completed,
		CurrentStart:  &start,
		CurrentEnd:    &end,
	}

	updated := applyStatus(t, db, rec, 3, domain.SubscriptionStatusActive, fields)
	if updated == nil {
		t.Fatal("partial write must return the updated record")
	}
	if updated.Status != domain.SubscriptionStatusActive {
		t.Fatalf("status = %s, want ACTIVE", updated.Status)
	}
	if updated.PaymentStatus != domain.PaymentStatusCompleted {
		t.Fatalf("payment_status = %s, want COMPLETED", updated.PaymentStatus)
	}
	if updated.CurrentStart == nil || !updated.CurrentStart.Equal(start) {
		t.Fatalf("current_start = %v, want %v", updated.CurrentStart, start)
	}

	entry := logs.FilterMessage("status transition decision").All()[0].ContextMap()
	if entry["allowed"] != false || entry["reason"] != domain.ReasonSameStatus {
		t.Fatalf("same-status decision log = %v", entry)
	}

	// Duplicate delivery of the identical payload rewrites the same
	// fields and is safe to apply twice.
	again := applyStatus(t, db, rec, 3, domain.SubscriptionStatusActive, fields)
	if again == nil || again.PaymentStatus != domain.PaymentStatusCompleted {
		t.Fatalf("duplicate delivery result = %+v", again)
	}
	if again.CurrentStart == nil || !again.CurrentStart.Equal(start) {
		t.Fatalf("duplicate delivery current_start = %v", again.CurrentStart)
	}
}

func TestSafeUpdateStatusIdempotentNoOp(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	rec, _ := newTestReconciler(t)
	insertSubscription(t, db, 4, domain.SubscriptionStatusActive)

	first := applyStatus(t, db, rec, 4, domain.SubscriptionStatusActive, domain.UpdateFields{})
	second := applyStatus(t, db, rec, 4, domain.SubscriptionStatusActive, domain.UpdateFields{})
	if first != nil || second != nil {
		t.Fatalf("same-status with no fields must be a no-op, got %+v / %+v", first, second)
	}
}

func TestSafeUpdateStatusCounterDeltas(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	rec, _ := newTestReconciler(t)
	insertSubscription(t, db, 5, domain.SubscriptionStatusAuthenticated)

	fields := domain.UpdateFields{PaidCountDelta: 1, RemainingCountDelta: -1}
	updated := applyStatus(t, db, rec, 5, domain.SubscriptionStatusActive, fields)
	if updated == nil || updated.Status != domain.SubscriptionStatusActive {
		t.Fatalf("expected ACTIVE, got %+v", updated)
	}
	if updated.PaidCount != 1 || updated.RemainingCount != 11 {
		t.Fatalf("counters = %d/%d, want 1/11", updated.PaidCount, updated.RemainingCount)
	}

	// The delta applies once per call; each call site passes it only for
	// the events that represent a real charge.
	updated = applyStatus(t, db, rec, 5, domain.SubscriptionStatusActive, fields)
	if updated.PaidCount != 2 || updated.RemainingCount != 10 {
		t.Fatalf("counters = %d/%d, want 2/10", updated.PaidCount, updated.RemainingCount)
	}
}

func TestSafeUpdateStatusRecovery(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	rec, logs := newTestReconciler(t)
	insertSubscription(t, db, 6, domain.SubscriptionStatusHalted)

	updated := applyStatus(t, db, rec, 6, domain.SubscriptionStatusActive, domain.UpdateFields{})
	if updated == nil || updated.Status != domain.SubscriptionStatusActive {
		t.Fatalf("HALTED -> ACTIVE recovery failed: %+v", updated)
	}
	entry := logs.FilterMessage("status transition decision").All()[0].ContextMap()
	if entry["reason"] != domain.ReasonRecovery {
		t.Fatalf("recovery decision log = %v", entry)
	}
}

func TestApplyBillingCycleGuard(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	rec, logs := newTestReconciler(t)
	insertSubscription(t, db, 7, domain.SubscriptionStatusActive)

	jan1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jan31 := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	feb1 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	feb28 := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)

	err := db.Transaction(func(tx *gorm.DB) error {
		update, err := rec.ApplyBillingCycle(context.Background(), tx, snowflake.ID(7), &feb1, &feb28)
		if err != nil {
			return err
		}
		if update == nil {
			t.Fatal("first-time population must apply")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ApplyBillingCycle: %v", err)
	}

	// A late webhook carrying the older January cycle is discarded.
	err = db.Transaction(func(tx *gorm.DB) error {
		update, err := rec.ApplyBillingCycle(context.Background(), tx, snowflake.ID(7), &jan1, &jan31)
		if err != nil {
			return err
		}
		if update != nil {
			t.Fatalf("stale cycle must be discarded, got %+v", update)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ApplyBillingCycle: %v", err)
	}

	if logs.FilterMessage("billing cycle update discarded").Len() != 1 {
		t.Fatal("expected a discard diagnostic")
	}

	var start time.Time
	if err := db.Raw(`SELECT current_start FROM subscriptions WHERE id = 7`).Scan(&start).Error; err != nil {
		t.Fatalf("read current_start: %v", err)
	}
	if !start.Equal(feb1) {
		t.Fatalf("current_start = %v, want %v", start, feb1)
	}
}
