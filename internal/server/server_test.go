package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditrepository "github.com/strideworks/traincore/internal/audit/repository"
	auditservice "github.com/strideworks/traincore/internal/audit/service"
	authzrepository "github.com/strideworks/traincore/internal/authorization/repository"
	authzservice "github.com/strideworks/traincore/internal/authorization/service"
	"github.com/strideworks/traincore/internal/clock"
	"github.com/strideworks/traincore/internal/config"
	"github.com/strideworks/traincore/internal/events"
	"github.com/strideworks/traincore/internal/payment/adapters"
	"github.com/strideworks/traincore/internal/payment/adapters/razorpay"
	paymentrepository "github.com/strideworks/traincore/internal/payment/repository"
	paymentservice "github.com/strideworks/traincore/internal/payment/service"
	planrepository "github.com/strideworks/traincore/internal/plan/repository"
	"github.com/strideworks/traincore/internal/scheduler"
	subscriptiondomain "github.com/strideworks/traincore/internal/subscription/domain"
	subscriptionrepository "github.com/strideworks/traincore/internal/subscription/repository"
	subscriptionservice "github.com/strideworks/traincore/internal/subscription/service"
	workoutrepository "github.com/strideworks/traincore/internal/workout/repository"
	workoutservice "github.com/strideworks/traincore/internal/workout/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const serverTestWebhookSecret = "server-test-secret"

func setupServerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	statements := []string{
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
			provider_subscription_id TEXT NOT NULL UNIQUE,
			provider_payment_id TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS plans (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			billing_period_months INTEGER NOT NULL DEFAULT 1,
			amount_minor BIGINT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'INR',
			provider_plan_id TEXT NOT NULL UNIQUE,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS payment_events (
			id INTEGER PRIMARY KEY,
			provider TEXT NOT NULL,
			provider_event_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			received_at DATETIME NOT NULL,
			processed_at DATETIME,
			UNIQUE (provider, provider_event_id)
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id INTEGER PRIMARY KEY,
			actor_type TEXT NOT NULL,
			actor_id TEXT,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS subscription_events (
			id INTEGER PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			dedupe_key TEXT UNIQUE,
			published BOOLEAN NOT NULL DEFAULT false,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS memberships (
			id INTEGER PRIMARY KEY,
			user_id BIGINT NOT NULL,
			role TEXT NOT NULL,
			category TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, role)
		)`,
		`CREATE TABLE IF NOT EXISTS workout_logs (
			id INTEGER PRIMARY KEY,
			user_id BIGINT NOT NULL,
			exercise TEXT NOT NULL,
			weight_kg REAL NOT NULL,
			reps INTEGER NOT NULL,
			estimated_one_rm REAL NOT NULL,
			performed_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS max_lifts (
			id INTEGER PRIMARY KEY,
			user_id BIGINT NOT NULL,
			exercise TEXT NOT NULL,
			weight_kg REAL NOT NULL,
			reps INTEGER NOT NULL,
			estimated_one_rm REAL NOT NULL,
			achieved_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, exercise)
		)`,
	}
	for _, statement := range statements {
		if err := db.Exec(statement).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func newTestServer(t *testing.T, db *gorm.DB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	cfg := config.Config{
		Environment: "test",
		Provider: config.ProviderConfig{
			KeySecret:     "server-test-key",
			WebhookSecret: serverTestWebhookSecret,
		},
	}
	testClock := clock.FixedClock{Instant: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)}

	subRepo := subscriptionrepository.Provide()
	reconciler := subscriptionservice.NewReconciler(subscriptionservice.ReconcilerParams{
		Log:  log,
		Repo: subRepo,
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})
	outbox := events.NewOutbox(db, node)
	planRepo := planrepository.Provide()

	paymentSvc := paymentservice.NewService(paymentservice.Params{
		DB:               db,
		Log:              log,
		GenID:            node,
		Clock:            testClock,
		Cfg:              cfg,
		Adapters:         adapters.NewRegistry(razorpay.NewFactory()),
		Repo:             paymentrepository.Provide(),
		SubscriptionRepo: subRepo,
		PlanRepo:         planRepo,
		Reconciler:       reconciler,
		AuditSvc:         auditSvc,
		Outbox:           outbox,
	})
	workoutSvc := workoutservice.NewService(workoutservice.Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Clock:  testClock,
		Repo:   workoutrepository.Provide(),
		Outbox: outbox,
	})
	sweeper := scheduler.NewExpirySweeper(scheduler.ExpirySweeperParams{
		DB:         db,
		Log:        log,
		Clock:      testClock,
		Repo:       subRepo,
		Reconciler: reconciler,
		AuditSvc:   auditSvc,
		Outbox:     outbox,
	})

	engine := gin.New()
	srv := NewServer(Params{
		DB:         db,
		Log:        log,
		Cfg:        cfg,
		PaymentSvc: paymentSvc,
		SubscriptionSvc: subscriptionservice.NewService(subscriptionservice.Params{
			DB:   db,
			Log:  log,
			Repo: subRepo,
		}),
		WorkoutSvc: workoutSvc,
		PlanRepo:   planRepo,
		AuditSvc:   auditSvc,
		Authz: authzservice.NewService(authzservice.Params{
			DB:   db,
			Log:  log,
			Repo: authzrepository.Provide(),
		}),
		Sweeper: sweeper,
	}, engine)
	srv.RegisterAPIRoutes()
	return srv
}

func signedWebhookRequest(t *testing.T, eventType, providerSubID, eventID string) *http.Request {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"entity":     "event",
		"event":      eventType,
		"created_at": time.Now().Unix(),
		"payload": map[string]any{
			"subscription": map[string]any{
				"entity": map[string]any{"id": providerSubID, "status": "active"},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Razorpay-Signature", razorpay.SignPayload(body, serverTestWebhookSecret))
	req.Header.Set("X-Razorpay-Event-Id", eventID)
	return req
}

func TestWebhookRouteAppliesTransition(t *testing.T) {
	db := setupServerTestDB(t)
	srv := newTestServer(t, db)
	if err := db.Exec(
		`INSERT INTO subscriptions (id, user_id, plan_id, status, provider_subscription_id)
		 VALUES (1, 1, 1, 'CREATED', 'sub_http')`,
	).Error; err != nil {
		t.Fatalf("insert subscription: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, signedWebhookRequest(t, "subscription.activated", "sub_http", "evt_http_1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var status subscriptiondomain.SubscriptionStatus
	if err := db.Raw(`SELECT status FROM subscriptions WHERE id = 1`).Scan(&status).Error; err != nil {
		t.Fatalf("read status: %v", err)
	}
	if status != subscriptiondomain.SubscriptionStatusActive {
		t.Fatalf("status = %s, want ACTIVE", status)
	}

	// Redelivery acknowledges without reprocessing.
	rec = httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, signedWebhookRequest(t, "subscription.activated", "sub_http", "evt_http_1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("duplicate")) {
		t.Fatalf("duplicate body = %s", rec.Body.String())
	}
}

func TestWebhookRouteRejectsBadSignature(t *testing.T) {
	db := setupServerTestDB(t)
	srv := newTestServer(t, db)

	req := signedWebhookRequest(t, "subscription.activated", "sub_http", "evt_http_2")
	req.Header.Set("X-Razorpay-Signature", "deadbeef")

	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAuthedRoutesRequireUser(t *testing.T) {
	db := setupServerTestDB(t)
	srv := newTestServer(t, db)

	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/workouts", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdminRouteRequiresAdminRole(t *testing.T) {
	db := setupServerTestDB(t)
	srv := newTestServer(t, db)
	if err := db.Exec(
		`INSERT INTO memberships (id, user_id, role) VALUES (1, 5, 'CLIENT'), (2, 6, 'ADMIN')`,
	).Error; err != nil {
		t.Fatalf("insert memberships: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/audit-logs", nil)
	req.Header.Set("X-User-Id", "5")
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("client status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/audit-logs", nil)
	req.Header.Set("X-User-Id", "6")
	rec = httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", rec.Code)
	}
}

func TestRecordWorkoutRoute(t *testing.T) {
	db := setupServerTestDB(t)
	srv := newTestServer(t, db)
	if err := db.Exec(
		`INSERT INTO memberships (id, user_id, role) VALUES (1, 7, 'CLIENT')`,
	).Error; err != nil {
		t.Fatalf("insert membership: %v", err)
	}

	body := []byte(`{"exercise":"bench press","weight_kg":100,"reps":5}`)
	req := httptest.NewRequest(http.MethodPost, "/api/workouts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "7")

	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"personal_record":true`)) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
