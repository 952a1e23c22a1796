package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/strideworks/traincore/internal/audit/domain"
	authzdomain "github.com/strideworks/traincore/internal/authorization/domain"
	"github.com/strideworks/traincore/internal/config"
	"github.com/strideworks/traincore/internal/observability/logger"
	"github.com/strideworks/traincore/internal/observability/metrics"
	paymentdomain "github.com/strideworks/traincore/internal/payment/domain"
	plandomain "github.com/strideworks/traincore/internal/plan/domain"
	"github.com/strideworks/traincore/internal/scheduler"
	subscriptiondomain "github.com/strideworks/traincore/internal/subscription/domain"
	workoutdomain "github.com/strideworks/traincore/internal/workout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Cfg             config.Config
	PaymentSvc      paymentdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	WorkoutSvc      workoutdomain.Service
	PlanRepo        plandomain.Repository
	AuditSvc        auditdomain.Service
	Authz           authzdomain.Authorizer
	Sweeper         *scheduler.ExpirySweeper
	HTTPMetrics     *metrics.HTTPMetrics `optional:"true"`
}

type Server struct {
	db              *gorm.DB
	log             *zap.Logger
	cfg             config.Config
	engine          *gin.Engine
	paymentSvc      paymentdomain.Service
	subscriptionSvc subscriptiondomain.Service
	workoutSvc      workoutdomain.Service
	planRepo        plandomain.Repository
	auditSvc        auditdomain.Service
	authz           authzdomain.Authorizer
	sweeper         *scheduler.ExpirySweeper
	verifyLimiter   *rateLimiter
}

func NewEngine(cfg config.Config, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(metrics.GinMiddleware(httpMetrics))
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz"},
	}))
	return engine
}

func NewServer(p Params, engine *gin.Engine) *Server {
	return &Server{
		db:              p.DB,
		log:             p.Log.Named("server"),
		cfg:             p.Cfg,
		engine:          engine,
		paymentSvc:      p.PaymentSvc,
		subscriptionSvc: p.SubscriptionSvc,
		workoutSvc:      p.WorkoutSvc,
		planRepo:        p.PlanRepo,
		auditSvc:        p.AuditSvc,
		authz:           p.Authz,
		sweeper:         p.Sweeper,
		verifyLimiter:   newRateLimiter(30, time.Minute),
	}
}

// RegisterAPIRoutes mounts the public and admin route groups.
func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Health)

	api := s.engine.Group("/api")
	{
		api.POST("/webhooks/:provider", s.HandleWebhook)
		api.POST("/payments/verify", s.RateLimit(s.verifyLimiter), s.VerifyPayment)

		api.GET("/plans", s.ListPlans)

		authed := api.Group("", s.UserRequired())
		{
			authed.GET("/subscriptions/:id", s.GetSubscription)
			authed.GET("/me/subscription", s.GetOwnSubscription)

			authed.POST("/workouts", s.RecordWorkoutSet)
			authed.GET("/workouts", s.ListWorkoutHistory)
			authed.GET("/workouts/records", s.ListPersonalRecords)
		}

		admin := api.Group("/admin", s.UserRequired(), s.RequireRole(authzdomain.RoleAdmin))
		{
			admin.GET("/audit-logs", s.ListAuditLogs)
			admin.POST("/subscriptions/sweep", s.RunExpirySweep)
		}
	}
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.cfg.ServiceVersion})
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
