package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/strideworks/traincore/internal/audit"
	"github.com/strideworks/traincore/internal/authorization"
	"github.com/strideworks/traincore/internal/clock"
	"github.com/strideworks/traincore/internal/config"
	"github.com/strideworks/traincore/internal/events"
	"github.com/strideworks/traincore/internal/migration"
	"github.com/strideworks/traincore/internal/observability"
	"github.com/strideworks/traincore/internal/payment"
	"github.com/strideworks/traincore/internal/plan"
	"github.com/strideworks/traincore/internal/scheduler"
	"github.com/strideworks/traincore/internal/seed"
	"github.com/strideworks/traincore/internal/server"
	"github.com/strideworks/traincore/internal/subscription"
	"github.com/strideworks/traincore/internal/workout"
	"github.com/strideworks/traincore/pkg/db"
	"github.com/strideworks/traincore/pkg/redis"
	"go.uber.org/fx"
)

func main() {
	cfg := config.Load()

	options := []fx.Option{
		fx.Supply(cfg),
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		events.Module,
		audit.Module,
		authorization.Module,
		plan.Module,
		seed.Module,
		subscription.Module,
		payment.Module,
		workout.Module,
		scheduler.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
		}),
		fx.Invoke(server.RunHTTP),
	}

	// The sweep lock only matters when replicas share a Redis.
	if cfg.RedisAddr != "" {
		options = append(options, redis.Module, scheduler.ProvideLocker())
	}

	fx.New(options...).Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
