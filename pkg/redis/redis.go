package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"github.com/strideworks/traincore/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the Redis client used for cross-replica coordination.
// Include it only when cfg.RedisAddr is set.
var Module = fx.Module("redis",
	fx.Provide(NewClient),
)

func NewClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) goredis.UniversalClient {
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs: []string{cfg.RedisAddr},
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return err
			}
			log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}
