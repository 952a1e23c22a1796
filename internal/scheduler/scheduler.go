package scheduler

import (
	"context"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/strideworks/traincore/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sweepMutexName = "traincore:expiry-sweep"

type SchedulerParams struct {
	fx.In

	Log     *zap.Logger
	Cfg     config.Config
	Sweeper *ExpirySweeper
}

// Scheduler runs the expiry sweep on the configured cron schedule.
type Scheduler struct {
	log     *zap.Logger
	cron    *cron.Cron
	sweeper *ExpirySweeper
}

func NewScheduler(p SchedulerParams) (*Scheduler, error) {
	s := &Scheduler{
		log:     p.Log.Named("scheduler"),
		cron:    cron.New(),
		sweeper: p.Sweeper.WithBatchSize(p.Cfg.Scheduler.BatchSize),
	}
	_, err := s.cron.AddFunc(p.Cfg.Scheduler.ExpirySchedule, func() {
		if _, err := s.sweeper.Sweep(context.Background()); err != nil {
			s.log.Error("expiry sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// redsyncLocker guards the sweep with a Redis mutex so only one replica
// sweeps per schedule tick.
type redsyncLocker struct {
	mutex *redsync.Mutex
}

func newRedsyncLocker(client redis.UniversalClient, cfg config.Config) Locker {
	rs := redsync.New(goredis.NewPool(client))
	return &redsyncLocker{
		mutex: rs.NewMutex(sweepMutexName, redsync.WithExpiry(cfg.Scheduler.LockExpiry)),
	}
}

func (l *redsyncLocker) Lock(ctx context.Context) (func(), error) {
	if err := l.mutex.LockContext(ctx); err != nil {
		return nil, err
	}
	return func() {
		_, _ = l.mutex.UnlockContext(context.Background())
	}, nil
}

// Module assembles the sweep and its cron loop. The Redis lock is only
// provided when a Redis address is configured; single-replica setups run
// unlocked.
var Module = fx.Module("scheduler",
	fx.Provide(NewExpirySweeper),
	fx.Provide(NewScheduler),
	fx.Invoke(func(lc fx.Lifecycle, s *Scheduler) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				s.Start()
				return nil
			},
			OnStop: s.Stop,
		})
	}),
)

// ProvideLocker wires the Redis-backed sweep lock. Callers include it
// only when Redis is configured.
func ProvideLocker() fx.Option {
	return fx.Provide(func(client redis.UniversalClient, cfg config.Config) Locker {
		return newRedsyncLocker(client, cfg)
	})
}
