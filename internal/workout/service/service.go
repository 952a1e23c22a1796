package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/strideworks/traincore/internal/clock"
	"github.com/strideworks/traincore/internal/events"
	"github.com/strideworks/traincore/internal/workout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Outbox *events.Outbox
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	outbox *events.Outbox
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("workout.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		outbox: p.Outbox,
	}
}

// RecordSet stores a set and promotes it to the user's personal record
// for the exercise when its estimated one-rep max beats the stored best.
// The log insert and record promotion commit together.
func (s *Service) RecordSet(ctx context.Context, userID snowflake.ID, exercise string, weightKg float64, reps int) (*domain.SetResult, error) {
	exercise = strings.ToLower(strings.TrimSpace(exercise))
	if exercise == "" {
		return nil, domain.ErrUnknownExercise
	}
	estimate := domain.EstimateOneRepMax(weightKg, reps)
	if estimate <= 0 {
		return nil, domain.ErrInvalidSet
	}

	now := s.clock.Now()
	entry := domain.WorkoutLog{
		ID:             s.genID.Generate(),
		UserID:         userID,
		Exercise:       exercise,
		WeightKg:       weightKg,
		Reps:           reps,
		EstimatedOneRM: estimate,
		PerformedAt:    now,
	}

	result := &domain.SetResult{Log: entry}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertLog(ctx, tx, &entry); err != nil {
			return err
		}

		best, err := s.repo.FindMaxLift(ctx, tx, userID, exercise)
		if err != nil {
			return err
		}
		if best != nil {
			result.PreviousBestKg = best.EstimatedOneRM
			if estimate <= best.EstimatedOneRM {
				return nil
			}
		}

		result.PersonalRecord = true
		lift := domain.MaxLift{
			ID:             s.genID.Generate(),
			UserID:         userID,
			Exercise:       exercise,
			WeightKg:       weightKg,
			Reps:           reps,
			EstimatedOneRM: estimate,
			AchievedAt:     now,
		}
		if err := s.repo.UpsertMaxLift(ctx, tx, &lift); err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type:      events.EventPersonalRecordSet,
			DedupeKey: entry.ID.String(),
			Payload: map[string]any{
				"user_id":          userID.String(),
				"exercise":         exercise,
				"estimated_one_rm": estimate,
				"previous_best_kg": result.PreviousBestKg,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if result.PersonalRecord {
		s.log.Info("personal record",
			zap.String("user_id", userID.String()),
			zap.String("exercise", exercise),
			zap.Float64("estimated_one_rm", estimate),
			zap.Float64("previous_best_kg", result.PreviousBestKg),
		)
	}
	return result, nil
}

func (s *Service) History(ctx context.Context, userID snowflake.ID, exercise string, limit int) ([]domain.WorkoutLog, error) {
	return s.repo.ListLogs(ctx, s.db, userID, strings.ToLower(strings.TrimSpace(exercise)), limit)
}

func (s *Service) PersonalRecords(ctx context.Context, userID snowflake.ID) ([]domain.MaxLift, error) {
	return s.repo.ListMaxLifts(ctx, s.db, userID)
}
