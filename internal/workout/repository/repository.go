package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/strideworks/traincore/internal/workout/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormRepository struct{}

// Provide constructs the gorm-backed workout repository.
func Provide() domain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) InsertLog(ctx context.Context, db *gorm.DB, log *domain.WorkoutLog) error {
	if log == nil {
		return domain.ErrInvalidSet
	}
	return db.WithContext(ctx).Create(log).Error
}

func (r *gormRepository) ListLogs(ctx context.Context, db *gorm.DB, userID snowflake.ID, exercise string, limit int) ([]domain.WorkoutLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("performed_at DESC").
		Limit(limit)
	if exercise != "" {
		query = query.Where("exercise = ?", exercise)
	}
	var logs []domain.WorkoutLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *gormRepository) FindMaxLift(ctx context.Context, db *gorm.DB, userID snowflake.ID, exercise string) (*domain.MaxLift, error) {
	var lift domain.MaxLift
	err := db.WithContext(ctx).
		First(&lift, "user_id = ? AND exercise = ?", userID, exercise).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lift, nil
}

func (r *gormRepository) UpsertMaxLift(ctx context.Context, db *gorm.DB, lift *domain.MaxLift) error {
	if lift == nil {
		return domain.ErrInvalidSet
	}
	lift.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "exercise"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"weight_kg", "reps", "estimated_one_rm", "achieved_at", "updated_at",
			}),
		}).
		Create(lift).Error
}

func (r *gormRepository) ListMaxLifts(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.MaxLift, error) {
	var lifts []domain.MaxLift
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("exercise ASC").
		Find(&lifts).Error
	if err != nil {
		return nil, err
	}
	return lifts, nil
}
