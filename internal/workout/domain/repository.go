package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertLog(ctx context.Context, db *gorm.DB, log *WorkoutLog) error
	ListLogs(ctx context.Context, db *gorm.DB, userID snowflake.ID, exercise string, limit int) ([]WorkoutLog, error)
	FindMaxLift(ctx context.Context, db *gorm.DB, userID snowflake.ID, exercise string) (*MaxLift, error)
	UpsertMaxLift(ctx context.Context, db *gorm.DB, lift *MaxLift) error
	ListMaxLifts(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]MaxLift, error)
}

// SetResult reports a recorded set and whether it set a new personal
// record for the exercise.
type SetResult struct {
	Log            WorkoutLog
	PersonalRecord bool
	PreviousBestKg float64
}

// Service records workout sets and tracks per-exercise personal records.
type Service interface {
	RecordSet(ctx context.Context, userID snowflake.ID, exercise string, weightKg float64, reps int) (*SetResult, error)
	History(ctx context.Context, userID snowflake.ID, exercise string, limit int) ([]WorkoutLog, error)
	PersonalRecords(ctx context.Context, userID snowflake.ID) ([]MaxLift, error)
}
