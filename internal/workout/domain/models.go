package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// WorkoutLog is one recorded set of an exercise.
type WorkoutLog struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	UserID         snowflake.ID `gorm:"not null;index"`
	Exercise       string       `gorm:"type:text;not null;index"`
	WeightKg       float64      `gorm:"not null"`
	Reps           int          `gorm:"not null"`
	EstimatedOneRM float64      `gorm:"column:estimated_one_rm;not null"`
	PerformedAt    time.Time    `gorm:"not null"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (WorkoutLog) TableName() string { return "workout_logs" }

// MaxLift is the best estimated one-rep max a user has reached for an
// exercise. One row per (user, exercise).
type MaxLift struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	UserID         snowflake.ID `gorm:"not null;uniqueIndex:ux_max_lift,priority:1"`
	Exercise       string       `gorm:"type:text;not null;uniqueIndex:ux_max_lift,priority:2"`
	WeightKg       float64      `gorm:"not null"`
	Reps           int          `gorm:"not null"`
	EstimatedOneRM float64      `gorm:"column:estimated_one_rm;not null"`
	AchievedAt     time.Time    `gorm:"not null"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (MaxLift) TableName() string { return "max_lifts" }

var (
	ErrInvalidSet      = errors.New("invalid_set")
	ErrUnknownExercise = errors.New("unknown_exercise")
)
