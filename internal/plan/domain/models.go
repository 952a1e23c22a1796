package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// PlanCategory is the coaching discipline a plan belongs to.
type PlanCategory string

const (
	PlanCategoryFitness       PlanCategory = "FITNESS"
	PlanCategoryPsychology    PlanCategory = "PSYCHOLOGY"
	PlanCategoryManifestation PlanCategory = "MANIFESTATION"
)

// IsValid reports whether the category is one of the coaching disciplines.
func (c PlanCategory) IsValid() bool {
	switch c {
	case PlanCategoryFitness, PlanCategoryPsychology, PlanCategoryManifestation:
		return true
	}
	return false
}

// Plan is a purchasable coaching plan. BillingPeriodMonths drives the
// billing period end computed on payment verification.
type Plan struct {
	ID                  snowflake.ID `gorm:"primaryKey"`
	Name                string       `gorm:"type:text;not null"`
	Category            PlanCategory `gorm:"type:text;not null;index"`
	BillingPeriodMonths int          `gorm:"not null;default:1"`
	AmountMinor         int64        `gorm:"not null"`
	Currency            string       `gorm:"type:text;not null;default:'INR'"`
	ProviderPlanID      string       `gorm:"type:text;not null;uniqueIndex"`
	Active              bool         `gorm:"not null;default:true"`
	CreatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

var (
	ErrPlanNotFound = errors.New("plan_not_found")
	ErrInvalidPlan  = errors.New("invalid_plan")
)
