package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/strideworks/traincore/internal/cache"
	"github.com/strideworks/traincore/internal/plan/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const planCacheTTL = 5 * time.Minute

type gormRepository struct {
	plans cache.Cache[snowflake.ID, domain.Plan]
}

// Provide constructs the gorm-backed plan repository. Plans change rarely
// and are read on every webhook, so lookups go through a TTL cache.
func Provide() domain.Repository {
	return &gormRepository{
		plans: cache.NewTTLCache[snowflake.ID, domain.Plan](),
	}
}

func (r *gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Plan, error) {
	if cached, ok := r.plans.Get(id); ok {
		return &cached, nil
	}

	var plan domain.Plan
	err := db.WithContext(ctx).First(&plan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	r.plans.Set(id, plan, planCacheTTL)
	return &plan, nil
}

func (r *gormRepository) ListActive(ctx context.Context, db *gorm.DB) ([]domain.Plan, error) {
	var plans []domain.Plan
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("category, amount_minor").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *gormRepository) Upsert(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	if plan == nil {
		return domain.ErrInvalidPlan
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_plan_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "category", "billing_period_months", "amount_minor", "currency", "active", "updated_at"}),
		}).
		Create(plan).Error
	if err != nil {
		return err
	}
	r.plans.Delete(plan.ID)
	return nil
}
