package seed

import (
	"context"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/strideworks/traincore/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultPlans are the provider-registered coaching plans the service
// sells. Seeding upserts on provider_plan_id, so redeploys are safe.
var defaultPlans = []plandomain.Plan{
	{Name: "Fitness Monthly", Category: plandomain.PlanCategoryFitness, BillingPeriodMonths: 1, AmountMinor: 299900, Currency: "INR", ProviderPlanID: "plan_fitness_monthly", Active: true},
	{Name: "Fitness Quarterly", Category: plandomain.PlanCategoryFitness, BillingPeriodMonths: 3, AmountMinor: 799900, Currency: "INR", ProviderPlanID: "plan_fitness_quarterly", Active: true},
	{Name: "Psychology Monthly", Category: plandomain.PlanCategoryPsychology, BillingPeriodMonths: 1, AmountMinor: 349900, Currency: "INR", ProviderPlanID: "plan_psychology_monthly", Active: true},
	{Name: "Manifestation Monthly", Category: plandomain.PlanCategoryManifestation, BillingPeriodMonths: 1, AmountMinor: 249900, Currency: "INR", ProviderPlanID: "plan_manifestation_monthly", Active: true},
}

// EnsureDefaultPlans inserts any missing default plan rows.
func EnsureDefaultPlans(ctx context.Context, db *gorm.DB, repo plandomain.Repository, genID *snowflake.Node, log *zap.Logger) error {
	for _, plan := range defaultPlans {
		plan.ID = genID.Generate()
		if err := repo.Upsert(ctx, db, &plan); err != nil {
			return err
		}
	}
	log.Info("default plans ensured", zap.Int("plans", len(defaultPlans)))
	return nil
}

// Module seeds reference data on startup, after migrations have run.
var Module = fx.Module("seed",
	fx.Invoke(func(lc fx.Lifecycle, db *gorm.DB, repo plandomain.Repository, genID *snowflake.Node, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return EnsureDefaultPlans(ctx, db, repo, genID, log.Named("seed"))
			},
		})
	}),
)
