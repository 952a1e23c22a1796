package subscription

import (
	"github.com/strideworks/traincore/internal/subscription/repository"
	"github.com/strideworks/traincore/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewReconciler),
	fx.Provide(service.NewService),
)
