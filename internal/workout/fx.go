package workout

import (
	"github.com/strideworks/traincore/internal/workout/repository"
	"github.com/strideworks/traincore/internal/workout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("workout.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
