package authorization

import (
	"github.com/strideworks/traincore/internal/authorization/repository"
	"github.com/strideworks/traincore/internal/authorization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("authorization.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
