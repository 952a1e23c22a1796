package audit

import (
	"github.com/strideworks/traincore/internal/audit/repository"
	"github.com/strideworks/traincore/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
