package observability

import (
	"github.com/strideworks/traincore/internal/observability/logger"
	"github.com/strideworks/traincore/internal/observability/metrics"
	"github.com/strideworks/traincore/internal/observability/tracing"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	logger.Module,
	tracing.Module,
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Provide(metrics.NewWebhookMetrics),
)
