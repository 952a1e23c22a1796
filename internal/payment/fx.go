package payment

import (
	"github.com/strideworks/traincore/internal/payment/adapters"
	"github.com/strideworks/traincore/internal/payment/adapters/razorpay"
	"github.com/strideworks/traincore/internal/payment/repository"
	"github.com/strideworks/traincore/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(newRegistry),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

func newRegistry() *adapters.Registry {
	return adapters.NewRegistry(razorpay.NewFactory())
}
