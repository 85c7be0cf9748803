package pds

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/log"
	"github.com/natak-mesh/overlay-bridge/internal/metrics"
	"github.com/natak-mesh/overlay-bridge/pkg/overlay"
	"go.uber.org/fx"
)

// Module wires the Peer Discovery Service into an fx.App.
var Module = fx.Module("pds",
	fx.Provide(provideService, provideClock),
	fx.Invoke(registerLifecycle),
)

func provideClock() clock.Clock {
	return clock.New()
}

func provideService(cfg config.Config, transport overlay.Transport, clk clock.Clock, reg *metrics.Registry) *Service {
	return New(cfg.PDS, cfg.Hostname, transport, clk, log.Logger("pds"), reg)
}

type lifecycleInput struct {
	fx.In
	LC      fx.Lifecycle
	Service *Service
}

func registerLifecycle(in lifecycleInput) {
	in.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return in.Service.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return in.Service.Stop(ctx)
		},
	})
}
