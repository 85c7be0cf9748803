package ros

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/log"
	"github.com/natak-mesh/overlay-bridge/internal/metrics"
	"github.com/natak-mesh/overlay-bridge/internal/pds"
	"github.com/natak-mesh/overlay-bridge/internal/spool"
	"github.com/natak-mesh/overlay-bridge/pkg/overlay"
	"go.uber.org/fx"
)

// Module wires the Reliable Overlay Sender into an fx.App. It depends
// on pds.Module for PDS's inbound destination and shares the process's
// one overlay.Transport (provided by the hosting command) with it —
// both run in the same process (overlayd), per SPEC_FULL.md §2.
var Module = fx.Module("ros",
	fx.Provide(provideService, provideClock, provideSpool),
	fx.Invoke(registerLifecycle),
)

func provideClock() clock.Clock {
	return clock.New()
}

func provideSpool(cfg config.Config) (*spool.Spool, error) {
	return spool.Open(cfg.ROS.SpoolDir)
}

func provideService(cfg config.Config, transport overlay.Transport, pdsService *pds.Service, sp *spool.Spool, clk clock.Clock, reg *metrics.Registry) *Service {
	return New(cfg.ROS, cfg.PDS.AppName, cfg.PDS.Aspect, transport, pdsService, sp, clk, log.Logger("ros"), reg)
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
