package lqm

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/log"
	"github.com/natak-mesh/overlay-bridge/internal/metrics"
	"github.com/natak-mesh/overlay-bridge/internal/telemetry"
	"go.uber.org/fx"
)

// Module wires the Link-Quality Monitor into an fx.App. Grounded on
// the teacher's discovery/mdns.Module: fx.Provide builds the value,
// fx.Invoke registers its start/stop hooks.
var Module = fx.Module("lqm",
	fx.Provide(provideMonitor, provideHostnames, provideClock),
	fx.Invoke(registerLifecycle),
)

func provideHostnames(cfg config.Config) (map[string]HostEntry, error) {
	return LoadHostnameMap(cfg.LQM.HostnameMapPath)
}

func provideClock() clock.Clock {
	return clock.New()
}

// provideMonitor binds this module's own "lqm" logger rather than
// taking a *slog.Logger from the fx graph, where it would collide
// with the other components' differently-named loggers. It takes the
// whole config.Config, like pds/pb/ros's providers, rather than a
// pre-projected LQMConfig, so one fx.Supply(cfg) at the process root
// serves every component's provider.
func provideMonitor(cfg config.Config, source telemetry.Source, hostnames map[string]HostEntry, clk clock.Clock, reg *metrics.Registry) *Monitor {
	return New(cfg.LQM, source, hostnames, clk, log.Logger("lqm"), reg)
}

type lifecycleInput struct {
	fx.In
	LC      fx.Lifecycle
	Monitor *Monitor
}

func registerLifecycle(in lifecycleInput) {
	var (
		cancel context.CancelFunc
		wg     sync.WaitGroup
	)

	in.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var runCtx context.Context
			runCtx, cancel = context.WithCancel(context.Background())
			wg.Add(1)
			go func() {
				defer wg.Done()
				in.Monitor.Run(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			wg.Wait()
			return nil
		},
	})
}
