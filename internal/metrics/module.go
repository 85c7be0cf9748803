package metrics

import (
	"context"

	"github.com/natak-mesh/overlay-bridge/internal/config"
	"go.uber.org/fx"
)

// Module wires the metrics registry and its HTTP server into an
// fx.App. Grounded on the same fx.Invoke(registerLifecycle) shape
// used by every other component module in this tree.
var Module = fx.Module("metrics",
	fx.Provide(New),
	fx.Invoke(registerLifecycle),
)

type lifecycleInput struct {
	fx.In
	LC  fx.Lifecycle
	Reg *Registry
	Cfg config.Config
}

func registerLifecycle(in lifecycleInput) {
	in.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if in.Cfg.Metrics.ListenAddr == "" {
				return nil
			}
			return in.Reg.Serve(in.Cfg.Metrics.ListenAddr)
		},
		OnStop: func(ctx context.Context) error {
			return in.Reg.Shutdown(ctx)
		},
	})
}
