package pb

import (
	"context"

	"github.com/natak-mesh/overlay-bridge/internal/codec"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/dedup"
	"github.com/natak-mesh/overlay-bridge/internal/log"
	"github.com/natak-mesh/overlay-bridge/internal/metrics"
	"github.com/natak-mesh/overlay-bridge/internal/spool"
	"go.uber.org/fx"
)

// Module wires the Packet Bridge into an fx.App.
var Module = fx.Module("pb",
	fx.Provide(provideBridge, provideDedup, provideCodec, provideSpool),
	fx.Invoke(registerLifecycle),
)

func provideDedup(cfg config.Config) (*dedup.Ring, error) {
	return dedup.New(cfg.Dedup.Capacity)
}

func provideCodec(cfg config.Config) (*codec.Codec, error) {
	return codec.NewFromFile(cfg.Codec.DictionaryPath, cfg.Codec.Level, cfg.Codec.MaxBytes)
}

func provideSpool(cfg config.Config) (*spool.Spool, error) {
	return spool.Open(cfg.PB.SpoolDir)
}

func provideBridge(cfg config.Config, dedupRing *dedup.Ring, cdc *codec.Codec, sp *spool.Spool, reg *metrics.Registry) (*Bridge, error) {
	return New(cfg.PB, dedupRing, cdc, sp, log.Logger("pb"), reg)
}

type lifecycleInput struct {
	fx.In
	LC     fx.Lifecycle
	Bridge *Bridge
}

func registerLifecycle(in lifecycleInput) {
	in.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return in.Bridge.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return in.Bridge.Stop(ctx)
		},
	})
}
