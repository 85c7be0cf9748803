// Package app wires a daemon's fx modules into a runnable process:
// start with a timeout, block for SIGINT/SIGTERM, stop with a timeout,
// aggregating whatever errors occur along the way.
//
// Grounded on the teacher's internal/app/bootstrap.go (Start/Stop
// wrapped in a timeout context) and internal/app/lifecycle.go's
// App.Wait (block on os/signal, then Stop).
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	defaultStartTimeout = 30 * time.Second
	defaultStopTimeout  = 30 * time.Second
)

// App runs one daemon's fx.App to completion: Start, wait for a
// termination signal, Stop.
type App struct {
	fxApp        *fx.App
	zapLogger    *zap.Logger
	startTimeout time.Duration
	stopTimeout  time.Duration
}

// New builds an App from the given fx modules. A zap logger is wired
// in as fx's own event logger — the teacher's own dependency on
// go.uber.org/zap, otherwise unused in this repo since every
// component logs through internal/log's slog-based loggers instead.
func New(opts ...fx.Option) *App {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger = zap.NewNop()
	}

	all := append([]fx.Option{
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zapLogger}
		}),
	}, opts...)

	return &App{
		fxApp:        fx.New(all...),
		zapLogger:    zapLogger,
		startTimeout: defaultStartTimeout,
		stopTimeout:  defaultStopTimeout,
	}
}

// Run starts the app, blocks until SIGINT/SIGTERM, then stops it.
// Errors from Start, Stop, and flushing the zap logger are
// aggregated with go.uber.org/multierr rather than discarding all but
// the first.
func (a *App) Run() error {
	startCtx, cancel := context.WithTimeout(context.Background(), a.startTimeout)
	defer cancel()
	if err := a.fxApp.Start(startCtx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	stopCtx, cancel2 := context.WithTimeout(context.Background(), a.stopTimeout)
	defer cancel2()

	var errs error
	if err := a.fxApp.Stop(stopCtx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := a.zapLogger.Sync(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}
