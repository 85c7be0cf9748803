// Package log provides the subsystem-scoped logging used by every
// component of the overlay bridge: LQM, PDS, PB, and ROS each get their
// own named logger so operators can raise or lower verbosity per
// component without restarting the process.
//
// Built on log/slog. Configuration:
//   - OVB_LOG_LEVEL: per-subsystem levels, format "subsystem=level,subsystem=level,defaultlevel"
//     example: pds=debug,ros=warn,info
//   - OVB_LOG_FORMAT: text or json
//
// Usage:
//
//	logger := log.Logger("pds")
//	logger.Info("peer discovered", "hostname", hostname, "peers", len(peers))
package log

import (
	"io"
	"log/slog"
	"sync"
)

var (
	loggers  sync.Map // map[string]*slog.Logger
	handlers sync.Map // map[string]*subsystemHandler

	globalLogger     *slog.Logger
	globalLoggerOnce sync.Once
)

// Logger returns the Logger for the named subsystem, creating it on
// first use according to OVB_LOG_LEVEL. Repeated calls with the same
// name return the same instance.
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	cfg := ConfigFromEnv()
	level := cfg.LevelForSubsystem(subsystem)

	handler := newHandler(subsystem, level, cfg.Format)
	logger := slog.New(handler)

	actual, _ := loggers.LoadOrStore(subsystem, logger)
	if h, ok := handler.(*subsystemHandler); ok {
		handlers.Store(subsystem, h)
	}

	return actual.(*slog.Logger)
}

// GlobalLogger returns the process-wide default Logger, used for
// messages not tied to one of the four components (e.g. bootstrap).
func GlobalLogger() *slog.Logger {
	globalLoggerOnce.Do(func() {
		globalLogger = Logger("bootstrap")
	})
	return globalLogger
}

// SetLevel changes the level of a running subsystem logger without a
// restart.
func SetLevel(subsystem string, level slog.Level) {
	if h, ok := handlers.Load(subsystem); ok {
		h.(*subsystemHandler).SetLevel(level)
	}
}

// SetGlobalLevel sets the level of every subsystem logger created so far.
func SetGlobalLevel(level slog.Level) {
	handlers.Range(func(_, value any) bool {
		value.(*subsystemHandler).SetLevel(level)
		return true
	})
}

// Discard returns a Logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(DiscardHandler())
}

// With returns the named subsystem's Logger pre-bound with args.
func With(subsystem string, args ...any) *slog.Logger {
	return Logger(subsystem).With(args...)
}

func Debug(subsystem, msg string, args ...any) { Logger(subsystem).Debug(msg, args...) }
func Info(subsystem, msg string, args ...any)  { Logger(subsystem).Info(msg, args...) }
func Warn(subsystem, msg string, args ...any)  { Logger(subsystem).Warn(msg, args...) }
func Error(subsystem, msg string, args ...any) { Logger(subsystem).Error(msg, args...) }

// SetOutput redirects every logger's output, including ones already
// created, to w. Safe to call concurrently.
func SetOutput(w io.Writer) {
	globalOutputMu.Lock()
	globalOutput = w
	globalOutputMu.Unlock()
}
