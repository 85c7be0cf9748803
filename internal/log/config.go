package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogFormat selects the wire format of emitted log lines.
type LogFormat int

const (
	FormatText LogFormat = iota
	FormatJSON
)

// Config holds the resolved logging configuration.
type Config struct {
	DefaultLevel    slog.Level
	SubsystemLevels map[string]slog.Level
	Format          LogFormat
	AddSource       bool
}

// LevelForSubsystem returns the configured level for subsystem, falling
// back to DefaultLevel.
func (c *Config) LevelForSubsystem(subsystem string) slog.Level {
	if level, ok := c.SubsystemLevels[subsystem]; ok {
		return level
	}
	return c.DefaultLevel
}

var (
	configCache *Config
	configOnce  sync.Once
)

// ConfigFromEnv parses OVB_LOG_LEVEL, OVB_LOG_FORMAT, and
// OVB_LOG_ADD_SOURCE once and caches the result.
func ConfigFromEnv() *Config {
	configOnce.Do(func() {
		configCache = parseConfig()
	})
	return configCache
}

func parseConfig() *Config {
	cfg := &Config{
		DefaultLevel:    slog.LevelInfo,
		SubsystemLevels: make(map[string]slog.Level),
		Format:          FormatText,
		AddSource:       false,
	}

	if levelStr := os.Getenv("OVB_LOG_LEVEL"); levelStr != "" {
		parseLevelConfig(cfg, levelStr)
	}

	if formatStr := os.Getenv("OVB_LOG_FORMAT"); formatStr != "" {
		switch strings.ToLower(formatStr) {
		case "json":
			cfg.Format = FormatJSON
		default:
			cfg.Format = FormatText
		}
	}

	if addSourceStr := os.Getenv("OVB_LOG_ADD_SOURCE"); addSourceStr != "" {
		cfg.AddSource = addSourceStr != "false" && addSourceStr != "0"
	}

	return cfg
}

// parseLevelConfig parses "subsystem=level,subsystem=level,defaultLevel".
func parseLevelConfig(cfg *Config, levelStr string) {
	parts := strings.Split(levelStr, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "=") {
			kv := strings.SplitN(part, "=", 2)
			if len(kv) == 2 {
				subsystem := strings.TrimSpace(kv[0])
				levelName := strings.TrimSpace(kv[1])
				if level, ok := parseLevel(levelName); ok {
					cfg.SubsystemLevels[subsystem] = level
				}
			}
		} else {
			if level, ok := parseLevel(part); ok {
				cfg.DefaultLevel = level
			}
		}
	}
}

func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// ResetConfig clears the cached config. Test-only.
func ResetConfig() {
	configOnce = sync.Once{}
	configCache = nil
}
