package config

import (
	"log/slog"
	"os"
	"strings"
)

// LoggingConfig configures the process-root slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{Level: "info"}
}

func (l *LoggingConfig) applyEnv() {
	if v := os.Getenv("ARCHESTRA_LOG_LEVEL"); v != "" {
		l.Level = v
	}
}

// SlogLevel maps the configured level name onto slog's level set. Unknown
// names fall back to info rather than failing startup.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
