// Package logs builds the application logger from configuration.
package logs

import (
	"log/slog"
	"os"
	"strings"
)

// GetLoggerFromString maps a configuration string ("debug", "info", "warn",
// "error") to a slog logger writing to stdout. Unknown values fall back to info.
func GetLoggerFromString(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return GetLoggerFromLevel(lvl)
}

// GetLoggerFromLevel builds a text logger at the given level.
func GetLoggerFromLevel(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
