package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger on stderr. JSON if NEEDLESCAN_JSON_LOG=1/true/json else text.
// stdout is left to the report output.
func Init(service string) *slog.Logger {
	logger := New(os.Stderr, service, jsonFromEnv(), levelFromEnv())
	slog.SetDefault(logger)
	logger.Debug("logging initialized", "json", jsonFromEnv())
	return logger
}

// New builds a logger writing to w without touching the global default.
func New(w io.Writer, service string, json bool, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: false, Level: level}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", service)
}

func jsonFromEnv() bool {
	mode := strings.ToLower(os.Getenv("NEEDLESCAN_JSON_LOG"))
	return mode == "1" || mode == "true" || mode == "json"
}

func levelFromEnv() slog.Leveler {
	return ParseLevel(os.Getenv("NEEDLESCAN_LOG_LEVEL"))
}

// ParseLevel maps debug|info|warn|error to a slog level; anything else is info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
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
