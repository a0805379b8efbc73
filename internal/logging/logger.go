package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger and returns it.
// Format "json" is meant for log aggregation; anything else uses the text handler.
// Output goes to stderr so reports printed on stdout stay clean.
func Init(level, format string) *slog.Logger {
	return InitWriter(os.Stderr, level, format)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// WithRequest returns a logger scoped to one generation request.
func WithRequest(logger *slog.Logger, key, topic string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("cache_key", key, "topic", topic)
}

// OrDefault returns logger, or slog.Default() when nil.
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
