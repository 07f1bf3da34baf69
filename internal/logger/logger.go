package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rartzi/agentic-drop-zones/pkg/models"
)

var globalLogger *slog.Logger

// Init initializes the global logger based on application settings.
// Output goes to w, or stdout when w is nil. It should be called once
// during application startup; tests pass io.Discard.
func Init(settings models.ApplicationSettings, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	var level slog.Level
	switch strings.ToLower(settings.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(settings.LogFormat) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
	return nil
}

// L returns the initialized global logger instance. If Init has not been
// called it falls back to the process default rather than panicking.
func L() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}
