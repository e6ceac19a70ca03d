package app

import (
	"io"
	"log/slog"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// newLogger builds the application logger writing to w. Unknown levels fall
// back to info. The global slog default is left untouched so that several
// App instances can log to separate writers.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	renderLogOptions := &slog.HandlerOptions{Level: slog.LevelInfo}
	if l, ok := logLevels[level]; ok {
		renderLogOptions.Level = l
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, renderLogOptions))
	}
	return slog.New(slog.NewTextHandler(w, renderLogOptions))
}
