// Package obs wires the process-wide slog logger: JSON output in
// production, human-readable text in development and test, matching the
// teacher's cmd/api (JSON) vs cmd/chat (text) split.
package obs

import (
	"log/slog"
	"os"
)

// Init configures slog.Default for the given environment ("production",
// "development", "test") and returns the logger for callers that want an
// explicit reference instead of relying on the package-level default.
func Init(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "development" || env == "test" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
