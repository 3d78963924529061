// Package log configures the process-wide slog logger for the shipit
// binaries.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr at the requested level. An
// unknown value falls back to info so a typo in --log-level never
// silences the API.
func Setup(logLevel string) {
	level := slog.LevelInfo

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule tags a logger with the owning module, e.g. "services.release"
// or "queue.client", so log lines can be traced back to their package.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
