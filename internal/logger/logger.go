// Package logger builds the structured logger passed to every component.
package logger

import (
	"io"
	"log/slog"
)

// New creates a logger writing to w. format is "json" or "text".
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// WithRun tags every record with the run and the repository it reconciles.
func WithRun(log *slog.Logger, runID, platform, repository string) *slog.Logger {
	return log.With(
		slog.String("run_id", runID),
		slog.String("platform", platform),
		slog.String("repository", repository),
	)
}
