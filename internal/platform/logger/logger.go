package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. JSON output so log aggregation can
// index tenant, request_id, and the log_type=audit lines services emit.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
