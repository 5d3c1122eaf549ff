// Package logging sets up the process-wide structured logger, the same
// slog.NewTextHandler-over-stdout shape the teacher wires inline in
// cmd/engine/main.go, pulled out here into a reusable helper that
// cmd/twinklr-render calls.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a text-handler slog.Logger at the given level name
// (debug|info|warn|error, case-insensitive; unrecognized values default to
// info).
func New(levelName string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	return logger
}
