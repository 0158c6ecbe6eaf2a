package logger

import (
	"log/slog"
	"os"
)

// New builds the process-wide JSON logger. Dev environments log at debug
// and carry the env attribute so mixed log streams stay tellable apart.
func New(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", "shenhe-bot", "env", env)
}
