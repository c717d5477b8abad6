package server

import (
	"log/slog"
	"os"

	"github.com/hireboard/apiserver/config"
)

// NewLogger returns a text logger on stderr, at debug level in dev.
func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
