package config

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// SetupLog configures the global slog logger at the LOG_LEVEL level.
func SetupLog(cfg *Config) {
	slog.SetDefault(NewLogger(os.Stderr, cfg.GetLogLevel()))
}

// NewLogger returns a console logger writing colored, human readable lines to w.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}
