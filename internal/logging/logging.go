package logging

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"

	"github.com/ppd-pricemap/internal/config"
)

// New builds the process-wide logger. Output is colourised tint text by
// default; set LOG_JSON=true for machine-readable logs.
func New() *slog.Logger {
	level := slog.LevelInfo
	if config.GetEnvBool("LOG_DEBUG", false) {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if config.GetEnvBool("LOG_JSON", false) {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "2006-01-02 15:04:05",
		})
	}

	return slog.New(handler)
}
