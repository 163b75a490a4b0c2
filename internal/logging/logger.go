package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/marcogenualdo/upload-gate/internal/config"
)

// NewLogger builds the process logger. When notifier is non-nil, error
// records are also queued on it.
func NewLogger(cfg config.LoggingConfig, out io.Writer, notifier *Notifier) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	if notifier != nil {
		handler = NewNotifyHandler(handler, notifier)
	}

	return slog.New(handler)
}
