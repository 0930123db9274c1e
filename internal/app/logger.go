package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger. Production deployments set
// LOG_FORMAT=json for aggregation; anything else logs plain text.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}

	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler.WithAttrs([]slog.Attr{slog.String("app", "salespulse")}))
}
