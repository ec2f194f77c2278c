package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the process-wide slog logger and returns it.
// level accepts anything slog.Level parses ("debug", "INFO", "warn+2");
// unparseable values fall back to info. format is "json" unless "text"
// is requested.
func Setup(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
