// Package logging configures the structured logger shared by the CLIs.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a logger writing structured records to w. Text keeps terminal
// output readable, json suits log shippers. The "error" key is normalized to
// "err" so queries stay uniform across packages.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// FromEnv builds the logger the CLIs use:
//
//	CLONECORE_LOG_LEVEL: debug|info|warn|error (default info)
//	CLONECORE_LOG_FORMAT: text|json (default text)
//
// Output goes to stderr so stdout stays free for command results.
func FromEnv() *slog.Logger {
	return New(os.Stderr, ParseLevel(os.Getenv("CLONECORE_LOG_LEVEL")), os.Getenv("CLONECORE_LOG_FORMAT"))
}

// ParseLevel maps a level name to its slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
