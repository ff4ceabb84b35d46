// Package logger builds the process-wide slog.Logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options tune handler output beyond level and format.
type Options struct {
	// AddSource annotates records with file:line.
	AddSource bool
	// Attrs are attached to every record, e.g. service name or version.
	Attrs []slog.Attr
}

// New creates a logger writing to stderr. Level is one of debug, info, warn,
// error; format is text or json.
func New(level, format string) *slog.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	return NewWithOptions(w, level, format, Options{})
}

// NewWithOptions creates a logger writing to w with extra handler options.
func NewWithOptions(w io.Writer, level, format string, o Options) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: o.AddSource,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	if len(o.Attrs) > 0 {
		handler = handler.WithAttrs(o.Attrs)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Component scopes l to a named subsystem.
func Component(l *slog.Logger, name string) *slog.Logger {
	return l.With("component", name)
}

// ParseLevel converts a level string to slog.Level. Matching ignores case
// and accepts "warning". Everything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
