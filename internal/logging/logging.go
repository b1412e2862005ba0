// Package logging builds the slog logger used by the minijs CLI.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LevelNone disables logging entirely.
const LevelNone = "none"

// Options selects the logger level, handler and destination.
type Options struct {
	Level  string
	Format string
	// File is appended to; empty means Stderr.
	File string
	// Stderr is the fallback destination. Nil means os.Stderr.
	Stderr io.Writer
}

// LevelFromString maps a level name to a slog level. Unknown names map to error.
func LevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelError
	}
}

// New returns a logger for opts and a function releasing its log file.
// A file that cannot be opened falls back to Stderr with a warning.
func New(opts Options) (*slog.Logger, func() error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	if opts.Level == LevelNone || opts.Level == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() error { return nil }
	}

	w, closeFn := openWriter(opts.File, stderr)
	handlerOpts := &slog.HandlerOptions{Level: LevelFromString(opts.Level)}
	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler), closeFn
}

func openWriter(path string, stderr io.Writer) (io.Writer, func() error) {
	noop := func() error { return nil }
	if path == "" {
		return stderr, noop
	}
	// Create parent directories if they don't exist
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintf(stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", path, err)
		return stderr, noop
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(stderr, "failed to open log file '%s': %v; falling back to stderr\n", path, err)
		return stderr, noop
	}
	return f, f.Close
}
