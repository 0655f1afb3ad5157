// Package logging provides a shared, structured logger for pixview.
//
// It wraps the standard library's [log/slog] package and provides a single
// initialization point so all components share the same output handler and
// log level. The log level can be controlled at startup via the
// PIXVIEW_LOG_LEVEL environment variable (debug, info, warn, error).
// If unset, the default level is INFO.
//
// Usage:
//
//	log := logging.New("viewer")       // creates a logger tagged with component="viewer"
//	log.Info("loaded image", "path", p)
//	log.Warn("stat failed", "error", err)
//
// Output goes to stderr until SetOutput redirects it. The terminal backend
// owns the screen while the viewer runs, so the CLI points logs at a file
// when one is configured.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	// initLogger ensures the base logger is created exactly once across all
	// goroutines, even if multiple components call New concurrently.
	initLogger sync.Once

	// baseLogger is the singleton logger instance shared by all components.
	// Component-specific loggers are derived from this via With().
	baseLogger *slog.Logger

	// output is the destination of every handler created by this package.
	// Package-level loggers are built during init, before main can pick a
	// destination, so the writer is swapped underneath them.
	output = &switchWriter{w: os.Stderr}
)

// switchWriter forwards writes to a replaceable destination.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

// New returns a structured logger scoped to the given component name.
//
// The component name is added as a "component" attribute to every log entry
// produced by the returned logger. If component is empty, the base logger is
// returned without any additional attributes.
func New(component string) *slog.Logger {
	initLogger.Do(func() {
		baseLogger = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
			Level: parseLevel(os.Getenv("PIXVIEW_LOG_LEVEL")),
		}))
	})
	if component == "" {
		return baseLogger
	}
	return baseLogger.With("component", component)
}

// SetOutput redirects all loggers created by New, including ones created
// before the call. A nil writer discards log output.
func SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	output.set(w)
}

// OpenFile appends log output to the file at path, creating it if needed.
// The caller closes the returned file after the last log line is written.
func OpenFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	SetOutput(f)
	return f, nil
}

// parseLevel converts a human-readable log level string to a [slog.Level].
//
// Recognized values (case-insensitive, whitespace-trimmed):
//   - "debug"           → slog.LevelDebug
//   - "warn", "warning" → slog.LevelWarn
//   - "error"           → slog.LevelError
//   - anything else     → slog.LevelInfo (the default)
func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
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
