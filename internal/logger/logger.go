// Package logger provides logging for docscope.
//
// Messages go through log/slog. When verbose mode is enabled via the
// --verbose flag they are printed to stderr as text; when a log file is
// configured every message is also written there as JSON.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	fileOut io.Writer
	current = build()
)

// build assembles the fanout handler (caller must hold mu when mutating state).
func build() *slog.Logger {
	var handlers []slog.Handler
	if verbose {
		handlers = append(handlers, slog.NewTextHandler(output, &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: dropTime,
		}))
	}
	if fileOut != nil {
		handlers = append(handlers, slog.NewJSONHandler(fileOut, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	current = build()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	current = build()
}

// SetFile appends JSON logs to path in addition to stderr.
// The returned function detaches and closes the file.
func SetFile(path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	mu.Lock()
	fileOut = f
	current = build()
	mu.Unlock()

	return func() error {
		mu.Lock()
		fileOut = nil
		current = build()
		mu.Unlock()
		return f.Close()
	}, nil
}

// setFileWriter attaches a JSON writer directly; nil detaches it.
func setFileWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	fileOut = w
	current = build()
}

// Logger returns the current structured logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// With returns a structured logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

func logf(level slog.Level, format string, args ...any) {
	l := Logger()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, fmt.Sprintf(format, args...))
}

// Debug logs a formatted debug message.
func Debug(format string, args ...any) {
	logf(slog.LevelDebug, format, args...)
}

// Section logs a pipeline section marker.
func Section(name string) {
	logf(slog.LevelDebug, "=== %s ===", name)
}

// Info logs a formatted informational message.
func Info(format string, args ...any) {
	logf(slog.LevelInfo, format, args...)
}

// Warn logs a formatted warning.
func Warn(format string, args ...any) {
	logf(slog.LevelWarn, format, args...)
}
