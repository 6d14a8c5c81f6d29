// Package logging provides a structured logging wrapper around charmbracelet/log.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

var (
	defaultLogger     *log.Logger
	defaultLoggerOnce sync.Once
)

func getDefaultLogger() *log.Logger {
	defaultLoggerOnce.Do(func() {
		if defaultLogger == nil {
			defaultLogger = New("info")
		}
	})
	return defaultLogger
}

// New creates a new logger with the specified level.
// Valid levels: "debug", "info", "warn", "error".
func New(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		ReportCaller:    false,
	})

	setLoggerLevel(logger, level)

	return logger
}

// ParseLevel converts a level name to a log.Level. Unknown names map to
// info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func setLoggerLevel(logger *log.Logger, level string) {
	logger.SetLevel(ParseLevel(level))
}

// Default returns the package-level default logger.
func Default() *log.Logger {
	return getDefaultLogger()
}

// SetDefault sets the package-level default logger.
func SetDefault(logger *log.Logger) {
	getDefaultLogger()
	defaultLogger = logger
}

// SetLevel updates the log level of the default logger.
func SetLevel(level string) {
	setLoggerLevel(getDefaultLogger(), level)
}

// DefaultPath returns the log file location in the user's cache directory.
func DefaultPath() (string, error) {
	dir, err := gap.NewScope(gap.User, "readalong").CacheDir()
	if err != nil {
		return "", fmt.Errorf("finding cache directory: %w", err)
	}
	return filepath.Join(dir, "readalong.log"), nil
}

// Setup points the global charm logger and the package default logger at a
// file, since the terminal belongs to the UI. An empty path discards all
// output. The returned func closes the file.
func Setup(path, level string) (func() error, error) {
	if path == "" {
		log.SetOutput(io.Discard)
		getDefaultLogger().SetOutput(io.Discard)
		return func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	lvl := ParseLevel(level)
	log.SetOutput(f)
	log.SetLevel(lvl)
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.RFC3339)

	logger := getDefaultLogger()
	logger.SetOutput(f)
	logger.SetLevel(lvl)
	logger.SetReportTimestamp(true)
	logger.SetTimeFormat(time.RFC3339)

	return f.Close, nil
}
