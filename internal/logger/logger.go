package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var log *slog.Logger
var logLevel slog.Level

func init() {
	logLevel = parseLevel(os.Getenv("LOG_LEVEL"))
	log = slog.New(newHandler(os.Stdout))

	// Anything calling slog directly gets the same JSON output
	slog.SetDefault(log)
}

// parseLevel maps LOG_LEVEL (debug, info, warn, error; case-insensitive) to a slog level.
// Unknown or empty values fall back to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func newHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return logLevel == slog.LevelDebug
}

// Debug logs a debug message with structured fields
func Debug(msg string, args ...any) {
	log.Debug(msg, args...)
}

// Info logs an informational message with structured fields
func Info(msg string, args ...any) {
	log.Info(msg, args...)
}

// Warn logs a warning message with structured fields
func Warn(msg string, args ...any) {
	log.Warn(msg, args...)
}

// Error logs an error message with structured fields
func Error(msg string, args ...any) {
	log.Error(msg, args...)
}

// Fatal logs an error message and exits with status 1
func Fatal(msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}

// SetOutputForTest redirects log output to w and returns a restore func.
// Only for tests.
func SetOutputForTest(w io.Writer) func() {
	original := log
	log = slog.New(newHandler(w))
	slog.SetDefault(log)
	return func() {
		log = original
		slog.SetDefault(log)
	}
}

// SetDebugForTest forces debug logging on or off and returns a restore func.
// Only for tests.
func SetDebugForTest(enabled bool) func() {
	origLevel, origLog := logLevel, log
	if enabled {
		logLevel = slog.LevelDebug
	} else {
		logLevel = slog.LevelInfo
	}
	log = slog.New(newHandler(os.Stdout))
	return func() {
		logLevel, log = origLevel, origLog
	}
}
