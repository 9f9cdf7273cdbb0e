// SPDX-License-Identifier: MIT
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

// Constants for log levels.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// --- Global Logger State ---

// currentLevel holds the current global log level atomically.
var currentLevel atomic.Uint32

// logger is the standard logger instance used internally.
// Date and time with microseconds, frame timing matters when reading logs.
var logger = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects all log output. The TUI uses this to keep log lines
// from tearing the terminal, tests use it to capture diagnostics.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// shouldLog checks if a message at the given level should be logged based on the current global level.
func shouldLog(level LogLevel) bool {
	return level >= GetLevel()
}

func output(level LogLevel, prefix, msg string) {
	if !shouldLog(level) {
		return
	}
	if prefix != "" {
		logger.Printf("[%-5s] %s: %s", level, prefix, msg)
		return
	}
	logger.Printf("[%-5s] %s", level, msg)
}

// --- Component loggers ---

// Logger tags every message with the name of the component that emitted it.
// The zero value logs without a tag.
type Logger struct {
	component string
}

// For returns a Logger scoped to the named component, e.g. log.For("bars").
func For(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) Debugf(format string, v ...any) {
	output(LevelDebug, l.component, fmt.Sprintf(format, v...))
}

func (l *Logger) Infof(format string, v ...any) {
	output(LevelInfo, l.component, fmt.Sprintf(format, v...))
}

func (l *Logger) Warnf(format string, v ...any) {
	output(LevelWarn, l.component, fmt.Sprintf(format, v...))
}

func (l *Logger) Errorf(format string, v ...any) {
	output(LevelError, l.component, fmt.Sprintf(format, v...))
}

// --- Public Logging Functions ---

// Debugf logs a formatted debug message if the level is appropriate.
func Debugf(format string, v ...any) {
	output(LevelDebug, "", fmt.Sprintf(format, v...))
}

// Infof logs a formatted info message if the level is appropriate.
func Infof(format string, v ...any) {
	output(LevelInfo, "", fmt.Sprintf(format, v...))
}

// Warnf logs a formatted warning message if the level is appropriate.
func Warnf(format string, v ...any) {
	output(LevelWarn, "", fmt.Sprintf(format, v...))
}

// Errorf logs a formatted error message if the level is appropriate.
func Errorf(format string, v ...any) {
	output(LevelError, "", fmt.Sprintf(format, v...))
}

// Fatalf logs a formatted fatal message and exits the application.
// Fatal messages are always logged regardless of the current level.
func Fatalf(format string, v ...any) {
	logger.Fatalf("[%-5s] %s", LevelFatal, fmt.Sprintf(format, v...))
}
