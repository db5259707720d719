// Package logging provides leveled logging for the ingestion core, built
// on log/slog rather than a hand-rolled level check over stdlib log.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger wraps an *slog.Logger with the fixed Debug/Info/Warn/Error
// level set every internal package's Logger seam expects, plus
// Printf-style helpers for call sites migrated from the teacher's
// format-string logging.
type Logger struct {
	slog *slog.Logger
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config holds logging configuration. Output defaults to stderr; a
// non-nil LogFile additionally tees output there, for the case where
// the ingestor runs detached from a terminal (e.g. under the CLI's
// "run" command with metrics scraped remotely).
type Config struct {
	Level   LogLevel
	Output  io.Writer
	LogFile string
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// NewLogger creates a new logger over the given config's writer(s),
// using a text handler with a shortened time format so a serial
// console's output and the ingestion core's own logging interleave
// readably.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	writers := []io.Writer{config.Output}
	if writers[0] == nil {
		writers[0] = os.Stderr
	}
	if config.LogFile != "" {
		if f, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			writers = append(writers, f)
		}
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: config.Level.slogLevel(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("15:04:05.000"))
			}
			return a
		},
	})

	return &Logger{slog: slog.New(handler)}
}

// Default returns the default logger, creating it if necessary.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// Printf-style helpers for call sites that build a formatted string
// rather than passing key/value pairs.
func (l *Logger) Debugf(format string, args ...any) { l.slog.Debug(fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.slog.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.slog.Warn(fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.slog.Error(fmt.Sprintf(format, args...)) }

// Printf exists for compatibility with call sites ported from the
// stdlib-log-shaped logger this replaced; it logs at info level.
func (l *Logger) Printf(format string, args ...any) {
	l.Infof(format, args...)
}

// Global convenience functions against the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
