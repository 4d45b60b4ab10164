package common

import (
	"io"
	"log/slog"
	"os"
)

// LogLevel represents logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "info"
	}
}

// ToSlogLevel converts LogLevel to slog.Level
func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Logger provides a centralized logging interface for adorun.
// Output goes to stderr so that stdout stays reserved for command results.
type Logger struct {
	*slog.Logger
	level  LogLevel
	masker *Masker
}

func newLogger(h slog.Handler, level LogLevel) *Logger {
	return &Logger{Logger: slog.New(h), level: level, masker: globalMasker}
}

// NewLogger creates a new structured logger with the specified level
func NewLogger(level LogLevel) *Logger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo creates a text logger writing to w.
func NewLoggerTo(w io.Writer, level LogLevel) *Logger {
	opts := &slog.HandlerOptions{
		Level:       level.ToSlogLevel(),
		ReplaceAttr: maskReplaceAttr,
	}
	return newLogger(slog.NewTextHandler(w, opts), level)
}

// NewJSONLogger creates a structured logger with JSON output
func NewJSONLogger(level LogLevel) *Logger {
	opts := &slog.HandlerOptions{
		Level:       level.ToSlogLevel(),
		ReplaceAttr: maskReplaceAttr,
	}
	return newLogger(slog.NewJSONHandler(os.Stderr, opts), level)
}

// NewColorLogger creates a logger using the colorized text handler.
func NewColorLogger(level LogLevel) *Logger {
	h := NewColorHandler(os.Stderr, &slog.HandlerOptions{Level: level.ToSlogLevel()})
	h.SetColorEnabled(true)
	return newLogger(h, level)
}

// maskReplaceAttr routes every string attribute through the global masker.
func maskReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if !globalMasker.IsEnabled() {
		return a
	}
	switch a.Value.Kind() {
	case slog.KindString:
		masked := globalMasker.MaskValue(a.Key, a.Value.String())
		if s, ok := masked.(string); ok {
			return slog.String(a.Key, s)
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, globalMasker.MaskString(err.Error()))
		}
	}
	return a
}

// Level returns the current log level
func (l *Logger) Level() LogLevel {
	return l.level
}

// EnableMasking toggles masking for this logger's handler and the global masker.
func (l *Logger) EnableMasking(enabled bool) {
	if l.masker != nil {
		l.masker.SetEnabled(enabled)
	}
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
		level:  l.level,
		masker: l.masker,
	}
}

// WithOperation returns a logger with resource/operation context
func (l *Logger) WithOperation(resource, operation string) *Logger {
	return &Logger{
		Logger: l.Logger.With("resource", resource, "operation", operation),
		level:  l.level,
		masker: l.masker,
	}
}

// WithItem returns a logger with the batch item index
func (l *Logger) WithItem(index int) *Logger {
	return &Logger{
		Logger: l.Logger.With("item", index),
		level:  l.level,
		masker: l.masker,
	}
}

// WithStore returns a logger with store context
func (l *Logger) WithStore(storeType string) *Logger {
	return &Logger{
		Logger: l.Logger.With("store", storeType),
		level:  l.level,
		masker: l.masker,
	}
}

// WithRequest returns a logger with HTTP request context
func (l *Logger) WithRequest(method, url string) *Logger {
	return &Logger{
		Logger: l.Logger.With("method", method, "url", url),
		level:  l.level,
		masker: l.masker,
	}
}

// Global default logger instance
var defaultLogger = NewLogger(LogLevelInfo)

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	if logger == nil {
		return
	}
	defaultLogger = logger
}

// GetLogger returns the default logger
func GetLogger() *Logger {
	return defaultLogger
}

// Discard returns a logger that drops every record; handy in tests.
func Discard() *Logger {
	return newLogger(slog.NewTextHandler(io.Discard, nil), LogLevelError)
}
