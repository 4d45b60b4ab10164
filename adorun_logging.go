package adorun

import "github.com/loykin/adorun/internal/common"

type LogLevel = common.LogLevel

const (
	LogLevelError = common.LogLevelError
	LogLevelWarn  = common.LogLevelWarn
	LogLevelInfo  = common.LogLevelInfo
	LogLevelDebug = common.LogLevelDebug
)

// NewLogger creates a text logger writing to stderr.
func NewLogger(level LogLevel) *Logger { return common.NewLogger(level) }

func NewJSONLogger(level LogLevel) *Logger { return common.NewJSONLogger(level) }

func NewColorLogger(level LogLevel) *Logger { return common.NewColorLogger(level) }

// SetDefaultLogger replaces the logger used by every component.
func SetDefaultLogger(l *Logger) { common.SetDefaultLogger(l) }

func GetLogger() *Logger { return common.GetLogger() }

// EnableMasking toggles secret masking in all log output.
func EnableMasking(enabled bool) { common.EnableMasking(enabled) }

// RegisterSecret masks a literal value wherever it appears in log output.
func RegisterSecret(secret string) { common.RegisterSecret(secret) }
