package logger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Logger provides structured logging scoped by component
type Logger interface {
	Debug(component, message string, fields map[string]interface{})
	Info(component, message string, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
}

// ParseLevel maps a configuration level name onto a zerolog level.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

type NoOpLogger struct{}

func (NoOpLogger) Debug(string, string, map[string]interface{})   {}
func (NoOpLogger) Info(string, string, map[string]interface{})    {}
func (NoOpLogger) Warning(string, string, map[string]interface{}) {}
func (NoOpLogger) Error(string, error, map[string]interface{})    {}
