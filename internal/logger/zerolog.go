package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// ZerologAdapter keeps one child logger per component so the component
// field is encoded once, not on every event.
type ZerologAdapter struct {
	base zerolog.Logger

	mu     sync.RWMutex
	scoped map[string]zerolog.Logger
}

func NewZerolog(writer io.Writer, level zerolog.Level) *ZerologAdapter {
	base := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &ZerologAdapter{base: base, scoped: make(map[string]zerolog.Logger)}
}

func NewConsoleLogger(level zerolog.Level) *ZerologAdapter {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	return NewZerolog(consoleWriter, level)
}

// New picks the console or JSON writer according to configuration.
func New(levelName string, jsonOutput bool) (*ZerologAdapter, error) {
	level, err := ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	if jsonOutput {
		return NewZerolog(os.Stdout, level), nil
	}
	return NewConsoleLogger(level), nil
}

// Component returns the child logger for component, creating it on first use.
func (z *ZerologAdapter) Component(component string) zerolog.Logger {
	z.mu.RLock()
	l, ok := z.scoped[component]
	z.mu.RUnlock()
	if ok {
		return l
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	if l, ok := z.scoped[component]; ok {
		return l
	}
	l = z.base.With().Str("component", component).Logger()
	z.scoped[component] = l
	return l
}

func (z *ZerologAdapter) Debug(component, message string, fields map[string]interface{}) {
	l := z.Component(component)
	l.Debug().Fields(fields).Msg(message)
}

func (z *ZerologAdapter) Info(component, message string, fields map[string]interface{}) {
	l := z.Component(component)
	l.Info().Fields(fields).Msg(message)
}

func (z *ZerologAdapter) Warning(component, message string, fields map[string]interface{}) {
	l := z.Component(component)
	l.Warn().Fields(fields).Msg(message)
}

func (z *ZerologAdapter) Error(component string, err error, fields map[string]interface{}) {
	l := z.Component(component)
	l.Error().Err(err).Fields(fields).Msg("operation failed")
}
