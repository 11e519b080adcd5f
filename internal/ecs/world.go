package ecs

import (
	"sam-segmenter/internal/events"
	"sam-segmenter/internal/logger"
)

// World is the application context handed to every system. It replaces a
// tag scan for "the app entity" with an explicit reference.
type World struct {
	Registry *Registry
	Bus      *events.Bus
	App      Entity
	Logger   logger.Logger
}

func NewWorld(log logger.Logger) *World {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	reg := NewRegistry()
	return &World{
		Registry: reg,
		Bus:      events.NewBus(log),
		App:      reg.Create(),
		Logger:   log,
	}
}

// Notify publishes a user-visible notice and mirrors it to the log.
func (w *World) Notify(component string, level events.NoticeLevel, message string) error {
	fields := map[string]interface{}{"notice": message}
	switch level {
	case events.NoticeWarning:
		w.Logger.Warning(component, "user notice", fields)
	case events.NoticeError:
		w.Logger.Warning(component, "user error notice", fields)
	default:
		w.Logger.Info(component, "user notice", fields)
	}
	return w.Bus.Publish(events.Notice{Level: level, Message: message})
}

// System is a unit of behaviour driven once per frame.
type System interface {
	Name() string
	Init(w *World) error
	Update(w *World)
	Shutdown(w *World)
}
