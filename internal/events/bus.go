package events

import (
	"errors"
	"fmt"

	"sam-segmenter/internal/logger"
)

// MaxDepth bounds nested publishes. The longest legal chain is
// ImportDirectoryRequested -> DirectoryImported -> Notice.
const MaxDepth = 8

var ErrDepthExceeded = errors.New("event publish depth exceeded")

// Handler reacts to a single event. A returned error aborts the publish.
type Handler func(Event) error

// Bus dispatches events synchronously, in subscription order, on the
// caller's goroutine. It is not safe for concurrent use.
type Bus struct {
	subscribers map[Kind][]Handler
	depth       int
	logger      logger.Logger
}

func NewBus(log logger.Logger) *Bus {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Bus{
		subscribers: make(map[Kind][]Handler),
		logger:      log,
	}
}

func (b *Bus) Subscribe(kind Kind, handler Handler) {
	b.subscribers[kind] = append(b.subscribers[kind], handler)
}

// On subscribes a handler typed to a single event variant.
func On[E Event](b *Bus, handler func(E) error) {
	var zero E
	b.Subscribe(zero.Kind(), func(ev Event) error {
		typed, ok := ev.(E)
		if !ok {
			return fmt.Errorf("event %s has unexpected type %T", ev.Kind(), ev)
		}
		return handler(typed)
	})
}

// Publish invokes every handler subscribed to the event's kind before
// returning. Handlers may publish further events.
func (b *Bus) Publish(ev Event) error {
	if b.depth >= MaxDepth {
		b.logger.Error("EventBus", ErrDepthExceeded, map[string]interface{}{
			"event": ev.Kind().String(),
			"depth": b.depth,
		})
		return fmt.Errorf("%w: %s", ErrDepthExceeded, ev.Kind())
	}

	b.depth++
	defer func() { b.depth-- }()

	handlers := b.subscribers[ev.Kind()]
	b.logger.Debug("EventBus", "publish", map[string]interface{}{
		"event":    ev.Kind().String(),
		"handlers": len(handlers),
		"depth":    b.depth,
	})

	for _, h := range handlers {
		if err := h(ev); err != nil {
			return fmt.Errorf("%s: %w", ev.Kind(), err)
		}
	}
	return nil
}

// Subscribers reports how many handlers are registered for kind.
func (b *Bus) Subscribers(kind Kind) int {
	return len(b.subscribers[kind])
}
