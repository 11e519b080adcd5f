// Package shutdown runs registered cleanup steps once, in reverse order.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sam-segmenter/internal/logger"
)

const DefaultStepTimeout = 10 * time.Second

type step struct {
	name string
	fn   func()
}

type Manager struct {
	steps       []step
	logger      logger.Logger
	stepTimeout time.Duration
	mu          sync.Mutex
	done        chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		logger:      log,
		stepTimeout: DefaultStepTimeout,
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Register adds a cleanup step. Steps run last-registered first.
func (m *Manager) Register(name string, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step{name: name, fn: fn})
}

// Listen calls onSignal once on SIGINT or SIGTERM. The callback decides how
// to stop, usually by quitting the GUI, which in turn calls Shutdown.
func (m *Manager) Listen(onSignal func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			m.logger.Info("ShutdownManager", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			onSignal()
		case <-m.done:
		}
		signal.Stop(sigChan)
	}()
}

func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return
	default:
		close(m.done)
	}

	m.logger.Info("ShutdownManager", "shutdown sequence initiated", map[string]interface{}{
		"steps": len(m.steps),
	})
	m.cancel()

	for i := len(m.steps) - 1; i >= 0; i-- {
		s := m.steps[i]
		start := time.Now()

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			s.fn()
		}()

		select {
		case <-finished:
			m.logger.Debug("ShutdownManager", "step completed", map[string]interface{}{
				"step":        s.name,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		case <-time.After(m.stepTimeout):
			m.logger.Warning("ShutdownManager", "step timeout", map[string]interface{}{
				"step": s.name,
			})
		}
	}

	m.logger.Info("ShutdownManager", "shutdown sequence completed", nil)
}

// Context is cancelled when shutdown begins.
func (m *Manager) Context() context.Context {
	return m.ctx
}

func (m *Manager) Done() <-chan struct{} {
	return m.done
}
