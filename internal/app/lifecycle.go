package app

import (
	"io"
)

// registerShutdown orders teardown. Steps run in reverse: pending jobs are
// cancelled, then the session and predictor are released, then the server
// connection, and the display texture last.
func (a *Application) registerShutdown(client io.Closer) {
	a.shutdown.Register("viewport", func() { a.Viewport.Shutdown(a.world) })
	if client != nil {
		a.shutdown.Register("predictor_client", func() {
			if err := client.Close(); err != nil {
				a.logger.Warning("Lifecycle", "predictor client close failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		})
	}
	a.shutdown.Register("segmentation", func() { a.Segmentation.Shutdown(a.world) })
	a.shutdown.Register("pipeline", func() { a.Pipeline.Shutdown(a.world) })
	if a.queue != nil {
		a.shutdown.Register("tasks", a.queue.Close)
	}
}

// Listen forwards SIGINT and SIGTERM to onSignal.
func (a *Application) Listen(onSignal func()) {
	a.shutdown.Listen(onSignal)
}

// Shutdown is idempotent.
func (a *Application) Shutdown() {
	a.shutdown.Shutdown()
	a.world.Registry.Destroy(a.world.App)
}
