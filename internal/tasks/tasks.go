// Package tasks moves long-running predictor calls off the update loop and
// delivers their completions back onto it.
package tasks

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"sam-segmenter/internal/logger"
)

// Runner executes work somewhere and later invokes complete on the update loop.
type Runner interface {
	Go(name string, work func(ctx context.Context) error, complete func(err error))
}

// Inline runs work and completion immediately on the caller's goroutine.
type Inline struct {
	Ctx context.Context
}

func (r Inline) Go(_ string, work func(ctx context.Context) error, complete func(err error)) {
	ctx := r.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	complete(work(ctx))
}

// Queue runs work on goroutines and buffers completions until Drain.
type Queue struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger logger.Logger

	mu      sync.Mutex
	pending []func()
	wg      sync.WaitGroup
}

func NewQueue(parent context.Context, log logger.Logger) *Queue {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	ctx, cancel := context.WithCancel(parent)
	return &Queue{ctx: ctx, cancel: cancel, logger: log}
}

func (q *Queue) Go(name string, work func(ctx context.Context) error, complete func(err error)) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		start := time.Now()
		err := q.run(name, work)

		q.logger.Debug("TaskQueue", "task finished", map[string]interface{}{
			"task":        name,
			"duration_ms": time.Since(start).Milliseconds(),
			"failed":      err != nil,
		})

		q.mu.Lock()
		q.pending = append(q.pending, func() { complete(err) })
		q.mu.Unlock()
	}()
}

func (q *Queue) run(name string, work func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("TaskQueue", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"task":  name,
				"stack": string(debug.Stack()),
			})
			err = fmt.Errorf("task %s panicked: %v", name, r)
		}
	}()
	return work(q.ctx)
}

// Drain runs the completions that arrived since the last call, in arrival
// order, and reports how many ran. Call it from the update loop only.
func (q *Queue) Drain() int {
	q.mu.Lock()
	ready := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, fn := range ready {
		fn()
	}
	return len(ready)
}

// Close cancels outstanding work and waits for it to return. Completions
// still queued are dropped.
func (q *Queue) Close() {
	q.cancel()
	q.wg.Wait()

	q.mu.Lock()
	dropped := len(q.pending)
	q.pending = nil
	q.mu.Unlock()

	if dropped > 0 {
		q.logger.Warning("TaskQueue", "dropped completions at shutdown", map[string]interface{}{
			"count": dropped,
		})
	}
}
