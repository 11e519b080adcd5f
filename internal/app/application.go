// Package app wires the systems into one application and drives the
// per-frame update loop.
package app

import (
	"context"
	"fmt"
	"io"

	"sam-segmenter/internal/config"
	"sam-segmenter/internal/ecs"
	"sam-segmenter/internal/imaging"
	"sam-segmenter/internal/logger"
	"sam-segmenter/internal/pipeline"
	"sam-segmenter/internal/predictor"
	"sam-segmenter/internal/segmentation"
	"sam-segmenter/internal/shutdown"
	"sam-segmenter/internal/tasks"
	"sam-segmenter/internal/toolbar"
	"sam-segmenter/internal/viewport"
)

const (
	AppName    = "SAM Segmenter"
	AppID      = "io.github.sam-segmenter"
	AppVersion = "1.0.0"

	DefaultDisplayWidth = 640
)

type Options struct {
	Config   *config.Config
	Logger   logger.Logger
	Loader   predictor.Loader
	Renderer viewport.Renderer
	Decoder  imaging.Decoder
	// Runner defaults to a background queue drained by Frame.
	Runner tasks.Runner
	// Client is closed after the predictor and session are released.
	Client io.Closer
}

type Application struct {
	world    *ecs.World
	systems  []ecs.System
	queue    *tasks.Queue
	shutdown *shutdown.Manager
	logger   logger.Logger

	Segmentation *segmentation.System
	Viewport     *viewport.System
	Pipeline     *pipeline.System
	Toolbar      *toolbar.Driver
}

func New(opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.Loader == nil || opts.Renderer == nil {
		return nil, fmt.Errorf("a predictor loader and a renderer are required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.NoOpLogger{}
	}

	a := &Application{
		world:    ecs.NewWorld(log),
		shutdown: shutdown.NewManager(log),
		logger:   log,
	}

	runner := opts.Runner
	if runner == nil {
		a.queue = tasks.NewQueue(a.shutdown.Context(), log)
		runner = a.queue
	}

	a.Pipeline = pipeline.NewSystem(opts.Decoder, cfg.FrameExtensions)
	a.Segmentation = segmentation.NewSystem(opts.Loader, runner, segmentation.Settings{
		ConfigDir:     cfg.ConfigDir,
		CheckpointDir: cfg.CheckpointDir,
		Mode:          cfg.PredictorMode(),
		Device:        cfg.PredictorDevice(),
		Multimask:     cfg.MultimaskOutput,
	})
	a.Viewport = viewport.NewSystem(opts.Renderer, opts.Decoder, viewport.Settings{
		DisplayWidth:    DefaultDisplayWidth,
		OverlayColor:    cfg.Overlay(),
		Alpha:           cfg.OverlayAlpha,
		MarkerRadius:    cfg.MarkerRadius,
		FrameExtensions: cfg.FrameExtensions,
	})

	// The viewport subscribes before segmentation: a directory whose first
	// frame cannot be decoded aborts the publish before a session is started.
	a.systems = []ecs.System{a.Pipeline, a.Viewport, a.Segmentation}
	for _, sys := range a.systems {
		if err := sys.Init(a.world); err != nil {
			return nil, fmt.Errorf("init %s: %w", sys.Name(), err)
		}
		log.Debug("Application", "system initialized", map[string]interface{}{"system": sys.Name()})
	}
	a.Toolbar = toolbar.New(a.world)

	a.registerShutdown(opts.Client)

	log.Info("Application", "initialization complete", map[string]interface{}{
		"version": AppVersion,
		"mode":    cfg.Mode,
		"device":  cfg.Device,
		"systems": len(a.systems),
	})
	return a, nil
}

// Frame runs one update pass: finished predictor jobs are applied, then every
// system updates. Call it from the UI goroutine only.
func (a *Application) Frame() {
	if a.queue != nil {
		a.queue.Drain()
	}
	for _, sys := range a.systems {
		sys.Update(a.world)
	}
}

func (a *Application) World() *ecs.World {
	return a.world
}

func (a *Application) Context() context.Context {
	return a.shutdown.Context()
}

// SegmentationState and ViewportState are fresh registry lookups.
func (a *Application) SegmentationState() *segmentation.State {
	st, _ := ecs.Get[*segmentation.State](a.world.Registry, a.world.App)
	return st
}

func (a *Application) ViewportState() *viewport.State {
	st, _ := ecs.Get[*viewport.State](a.world.Registry, a.world.App)
	return st
}
