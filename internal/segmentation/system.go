package segmentation

import (
	"context"
	"fmt"
	"time"

	"sam-segmenter/internal/ecs"
	"sam-segmenter/internal/events"
	"sam-segmenter/internal/mask"
	"sam-segmenter/internal/predictor"
	"sam-segmenter/internal/tasks"
)

const component = "SegmentationSystem"

// Settings seeds the State registered by Init.
type Settings struct {
	ConfigDir     string
	CheckpointDir string
	Mode          predictor.Mode
	Device        predictor.Device
	Multimask     bool
}

// System drives the predictor. Predictor calls run through the task runner
// and their results are applied in the completion, on the update loop.
type System struct {
	loader   predictor.Loader
	runner   tasks.Runner
	settings Settings
}

func NewSystem(loader predictor.Loader, runner tasks.Runner, settings Settings) *System {
	return &System{loader: loader, runner: runner, settings: settings}
}

func (s *System) Name() string { return component }

func (s *System) Init(w *ecs.World) error {
	st := &State{
		Mode:             s.settings.Mode,
		Device:           s.settings.Device,
		ConfigDir:        s.settings.ConfigDir,
		CheckpointDir:    s.settings.CheckpointDir,
		Multimask:        s.settings.Multimask,
		FramePredictions: make(map[int]*mask.Mask),
	}
	if err := ecs.Register(w.Registry, w.App, st); err != nil {
		return err
	}
	if err := s.RefreshCatalog(w); err != nil {
		// An empty catalog is recoverable from the GUI once the directory exists.
		w.Logger.Warning(component, "configuration catalog unavailable", map[string]interface{}{
			"config_dir": st.ConfigDir,
			"error":      err.Error(),
		})
	}

	events.On(w.Bus, func(ev events.ViewportClicked) error { return s.clickPrompt(w, ev) })
	events.On(w.Bus, func(ev events.DirectoryImported) error { return s.directoryImported(w, ev) })
	events.On(w.Bus, func(events.ImageImported) error { return s.imageImported(w) })
	return nil
}

func (s *System) Update(*ecs.World) {}

// Shutdown releases the session before the predictor that owns it.
func (s *System) Shutdown(w *ecs.World) {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return
	}
	if st.retired != nil {
		_ = st.retired.Close()
		st.retired = nil
	}
	s.closeSession(w, st)
	s.closePredictor(w, st)
}

// RefreshCatalog rescans the configuration directory and selects the default entry.
func (s *System) RefreshCatalog(w *ecs.World) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	configs, err := predictor.DiscoverConfigs(st.ConfigDir)
	if err != nil {
		return err
	}
	st.Catalog = configs
	st.Selected = predictor.DefaultConfigIndex(configs)
	w.Logger.Debug(component, "configuration catalog", map[string]interface{}{
		"configs":  len(configs),
		"selected": st.Selected,
	})
	return nil
}

// SelectConfig changes the configuration used by the next Load.
func (s *System) SelectConfig(w *ecs.World, index int) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(st.Catalog) {
		return fmt.Errorf("%w: index %d of %d", ErrUnknownConfig, index, len(st.Catalog))
	}
	st.Selected = index
	return nil
}

// SetMode and SetDevice take effect on the next Load.
func (s *System) SetMode(w *ecs.World, mode predictor.Mode) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	st.Mode = mode
	return nil
}

func (s *System) SetDevice(w *ecs.World, device predictor.Device) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	st.Device = device
	return nil
}

func (s *System) SetMultimask(w *ecs.World, enabled bool) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	st.Multimask = enabled
	return nil
}

// Load discards the current predictor and builds a new one from the selected
// configuration. A failed load leaves no predictor and keeps the selection.
func (s *System) Load(w *ecs.World) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	if st.Busy {
		return s.refuse(w, ErrBusy, "Wait for the running predictor operation to finish.")
	}
	spec, err := st.LoadSpec()
	if err != nil {
		w.Logger.Error(component, err, map[string]interface{}{"selected": st.Selected})
		return err
	}

	s.closeSession(w, st)
	s.closePredictor(w, st)

	st.Busy = true
	start := time.Now()
	w.Logger.Info(component, "loading predictor", map[string]interface{}{
		"config":     spec.Config,
		"checkpoint": spec.Checkpoint,
		"device":     spec.Device.String(),
		"mode":       spec.Mode.String(),
	})

	var loaded predictor.Predictor
	s.runner.Go("load", func(ctx context.Context) error {
		p, err := s.loader.Load(ctx, spec)
		loaded = p
		return err
	}, func(err error) {
		st, getErr := ecs.Get[*State](w.Registry, w.App)
		if getErr != nil {
			return
		}
		st.Busy = false
		if err != nil {
			w.Logger.Error(component, err, map[string]interface{}{"config": spec.Config})
			s.notify(w, events.NoticeError, fmt.Sprintf("Failed to load %s: %v", spec.Config, err))
			return
		}
		st.Predictor = loaded
		w.Logger.Info(component, "predictor loaded", map[string]interface{}{
			"config":      spec.Config,
			"mode":        spec.Mode.String(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		s.notify(w, events.NoticeInfo, fmt.Sprintf("Loaded %s (%s, %s)", spec.Config, spec.Mode, spec.Device))
	})
	return nil
}

// Track propagates the prompted object through the whole video. Results are
// collected off-loop and committed together when the stream is exhausted.
func (s *System) Track(w *ecs.World) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	if st.Busy {
		return s.refuse(w, ErrBusy, "Wait for the running predictor operation to finish.")
	}
	if st.Predictor == nil {
		return s.refuse(w, ErrNoPredictor, "Load the predictor in video mode before tracking.")
	}
	if st.Session == nil {
		return s.refuse(w, ErrNoSession, "Import a video and click the object before tracking.")
	}

	session := st.Session
	source := st.source
	wasTracked := st.Tracked
	st.Busy = true
	st.Tracking = true
	st.Tracked = false
	start := time.Now()
	w.Logger.Info(component, "tracking started", nil)

	collected := make(map[int]*mask.Mask)
	s.runner.Go("track", func(ctx context.Context) error {
		return session.Propagate(ctx, func(frame int, logits *mask.Mask) error {
			collected[frame] = logits
			return nil
		})
	}, func(err error) {
		st, getErr := ecs.Get[*State](w.Registry, w.App)
		if getErr != nil {
			return
		}
		st.Tracking = false
		if !s.settle(w, st, source, "track") {
			return
		}
		if err != nil {
			st.Tracked = wasTracked
			w.Logger.Error(component, err, map[string]interface{}{"frames_received": len(collected)})
			s.notify(w, events.NoticeError, fmt.Sprintf("Tracking failed: %v", err))
			return
		}

		st.FramePredictions = collected
		st.Tracked = true
		w.Logger.Info(component, "tracking finished", map[string]interface{}{
			"frames":      len(collected),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		s.publish(w, events.VideoPredicted{})
	})
	return nil
}

func (s *System) clickPrompt(w *ecs.World, ev events.ViewportClicked) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	if st.Predictor == nil {
		s.refuse(w, ErrNoPredictor, "Load the predictor before clicking.")
		return nil
	}
	if st.Busy {
		s.refuse(w, ErrBusy, "Wait for the running predictor operation to finish.")
		return nil
	}
	loaded := st.Predictor.Mode()
	if loaded != st.Mode {
		s.notify(w, events.NoticeWarning, fmt.Sprintf("The predictor was loaded in %s mode. Press Load to switch to %s mode.", loaded, st.Mode))
		return nil
	}

	pt := predictor.Point{X: ev.X, Y: ev.Y}
	switch loaded {
	case predictor.ImageMode:
		if ev.Image == nil {
			s.notify(w, events.NoticeWarning, "Import an image before clicking.")
			return nil
		}
		s.predictImage(w, st, ev, pt)
	case predictor.VideoMode:
		if st.Session == nil {
			s.refuse(w, ErrNoSession, "Import a video after loading the predictor.")
			return nil
		}
		s.promptVideo(w, st, pt)
	}
	return nil
}

func (s *System) predictImage(w *ecs.World, st *State, ev events.ViewportClicked, pt predictor.Point) {
	p := st.Predictor
	opts := predictor.Options{Multimask: st.Multimask}
	source := st.source
	st.Busy = true
	start := time.Now()

	var masks []*mask.Mask
	s.runner.Go("predict_point", func(ctx context.Context) error {
		out, err := p.PredictPoint(ctx, ev.Image, pt, opts)
		masks = out
		return err
	}, func(err error) {
		st, getErr := ecs.Get[*State](w.Registry, w.App)
		if getErr != nil {
			return
		}
		if !s.settle(w, st, source, "predict_point") {
			return
		}
		if err != nil {
			w.Logger.Error(component, err, map[string]interface{}{"x": pt.X, "y": pt.Y})
			s.notify(w, events.NoticeError, fmt.Sprintf("Prediction failed: %v", err))
			return
		}
		w.Logger.Debug(component, "image prediction", map[string]interface{}{
			"x":           pt.X,
			"y":           pt.Y,
			"masks":       len(masks),
			"coverage":    coverages(masks),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		s.publish(w, events.MaskPredicted{Masks: masks, IsLogits: false})
	})
}

// promptVideo always prompts frame 0, whichever frame is on screen.
func (s *System) promptVideo(w *ecs.World, st *State, pt predictor.Point) {
	session := st.Session
	source := st.source
	st.Busy = true

	var logits *mask.Mask
	s.runner.Go("add_point", func(ctx context.Context) error {
		m, err := session.AddPoint(ctx, 0, pt)
		logits = m
		return err
	}, func(err error) {
		st, getErr := ecs.Get[*State](w.Registry, w.App)
		if getErr != nil {
			return
		}
		if !s.settle(w, st, source, "add_point") {
			return
		}
		if err != nil {
			w.Logger.Error(component, err, map[string]interface{}{"x": pt.X, "y": pt.Y, "frame": 0})
			s.notify(w, events.NoticeError, fmt.Sprintf("Prompt failed: %v", err))
			return
		}
		s.publish(w, events.MaskPredicted{Masks: []*mask.Mask{logits}, IsLogits: true})
	})
}

func (s *System) directoryImported(w *ecs.World, ev events.DirectoryImported) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	if st.Predictor == nil {
		s.refuse(w, ErrNoPredictor, "Load the predictor in video mode, then import the video again.")
		return nil
	}
	if st.Predictor.Mode() != predictor.VideoMode {
		s.notify(w, events.NoticeWarning, "The predictor is in image mode. Switch to video mode, press Load, then import the video again.")
		return nil
	}
	if st.Busy {
		s.refuse(w, ErrBusy, "Wait for the running predictor operation to finish, then import the video again.")
		return nil
	}

	p := st.Predictor
	st.source++
	source := st.source
	st.Busy = true
	start := time.Now()

	var session predictor.Session
	s.runner.Go("init_session", func(ctx context.Context) error {
		sess, err := p.InitVideoSession(ctx, ev.Path)
		session = sess
		return err
	}, func(err error) {
		st, getErr := ecs.Get[*State](w.Registry, w.App)
		if getErr != nil {
			return
		}
		if !s.settle(w, st, source, "init_session") {
			if session != nil {
				if err := session.Close(); err != nil {
					w.Logger.Warning(component, "session close failed", map[string]interface{}{"error": err.Error()})
				}
			}
			return
		}
		if err != nil {
			w.Logger.Error(component, err, map[string]interface{}{"dir": ev.Path})
			s.notify(w, events.NoticeError, fmt.Sprintf("Could not start a video session: %v", err))
			return
		}
		s.closeSession(w, st)
		st.Session = session
		st.FramePredictions = make(map[int]*mask.Mask)
		st.Tracked = false
		w.Logger.Info(component, "video session ready", map[string]interface{}{
			"dir":         ev.Path,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
	return nil
}

// imageImported drops everything tied to the previous video. A session still
// held by a running job is closed when that job completes.
func (s *System) imageImported(w *ecs.World) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	st.source++
	st.FramePredictions = make(map[int]*mask.Mask)
	st.Tracked = false
	if st.Busy {
		st.retired = st.Session
		st.Session = nil
	} else {
		s.closeSession(w, st)
	}
	w.Logger.Debug(component, "video state cleared for image import", nil)
	return nil
}

// settle ends a job on the loop. It reports false when an import happened
// while the job ran, in which case the result must be dropped.
func (s *System) settle(w *ecs.World, st *State, source uint64, job string) bool {
	st.Busy = false
	if st.retired != nil {
		if err := st.retired.Close(); err != nil {
			w.Logger.Warning(component, "session close failed", map[string]interface{}{"error": err.Error()})
		}
		st.retired = nil
	}
	if st.source != source {
		w.Logger.Info(component, "discarding result for a replaced source", map[string]interface{}{"job": job})
		return false
	}
	return true
}

func (s *System) closeSession(w *ecs.World, st *State) {
	if st.Session == nil {
		return
	}
	if err := st.Session.Close(); err != nil {
		w.Logger.Warning(component, "session close failed", map[string]interface{}{"error": err.Error()})
	}
	st.Session = nil
}

func (s *System) closePredictor(w *ecs.World, st *State) {
	if st.Predictor == nil {
		return
	}
	if err := st.Predictor.Close(); err != nil {
		w.Logger.Warning(component, "predictor close failed", map[string]interface{}{"error": err.Error()})
	}
	st.Predictor = nil
}

// refuse announces a precondition violation and returns it for direct callers.
func (s *System) refuse(w *ecs.World, cause error, hint string) error {
	s.notify(w, events.NoticeWarning, fmt.Sprintf("%s. %s", capitalize(cause.Error()), hint))
	return cause
}

func (s *System) notify(w *ecs.World, level events.NoticeLevel, message string) {
	if err := w.Notify(component, level, message); err != nil {
		w.Logger.Error(component, err, map[string]interface{}{"notice": message})
	}
}

// publish is used from completions, which have no caller to return to.
func (s *System) publish(w *ecs.World, ev events.Event) {
	if err := w.Bus.Publish(ev); err != nil {
		w.Logger.Error(component, err, map[string]interface{}{"event": ev.Kind().String()})
		s.notify(w, events.NoticeError, err.Error())
	}
}

func coverages(masks []*mask.Mask) []float64 {
	out := make([]float64, len(masks))
	for i, m := range masks {
		out[i] = m.Coverage()
	}
	return out
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
