package pipeline

import (
	"errors"
	"fmt"

	"sam-segmenter/internal/ecs"
	"sam-segmenter/internal/events"
	"sam-segmenter/internal/imaging"
	"sam-segmenter/internal/segmentation"
)

var ErrNothingToExport = errors.New("no tracked predictions to export")

// System handles import and export requests.
type System struct {
	loader *imageLoader
	saver  *maskSaver
}

func NewSystem(decoder imaging.Decoder, frameExtensions []string) *System {
	if decoder == nil {
		decoder = imaging.FileDecoder{}
	}
	return &System{
		loader: &imageLoader{decoder: decoder, extensions: frameExtensions},
		saver:  &maskSaver{},
	}
}

func (s *System) Name() string { return "Pipeline" }

func (s *System) Init(w *ecs.World) error {
	s.loader.logger = w.Logger
	s.saver.logger = w.Logger

	events.On(w.Bus, func(ev events.ImportImageRequested) error {
		img, err := s.loader.LoadImage(ev.Path)
		if err != nil {
			return err
		}
		return w.Bus.Publish(events.ImageImported{Image: img})
	})
	events.On(w.Bus, func(ev events.ImportDirectoryRequested) error {
		if _, err := s.loader.OpenDirectory(ev.Path); err != nil {
			return err
		}
		return w.Bus.Publish(events.DirectoryImported{Path: ev.Path})
	})
	events.On(w.Bus, func(ev events.ExportRequested) error {
		return s.export(w, ev.Dir)
	})
	return nil
}

func (s *System) Update(*ecs.World)   {}
func (s *System) Shutdown(*ecs.World) {}

func (s *System) export(w *ecs.World, dir string) error {
	seg, err := ecs.Get[*segmentation.State](w.Registry, w.App)
	if err != nil {
		return err
	}
	if !seg.CanExport() {
		return ErrNothingToExport
	}
	n, err := s.saver.SaveFrames(dir, seg.FramePredictions)
	if err != nil {
		return err
	}
	return w.Notify("Pipeline", events.NoticeInfo, exportSummary(n, dir))
}

func exportSummary(n int, dir string) string {
	if n == 1 {
		return "Exported 1 mask to " + dir
	}
	return fmt.Sprintf("Exported %d masks to %s", n, dir)
}
