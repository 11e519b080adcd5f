package viewport

import (
	"fmt"
	"image"
	"image/color"

	"sam-segmenter/internal/ecs"
	"sam-segmenter/internal/events"
	"sam-segmenter/internal/imaging"
	"sam-segmenter/internal/segmentation"
)

const component = "ViewportSystem"

var markerColor = color.RGBA{R: 255, A: 255}

type Settings struct {
	DisplayWidth    int
	OverlayColor    color.RGBA
	Alpha           float64
	MarkerRadius    int
	FrameExtensions []string
}

// System keeps ViewportState and the display texture in step with the
// imported media and the latest predictions.
type System struct {
	renderer Renderer
	decoder  imaging.Decoder
	settings Settings
}

func NewSystem(renderer Renderer, decoder imaging.Decoder, settings Settings) *System {
	if decoder == nil {
		decoder = imaging.FileDecoder{}
	}
	return &System{renderer: renderer, decoder: decoder, settings: settings}
}

func (s *System) Name() string { return component }

func (s *System) Init(w *ecs.World) error {
	st := &State{
		DisplayWidth: s.settings.DisplayWidth,
		OverlayColor: s.settings.OverlayColor,
		Alpha:        s.settings.Alpha,
		MarkerRadius: s.settings.MarkerRadius,
	}
	if err := ecs.Register(w.Registry, w.App, st); err != nil {
		return err
	}

	events.On(w.Bus, func(ev events.ImageImported) error { return s.imageImported(w, ev) })
	events.On(w.Bus, func(ev events.DirectoryImported) error { return s.directoryImported(w, ev) })
	events.On(w.Bus, func(ev events.MaskPredicted) error { return s.maskPredicted(w, ev) })
	events.On(w.Bus, func(ev events.FramePredicted) error { return s.framePredicted(w, ev) })
	events.On(w.Bus, func(events.VideoPredicted) error { return s.SelectFrame(w, 0) })
	return nil
}

// Update recomputes the click mapping for the current display width.
func (s *System) Update(w *ecs.World) {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return
	}
	st.relayout()
}

func (s *System) Shutdown(w *ecs.World) {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return
	}
	s.deleteTexture(st)
}

// Layout records the width available to the image and derives its height.
func (s *System) Layout(w *ecs.World, width int) (int, int, error) {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return 0, 0, err
	}
	st.DisplayWidth = width
	st.relayout()
	return st.DisplayWidth, st.DisplayHeight, nil
}

// Click converts a display-space click and raises ViewportClicked. It
// reports false when the click missed the image.
func (s *System) Click(w *ecs.World, sx, sy float64) (bool, error) {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return false, err
	}
	st.relayout()
	pt, ok := st.ToImage(sx, sy)
	if !ok {
		return false, nil
	}

	w.Logger.Debug(component, "click", map[string]interface{}{
		"screen_x": sx,
		"screen_y": sy,
		"image_x":  pt.X,
		"image_y":  pt.Y,
		"scale":    st.Scale,
	})

	// The marker belongs to the prompt image, so leave any tracked frame view.
	st.FrameImage = nil
	st.Marker = &pt
	if err := s.refresh(st); err != nil {
		return true, err
	}
	return true, w.Bus.Publish(events.ViewportClicked{X: pt.X, Y: pt.Y, Image: st.CurrentImage})
}

// SetSelectedMask chooses which candidate overlay is shown.
func (s *System) SetSelectedMask(w *ecs.World, index int) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(st.Overlays) {
		return fmt.Errorf("mask index %d of %d: %w", index, len(st.Overlays), ErrFrameOutOfRange)
	}
	st.Selected = index
	return s.refresh(st)
}

func (s *System) SetOverlayColor(w *ecs.World, c color.RGBA) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	st.OverlayColor = c
	return s.refresh(st)
}

func (s *System) SetAlpha(w *ecs.World, alpha float64) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	switch {
	case alpha < 0:
		alpha = 0
	case alpha > 1:
		alpha = 1
	}
	st.Alpha = alpha
	return s.refresh(st)
}

// SelectFrame shows the cached prediction for frame, clamped to the tracked range.
func (s *System) SelectFrame(w *ecs.World, frame int) error {
	seg, err := ecs.Get[*segmentation.State](w.Registry, w.App)
	if err != nil {
		return err
	}
	if !seg.Tracked || seg.FrameCount() == 0 {
		return ErrNotTracked
	}

	n := seg.FrameCount()
	switch {
	case frame < 0:
		frame = 0
	case frame >= n:
		frame = n - 1
	}
	logits, ok := seg.FramePredictions[frame]
	if !ok {
		return fmt.Errorf("frame %d: %w", frame, ErrFrameOutOfRange)
	}
	return w.Bus.Publish(events.FramePredicted{Mask: logits, Frame: frame})
}

func (s *System) imageImported(w *ecs.World, ev events.ImageImported) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	s.show(st, ev.Image)
	st.FrameDir = ""
	st.FramePaths = nil
	w.Logger.Info(component, "image shown", map[string]interface{}{
		"width":  ev.Image.Bounds().Dx(),
		"height": ev.Image.Bounds().Dy(),
	})
	return s.refresh(st)
}

func (s *System) directoryImported(w *ecs.World, ev events.DirectoryImported) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	paths, err := imaging.ListFrames(ev.Path, s.settings.FrameExtensions)
	if err != nil {
		return err
	}
	first, err := s.decoder.Decode(paths[0])
	if err != nil {
		return fmt.Errorf("decode first frame: %w", err)
	}

	s.show(st, first)
	st.FrameDir = ev.Path
	st.FramePaths = paths
	w.Logger.Info(component, "video shown", map[string]interface{}{
		"dir":    ev.Path,
		"frames": len(paths),
	})
	return s.refresh(st)
}

func (s *System) maskPredicted(w *ecs.World, ev events.MaskPredicted) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	st.Overlays = ev.Masks
	st.Selected = 0
	st.FrameImage = nil
	return s.refresh(st)
}

func (s *System) framePredicted(w *ecs.World, ev events.FramePredicted) error {
	st, err := ecs.Get[*State](w.Registry, w.App)
	if err != nil {
		return err
	}
	if ev.Frame < 0 || ev.Frame >= len(st.FramePaths) {
		return fmt.Errorf("frame %d of %d: %w", ev.Frame, len(st.FramePaths), ErrFrameOutOfRange)
	}

	img := st.CurrentImage
	if ev.Frame > 0 {
		img, err = s.decoder.Decode(st.FramePaths[ev.Frame])
		if err != nil {
			return fmt.Errorf("decode frame %d: %w", ev.Frame, err)
		}
	}

	st.FrameImage = img
	st.Overlays = nil
	if ev.Mask != nil {
		st.Overlays = append(st.Overlays, ev.Mask)
	}
	st.Selected = 0
	st.TrackedFrame = ev.Frame
	st.Marker = nil
	return s.refresh(st)
}

// show replaces the current image and resets everything derived from it.
func (s *System) show(st *State, img *image.RGBA) {
	st.CurrentImage = img
	st.FrameImage = nil
	st.Overlays = nil
	st.Selected = 0
	st.Marker = nil
	st.TrackedFrame = 0
	st.relayout()
}

// refresh recomposites the display buffer and pushes it to the texture.
func (s *System) refresh(st *State) error {
	base := st.base()
	if base == nil {
		return nil
	}

	out := base
	if m := st.SelectedMask(); m != nil {
		blended, err := imaging.Overlay(base, m, st.OverlayColor, st.Alpha)
		if err != nil {
			return err
		}
		out = blended
	}
	if st.Marker != nil && st.FrameImage == nil {
		out = imaging.DrawMarker(out, st.Marker.X, st.Marker.Y, st.MarkerRadius, markerColor)
	}
	st.DisplayImage = out
	return s.syncTexture(st)
}

func (s *System) syncTexture(st *State) error {
	size := st.DisplayImage.Bounds().Size()
	if st.Texture != NoTexture && size == st.textureSize {
		return s.renderer.UpdateTexture(st.Texture, st.DisplayImage)
	}

	s.deleteTexture(st)
	id, err := s.renderer.CreateTexture(st.DisplayImage)
	if err != nil {
		return fmt.Errorf("create texture: %w", err)
	}
	st.Texture = id
	st.textureSize = size
	return nil
}

func (s *System) deleteTexture(st *State) {
	if st.Texture == NoTexture {
		return
	}
	s.renderer.DeleteTexture(st.Texture)
	st.Texture = NoTexture
	st.textureSize = image.Point{}
}
