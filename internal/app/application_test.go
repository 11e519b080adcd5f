package app

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sam-segmenter/internal/config"
	"sam-segmenter/internal/events"
	"sam-segmenter/internal/pipeline"
	"sam-segmenter/internal/predictor/predictortest"
	"sam-segmenter/internal/tasks"
	"sam-segmenter/internal/viewport"
)

type fakeRenderer struct {
	next viewport.TextureID
	live map[viewport.TextureID]bool
}

func (r *fakeRenderer) CreateTexture(*image.RGBA) (viewport.TextureID, error) {
	r.next++
	r.live[r.next] = true
	return r.next, nil
}

func (r *fakeRenderer) UpdateTexture(id viewport.TextureID, _ *image.RGBA) error {
	if !r.live[id] {
		return errors.New("unknown texture")
	}
	return nil
}

func (r *fakeRenderer) DeleteTexture(id viewport.TextureID) {
	delete(r.live, id)
}

type closer struct{ closed bool }

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func testConfig(t *testing.T, mode string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sam2.1_hiera_b+.yaml"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.ConfigDir = dir
	cfg.Mode = mode
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, runner tasks.Runner) (*Application, *predictortest.Loader, *fakeRenderer, *[]events.Notice) {
	t.Helper()
	loader := &predictortest.Loader{FrameCount: 10, FrameWidth: 64, FrameHeight: 48}
	renderer := &fakeRenderer{live: make(map[viewport.TextureID]bool)}
	a, err := New(Options{Config: cfg, Loader: loader, Renderer: renderer, Runner: runner})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	var notices []events.Notice
	events.On(a.World().Bus, func(ev events.Notice) error {
		notices = append(notices, ev)
		return nil
	})
	return a, loader, renderer, &notices
}

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if filepath.Ext(path) == ".png" {
		err = png.Encode(f, img)
	} else {
		err = jpeg.Encode(f, img, nil)
	}
	if err != nil {
		t.Fatal(err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Device = "abacus"
	if _, err := New(Options{Config: cfg, Loader: &predictortest.Loader{}, Renderer: &fakeRenderer{}}); err == nil {
		t.Fatal("New() accepted invalid config")
	}
}

func TestImageScenario(t *testing.T) {
	a, loader, renderer, _ := newTestApp(t, testConfig(t, "image"), tasks.Inline{})
	path := filepath.Join(t.TempDir(), "a.png")
	writeImage(t, path, 400, 300)

	if err := a.Toolbar.ImportImage(path); err != nil {
		t.Fatal(err)
	}
	if err := a.Segmentation.Load(a.World()); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.Viewport.Layout(a.World(), 400); err != nil {
		t.Fatal(err)
	}
	hit, err := a.Viewport.Click(a.World(), 100, 150)
	if err != nil || !hit {
		t.Fatalf("Click() = %v, %v", hit, err)
	}

	vp := a.ViewportState()
	if len(vp.Overlays) != loader.Last.Candidates {
		t.Fatalf("overlays = %d", len(vp.Overlays))
	}
	if rows, cols := vp.Overlays[0].Dims(); rows != 300 || cols != 400 {
		t.Errorf("mask shape (%d,%d)", rows, cols)
	}
	if len(renderer.live) != 1 {
		t.Errorf("live textures = %d", len(renderer.live))
	}

	a.Shutdown()
	if len(renderer.live) != 0 {
		t.Error("texture leaked at shutdown")
	}
	if !loader.Last.Closed {
		t.Error("predictor not closed at shutdown")
	}
}

func TestVideoScenario(t *testing.T) {
	a, loader, _, notices := newTestApp(t, testConfig(t, "video"), tasks.Inline{})
	frames := t.TempDir()
	for i := 0; i < 10; i++ {
		writeImage(t, filepath.Join(frames, filepath.Base(frames)+string(rune('a'+i))+".jpg"), 64, 48)
	}

	if err := a.Toolbar.ImportVideo(frames); err != nil {
		t.Fatal(err)
	}
	if len(*notices) == 0 {
		t.Fatal("no notice for import without predictor")
	}
	if a.SegmentationState().Session != nil {
		t.Fatal("session created without predictor")
	}

	if err := a.Segmentation.Load(a.World()); err != nil {
		t.Fatal(err)
	}
	if err := a.Toolbar.ImportVideo(frames); err != nil {
		t.Fatal(err)
	}
	seg := a.SegmentationState()
	if seg.Session == nil {
		t.Fatal("session not created after load and re-import")
	}

	if _, err := a.Viewport.Click(a.World(), 10, 10); err != nil {
		t.Fatal(err)
	}
	if a.Toolbar.CanExport() {
		t.Fatal("export allowed before tracking")
	}
	if err := a.Segmentation.Track(a.World()); err != nil {
		t.Fatal(err)
	}
	if !seg.Tracked || len(seg.FramePredictions) != 10 {
		t.Fatalf("tracked=%v frames=%d", seg.Tracked, len(seg.FramePredictions))
	}
	if vp := a.ViewportState(); vp.TrackedFrame != 0 || len(vp.Overlays) != 1 {
		t.Errorf("sequencer frame %d overlays %d", vp.TrackedFrame, len(vp.Overlays))
	}

	out := filepath.Join(t.TempDir(), "masks")
	if err := a.Toolbar.Export(out); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 10 || entries[0].Name() != "00000.png" || entries[9].Name() != "00009.png" {
		t.Errorf("exported %d files", len(entries))
	}
	if len(loader.Loads) != 1 {
		t.Errorf("loads = %d", len(loader.Loads))
	}
}

func trackedVideo(t *testing.T) (*Application, *predictortest.Loader) {
	t.Helper()
	a, loader, _, _ := newTestApp(t, testConfig(t, "video"), tasks.Inline{})
	frames := t.TempDir()
	for i := 0; i < 10; i++ {
		writeImage(t, filepath.Join(frames, fmt.Sprintf("%03d.jpg", i)), 64, 48)
	}
	if err := a.Segmentation.Load(a.World()); err != nil {
		t.Fatal(err)
	}
	if err := a.Toolbar.ImportVideo(frames); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Viewport.Click(a.World(), 10, 10); err != nil {
		t.Fatal(err)
	}
	if err := a.Segmentation.Track(a.World()); err != nil {
		t.Fatal(err)
	}
	if !a.Toolbar.CanExport() {
		t.Fatal("export not allowed after tracking")
	}
	return a, loader
}

func TestImageImportAfterTrackingDisablesExport(t *testing.T) {
	a, loader := trackedVideo(t)
	path := filepath.Join(t.TempDir(), "still.png")
	writeImage(t, path, 80, 60)

	if err := a.Toolbar.ImportImage(path); err != nil {
		t.Fatal(err)
	}

	if a.Toolbar.CanExport() {
		t.Error("export still allowed after importing an image")
	}
	if err := a.Toolbar.Export(t.TempDir()); !errors.Is(err, pipeline.ErrNothingToExport) {
		t.Errorf("Export() error = %v, want ErrNothingToExport", err)
	}
	if err := a.Viewport.SelectFrame(a.World(), 1); !errors.Is(err, viewport.ErrNotTracked) {
		t.Errorf("SelectFrame() error = %v, want ErrNotTracked", err)
	}
	if a.SegmentationState().Session != nil || !loader.Last.Sessions[0].Closed {
		t.Error("video session survived the image import")
	}
}

func TestUndecodableFirstFrameStartsNoSession(t *testing.T) {
	a, loader, _, _ := newTestApp(t, testConfig(t, "video"), tasks.Inline{})
	if err := a.Segmentation.Load(a.World()); err != nil {
		t.Fatal(err)
	}
	frames := t.TempDir()
	if err := os.WriteFile(filepath.Join(frames, "000.jpg"), []byte("not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeImage(t, filepath.Join(frames, "001.jpg"), 64, 48)

	if err := a.Toolbar.ImportVideo(frames); err == nil {
		t.Fatal("ImportVideo() accepted an undecodable first frame")
	}
	if a.SegmentationState().Session != nil || len(loader.Last.Sessions) != 0 {
		t.Errorf("session started for a rejected directory (%d sessions)", len(loader.Last.Sessions))
	}
	if a.SegmentationState().Busy {
		t.Error("busy after a rejected import")
	}
}

func TestFrameDrainsBackgroundJobs(t *testing.T) {
	a, loader, _, _ := newTestApp(t, testConfig(t, "image"), nil)
	defer a.Shutdown()

	if err := a.Segmentation.Load(a.World()); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for a.SegmentationState().Predictor == nil {
		if time.Now().After(deadline) {
			t.Fatal("load completion never applied")
		}
		time.Sleep(5 * time.Millisecond)
		a.Frame()
	}
	if a.SegmentationState().Busy {
		t.Error("busy after completion")
	}
	if len(loader.Loads) != 1 {
		t.Errorf("loads = %d", len(loader.Loads))
	}
}

func TestShutdownClosesClientAfterPredictor(t *testing.T) {
	loader := &predictortest.Loader{}
	c := &closer{}
	a, err := New(Options{
		Config:   testConfig(t, "image"),
		Loader:   loader,
		Renderer: &fakeRenderer{live: make(map[viewport.TextureID]bool)},
		Runner:   tasks.Inline{},
		Client:   c,
	})
	if err != nil {
		t.Fatal(err)
	}
	a.Segmentation.Load(a.World())
	a.Shutdown()
	if !c.closed || !loader.Last.Closed {
		t.Errorf("client closed=%v predictor closed=%v", c.closed, loader.Last.Closed)
	}
}
