package toolbar

import (
	"errors"
	"testing"

	"sam-segmenter/internal/ecs"
	"sam-segmenter/internal/events"
	"sam-segmenter/internal/mask"
	"sam-segmenter/internal/pipeline"
	"sam-segmenter/internal/segmentation"
)

func setup(t *testing.T) (*Driver, *segmentation.State, *[]events.Event) {
	t.Helper()
	w := ecs.NewWorld(nil)
	seg := &segmentation.State{FramePredictions: make(map[int]*mask.Mask)}
	if err := ecs.Register(w.Registry, w.App, seg); err != nil {
		t.Fatal(err)
	}
	var seen []events.Event
	record := func(ev events.Event) error {
		seen = append(seen, ev)
		return nil
	}
	for _, k := range []events.Kind{events.KindImportImageRequested, events.KindImportDirectoryRequested, events.KindExportRequested, events.KindNotice} {
		w.Bus.Subscribe(k, record)
	}
	return New(w), seg, &seen
}

func TestImportRequests(t *testing.T) {
	d, _, seen := setup(t)
	if err := d.ImportImage("/tmp/a.png"); err != nil {
		t.Fatal(err)
	}
	if err := d.ImportVideo("/tmp/frames"); err != nil {
		t.Fatal(err)
	}
	if len(*seen) != 2 {
		t.Fatalf("events = %v", *seen)
	}
	if ev, ok := (*seen)[0].(events.ImportImageRequested); !ok || ev.Path != "/tmp/a.png" {
		t.Errorf("first event = %#v", (*seen)[0])
	}
	if ev, ok := (*seen)[1].(events.ImportDirectoryRequested); !ok || ev.Path != "/tmp/frames" {
		t.Errorf("second event = %#v", (*seen)[1])
	}
}

func TestExportGuardedBeforeDispatch(t *testing.T) {
	d, seg, seen := setup(t)

	if d.CanExport() {
		t.Fatal("CanExport() before tracking")
	}
	if err := d.Export("/tmp/out"); !errors.Is(err, pipeline.ErrNothingToExport) {
		t.Fatalf("Export() error = %v", err)
	}
	if len(*seen) != 1 || (*seen)[0].Kind() != events.KindNotice {
		t.Fatalf("events = %v", *seen)
	}

	seg.Tracked = true
	seg.FramePredictions[0], _ = mask.New(1, 1, []float64{1}, true)
	if !d.CanExport() {
		t.Fatal("CanExport() = false with predictions")
	}
	if err := d.Export("/tmp/out"); err != nil {
		t.Fatal(err)
	}
	last := (*seen)[len(*seen)-1]
	if ev, ok := last.(events.ExportRequested); !ok || ev.Dir != "/tmp/out" {
		t.Errorf("last event = %#v", last)
	}
}

func TestPublishErrorReturned(t *testing.T) {
	d, _, _ := setup(t)
	boom := errors.New("decode failed")
	d.world.Bus.Subscribe(events.KindImportImageRequested, func(events.Event) error { return boom })

	if err := d.ImportImage("/tmp/a.png"); !errors.Is(err, boom) {
		t.Fatalf("ImportImage() error = %v", err)
	}
}
