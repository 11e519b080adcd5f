// Package toolbar turns user actions into request events.
package toolbar

import (
	"sam-segmenter/internal/ecs"
	"sam-segmenter/internal/events"
	"sam-segmenter/internal/pipeline"
	"sam-segmenter/internal/segmentation"
)

const component = "Toolbar"

// Driver raises import and export requests. It owns no state.
type Driver struct {
	world *ecs.World
}

func New(w *ecs.World) *Driver {
	return &Driver{world: w}
}

func (d *Driver) ImportImage(path string) error {
	return d.publish(events.ImportImageRequested{Path: path}, map[string]interface{}{"path": path})
}

func (d *Driver) ImportVideo(dir string) error {
	return d.publish(events.ImportDirectoryRequested{Path: dir}, map[string]interface{}{"dir": dir})
}

// CanExport reports whether a tracking run left predictions to export.
func (d *Driver) CanExport() bool {
	seg, err := ecs.Get[*segmentation.State](d.world.Registry, d.world.App)
	if err != nil {
		return false
	}
	return seg.CanExport()
}

// Export requests the cached predictions be written to dir. It is refused
// before dispatch unless CanExport holds.
func (d *Driver) Export(dir string) error {
	if !d.CanExport() {
		if err := d.world.Notify(component, events.NoticeWarning, "Track the video before exporting."); err != nil {
			return err
		}
		return pipeline.ErrNothingToExport
	}
	return d.publish(events.ExportRequested{Dir: dir}, map[string]interface{}{"dir": dir})
}

func (d *Driver) publish(ev events.Event, fields map[string]interface{}) error {
	d.world.Logger.Debug(component, "request", map[string]interface{}{"event": ev.Kind().String()})
	if err := d.world.Bus.Publish(ev); err != nil {
		fields["event"] = ev.Kind().String()
		d.world.Logger.Error(component, err, fields)
		return err
	}
	return nil
}
