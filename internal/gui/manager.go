// Package gui renders the application with fyne and feeds user input back
// into the systems.
package gui

import (
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"

	"sam-segmenter/internal/app"
	"sam-segmenter/internal/config"
	"sam-segmenter/internal/events"
	"sam-segmenter/internal/gui/components"
	"sam-segmenter/internal/gui/texture"
	"sam-segmenter/internal/logger"
	"sam-segmenter/internal/predictor"
	"sam-segmenter/internal/viewport"
)

const SidePanelWidth = 320

type Manager struct {
	window   fyne.Window
	app      *app.Application
	textures *texture.Store
	cfg      *config.Config
	logger   logger.Logger

	display  *components.ImageDisplay
	toolbar  *components.Toolbar
	sam      *components.SAMPanel
	overlay  *components.OverlayPanel
	status   *components.StatusBar
	mainMenu *fyne.MainMenu
	export   *fyne.MenuItem

	lastRevision uint64
	lastTexture  viewport.TextureID
	lastSize     fyne.Size

	// OnQuit runs for File > Quit.
	OnQuit func()

	stop       chan struct{}
	isShutdown bool
}

func NewManager(window fyne.Window, application *app.Application, textures *texture.Store, cfg *config.Config, log logger.Logger) *Manager {
	m := &Manager{
		window:   window,
		app:      application,
		textures: textures,
		cfg:      cfg,
		logger:   log,
		display:  components.NewImageDisplay(),
		toolbar:  components.NewToolbar(),
		sam:      components.NewSAMPanel(),
		overlay:  components.NewOverlayPanel(),
		status:   components.NewStatusBar(),
		stop:     make(chan struct{}),
	}

	m.bindWidgets()
	m.subscribe()
	m.setupMenu()
	m.seedWidgets()

	log.Info("GUIManager", "initialized", map[string]interface{}{
		"side_panel_width": SidePanelWidth,
	})
	return m
}

func (m *Manager) GetMainContainer() fyne.CanvasObject {
	side := container.NewVScroll(container.NewVBox(
		m.sam.GetContainer(),
		m.overlay.GetContainer(),
	))
	side.SetMinSize(fyne.NewSize(SidePanelWidth, 0))

	return container.NewBorder(
		m.toolbar.GetContainer(),
		m.status.GetContainer(),
		nil,
		side,
		container.NewScroll(m.display),
	)
}

func (m *Manager) seedWidgets() {
	seg := m.app.SegmentationState()
	mode, device := components.ModeImage, components.DeviceCPU
	if seg.Mode == predictor.VideoMode {
		mode = components.ModeVideo
	}
	if seg.Device == predictor.GPU {
		device = components.DeviceGPU
	}
	m.sam.SetState(mode, device, seg.Multimask)
	m.sam.SetConfigs(seg.Catalog, seg.Selected)

	vp := m.app.ViewportState()
	m.overlay.SetColor(vp.OverlayColor)
	m.overlay.SetAlpha(vp.Alpha)
}

// subscribe listens after the systems so widgets see the updated state.
func (m *Manager) subscribe() {
	bus := m.app.World().Bus

	events.On(bus, func(ev events.Notice) error {
		m.status.SetNotice(ev)
		if ev.Level == events.NoticeError {
			dialog.ShowInformation("Error", ev.Message, m.window)
		}
		return nil
	})
	events.On(bus, func(ev events.ImageImported) error {
		m.overlay.SetPredictions(0)
		m.overlay.SetFrames(0, 0)
		m.status.SetStatus("Image imported")
		return nil
	})
	events.On(bus, func(ev events.DirectoryImported) error {
		m.overlay.SetPredictions(0)
		m.overlay.SetFrames(0, 0)
		m.status.SetStatus("Video imported")
		return nil
	})
	events.On(bus, func(ev events.MaskPredicted) error {
		m.overlay.SetPredictions(len(ev.Masks))
		m.status.SetStatus("Prediction ready")
		return nil
	})
	events.On(bus, func(events.VideoPredicted) error {
		seg := m.app.SegmentationState()
		m.overlay.SetFrames(seg.FrameCount(), 0)
		m.status.SetStatus("Tracking complete")
		return nil
	})
}

// Start drives the update loop on the fyne goroutine at the given period.
func (m *Manager) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fyne.Do(m.frame)
			case <-m.stop:
				return
			}
		}
	}()
	m.logger.Debug("GUIManager", "update loop started", map[string]interface{}{
		"interval_ms": interval.Milliseconds(),
	})
}

func (m *Manager) frame() {
	if m.isShutdown {
		return
	}
	m.app.Frame()
	m.sync()
}

// sync pushes segmentation and viewport state into the widgets.
func (m *Manager) sync() {
	seg := m.app.SegmentationState()
	vp := m.app.ViewportState()
	if seg == nil || vp == nil {
		return
	}

	m.status.SetBusy(seg.Busy)
	m.sam.SetActions(!seg.Busy, !seg.Busy && seg.Session != nil)

	canExport := m.app.Toolbar.CanExport()
	m.toolbar.SetExportEnabled(canExport)
	if m.export.Disabled == canExport {
		m.export.Disabled = !canExport
		m.mainMenu.Refresh()
	}

	size := fyne.NewSize(float32(vp.DisplayWidth), float32(vp.DisplayHeight))
	rev := m.textures.Revision()
	if rev == m.lastRevision && vp.Texture == m.lastTexture && size == m.lastSize {
		return
	}
	m.lastRevision, m.lastTexture, m.lastSize = rev, vp.Texture, size

	if img := m.textures.Image(vp.Texture); img != nil {
		m.display.SetImage(img, vp.DisplayWidth, vp.DisplayHeight)
	}
}

func (m *Manager) ShowError(title string, err error) {
	m.logger.Error("GUIManager", err, map[string]interface{}{
		"title": title,
	})
	dialog.ShowError(err, m.window)
}

func (m *Manager) Shutdown() {
	if m.isShutdown {
		return
	}
	m.isShutdown = true
	close(m.stop)
	m.logger.Info("GUIManager", "shutdown initiated", nil)
}
