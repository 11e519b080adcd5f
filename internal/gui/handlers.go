package gui

import (
	"errors"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"sam-segmenter/internal/app"
	"sam-segmenter/internal/pipeline"
	"sam-segmenter/internal/predictor"
	"sam-segmenter/internal/segmentation"
	"sam-segmenter/internal/viewport"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif", ".tif", ".tiff", ".webp"}

func (m *Manager) bindWidgets() {
	world := m.app.World()

	m.display.OnTapped = func(x, y float32) {
		if _, err := m.app.Viewport.Click(world, float64(x), float64(y)); err != nil {
			m.handleActionError("Click", err)
		}
		m.sync()
	}
	m.display.OnResized = func(width float32) {
		if _, _, err := m.app.Viewport.Layout(world, int(width)); err != nil {
			m.logger.Warning("GUIManager", "layout failed", map[string]interface{}{"error": err.Error()})
		}
		m.sync()
	}

	m.toolbar.SetImportImageHandler(m.HandleImportImage)
	m.toolbar.SetImportVideoHandler(m.HandleImportVideo)
	m.toolbar.SetExportHandler(m.HandleExport)

	m.sam.OnModeChanged = func(v string) {
		mode, err := predictor.ParseMode(v)
		if err == nil {
			err = m.app.Segmentation.SetMode(world, mode)
		}
		m.handleActionError("Mode", err)
	}
	m.sam.OnDeviceChanged = func(v string) {
		device, err := predictor.ParseDevice(v)
		if err == nil {
			err = m.app.Segmentation.SetDevice(world, device)
		}
		m.handleActionError("Device", err)
	}
	m.sam.OnConfigSelected = func(index int) {
		m.handleActionError("Configuration", m.app.Segmentation.SelectConfig(world, index))
	}
	m.sam.OnMultimaskChanged = func(enabled bool) {
		m.handleActionError("Configuration", m.app.Segmentation.SetMultimask(world, enabled))
	}
	m.sam.OnRefreshConfigs = func() {
		if err := m.app.Segmentation.RefreshCatalog(world); err != nil {
			m.ShowError("Configuration", err)
		}
		seg := m.app.SegmentationState()
		m.sam.SetConfigs(seg.Catalog, seg.Selected)
	}
	m.sam.OnLoad = m.HandleLoad
	m.sam.OnTrack = m.HandleTrack

	m.overlay.OnMaskSelected = func(index int) {
		if index >= 0 {
			m.handleActionError("Overlay", m.app.Viewport.SetSelectedMask(world, index))
		}
	}
	m.overlay.OnAlphaChanged = func(alpha float64) {
		m.handleActionError("Overlay", m.app.Viewport.SetAlpha(world, alpha))
	}
	m.overlay.OnPickColor = m.HandlePickColor
	m.overlay.OnFrameChanged = func(frame int) {
		m.handleActionError("Sequencer", m.app.Viewport.SelectFrame(world, frame))
	}
}

func (m *Manager) setupMenu() {
	m.export = fyne.NewMenuItem("Export Masks…", m.HandleExport)
	m.export.Disabled = true

	file := fyne.NewMenu("File",
		fyne.NewMenuItem("Import Image…", m.HandleImportImage),
		fyne.NewMenuItem("Import Video…", m.HandleImportVideo),
		fyne.NewMenuItemSeparator(),
		m.export,
		fyne.NewMenuItemSeparator(),
		m.quitItem(),
	)
	predictorMenu := fyne.NewMenu("Predictor",
		fyne.NewMenuItem("Load", m.HandleLoad),
		fyne.NewMenuItem("Track", m.HandleTrack),
	)
	help := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", func() {
			dialog.ShowInformation("About", app.AppName+" "+app.AppVersion, m.window)
		}),
	)
	m.mainMenu = fyne.NewMainMenu(file, predictorMenu, help)
	m.window.SetMainMenu(m.mainMenu)
}

// quitItem routes Quit through OnQuit so the menu stops the app the same way
// the window close button does.
func (m *Manager) quitItem() *fyne.MenuItem {
	item := fyne.NewMenuItem("Quit", func() {
		if m.OnQuit != nil {
			m.OnQuit()
			return
		}
		m.window.Close()
	})
	item.IsQuit = true
	return item
}

func (m *Manager) HandleImportImage() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			m.ShowError("File Open Error", err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		m.status.SetStatus("Loading image...")
		m.handleActionError("Image Import Error", m.app.Toolbar.ImportImage(path))
		m.sync()
	}, m.window)
	d.SetFilter(storage.NewExtensionFileFilter(imageExtensions))
	d.Show()
}

func (m *Manager) HandleImportVideo() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			m.ShowError("Folder Open Error", err)
			return
		}
		if dir == nil {
			return
		}
		m.status.SetStatus("Opening video frames...")
		m.handleActionError("Video Import Error", m.app.Toolbar.ImportVideo(dir.Path()))
		m.sync()
	}, m.window)
}

func (m *Manager) HandleExport() {
	if !m.app.Toolbar.CanExport() {
		m.handleActionError("Export", m.app.Toolbar.Export(""))
		return
	}
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			m.ShowError("Folder Open Error", err)
			return
		}
		if dir == nil {
			return
		}
		m.status.SetStatus("Exporting masks...")
		m.handleActionError("Export Error", m.app.Toolbar.Export(dir.Path()))
		m.status.SetStatus("Ready")
	}, m.window)
}

func (m *Manager) HandleLoad() {
	m.status.SetStatus("Loading predictor...")
	m.handleActionError("Load Error", m.app.Segmentation.Load(m.app.World()))
	m.sync()
}

func (m *Manager) HandleTrack() {
	m.status.SetStatus("Tracking...")
	m.handleActionError("Track Error", m.app.Segmentation.Track(m.app.World()))
	m.sync()
}

func (m *Manager) HandlePickColor() {
	picker := dialog.NewColorPicker("Overlay Color", "Color blended over predicted pixels", func(c color.Color) {
		rgba := color.RGBAModel.Convert(c).(color.RGBA)
		rgba.A = 255
		m.overlay.SetColor(rgba)
		m.handleActionError("Overlay", m.app.Viewport.SetOverlayColor(m.app.World(), rgba))
		m.sync()
	}, m.window)
	picker.Advanced = true
	picker.Show()
}

// handleActionError shows err unless it is a refusal already announced by a notice.
func (m *Manager) handleActionError(title string, err error) {
	if err == nil {
		return
	}
	if segmentation.IsPrecondition(err) || errors.Is(err, pipeline.ErrNothingToExport) || errors.Is(err, viewport.ErrNotTracked) {
		m.logger.Debug("GUIManager", "action refused", map[string]interface{}{
			"action": title,
			"reason": err.Error(),
		})
		return
	}
	m.ShowError(title, err)
}
