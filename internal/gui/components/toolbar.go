package components

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Toolbar carries the import and export actions.
type Toolbar struct {
	container         *fyne.Container
	ImportImageButton *widget.Button
	ImportVideoButton *widget.Button
	ExportButton      *widget.Button

	importImageHandler func()
	importVideoHandler func()
	exportHandler      func()
}

func NewToolbar() *Toolbar {
	t := &Toolbar{}
	t.setupToolbar()
	return t
}

func (t *Toolbar) setupToolbar() {
	background := canvas.NewRectangle(color.RGBA{R: 250, G: 249, B: 245, A: 255})
	border := canvas.NewRectangle(color.Transparent)
	border.StrokeWidth = 1.0
	border.StrokeColor = color.RGBA{R: 231, G: 231, B: 231, A: 255}

	t.ImportImageButton = widget.NewButton("Import Image", t.onImportImage)
	t.ImportImageButton.Importance = widget.HighImportance
	t.ImportVideoButton = widget.NewButton("Import Video", t.onImportVideo)
	t.ImportVideoButton.Importance = widget.HighImportance
	t.ExportButton = widget.NewButton("Export Masks", t.onExport)
	t.ExportButton.Disable()

	content := container.NewHBox(
		t.ImportImageButton,
		t.ImportVideoButton,
		widget.NewSeparator(),
		t.ExportButton,
	)

	t.container = container.NewStack(
		border,
		container.NewPadded(
			container.NewStack(background, container.NewPadded(content)),
		),
	)
}

func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}

func (t *Toolbar) SetImportImageHandler(handler func()) {
	t.importImageHandler = handler
}

func (t *Toolbar) SetImportVideoHandler(handler func()) {
	t.importVideoHandler = handler
}

func (t *Toolbar) SetExportHandler(handler func()) {
	t.exportHandler = handler
}

// SetExportEnabled mirrors the export guard.
func (t *Toolbar) SetExportEnabled(enabled bool) {
	if enabled == !t.ExportButton.Disabled() {
		return
	}
	if enabled {
		t.ExportButton.Enable()
	} else {
		t.ExportButton.Disable()
	}
}

func (t *Toolbar) onImportImage() {
	if t.importImageHandler != nil {
		t.importImageHandler()
	}
}

func (t *Toolbar) onImportVideo() {
	if t.importVideoHandler != nil {
		t.importVideoHandler()
	}
}

func (t *Toolbar) onExport() {
	if t.exportHandler != nil {
		t.exportHandler()
	}
}
