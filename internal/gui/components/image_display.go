package components

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

const (
	ImageDisplayMinWidth  = 320
	ImageDisplayMinHeight = 240
)

// ImageDisplay draws the viewport texture anchored at its top-left corner and
// reports taps in its own coordinates.
type ImageDisplay struct {
	widget.BaseWidget

	image       *canvas.Image
	displaySize fyne.Size
	lastWidth   float32

	OnTapped  func(x, y float32)
	OnResized func(width float32)
}

func NewImageDisplay() *ImageDisplay {
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleSmooth

	d := &ImageDisplay{image: img}
	d.ExtendBaseWidget(d)
	return d
}

// SetImage shows img at the given display size.
func (d *ImageDisplay) SetImage(img image.Image, width, height int) {
	d.image.Image = img
	d.displaySize = fyne.NewSize(float32(width), float32(height))
	d.image.Resize(d.displaySize)
	d.image.Refresh()
}

func (d *ImageDisplay) Tapped(ev *fyne.PointEvent) {
	if d.OnTapped != nil {
		d.OnTapped(ev.Position.X, ev.Position.Y)
	}
}

func (d *ImageDisplay) CreateRenderer() fyne.WidgetRenderer {
	return &imageDisplayRenderer{display: d}
}

type imageDisplayRenderer struct {
	display *ImageDisplay
}

func (r *imageDisplayRenderer) Layout(size fyne.Size) {
	d := r.display
	d.image.Move(fyne.NewPos(0, 0))
	d.image.Resize(d.displaySize)
	if size.Width != d.lastWidth {
		d.lastWidth = size.Width
		if d.OnResized != nil {
			d.OnResized(size.Width)
		}
	}
}

func (r *imageDisplayRenderer) MinSize() fyne.Size {
	return fyne.NewSize(ImageDisplayMinWidth, ImageDisplayMinHeight)
}

func (r *imageDisplayRenderer) Refresh() {
	canvas.Refresh(r.display.image)
}

func (r *imageDisplayRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.display.image}
}

func (r *imageDisplayRenderer) Destroy() {}
