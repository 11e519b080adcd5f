package components

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// OverlayPanel tunes how predictions are blended over the image and steps
// through tracked frames.
type OverlayPanel struct {
	container *fyne.Container

	maskSelect  *widget.Select
	swatch      *canvas.Rectangle
	colorButton *widget.Button
	alphaSlider *widget.Slider
	alphaLabel  *widget.Label

	sequencer      *fyne.Container
	frameSlider    *widget.Slider
	frameLabel     *widget.Label
	updatingFrames bool

	OnMaskSelected func(index int)
	OnPickColor    func()
	OnAlphaChanged func(alpha float64)
	OnFrameChanged func(frame int)
}

func NewOverlayPanel() *OverlayPanel {
	p := &OverlayPanel{}

	p.maskSelect = widget.NewSelect(nil, func(string) {
		if p.OnMaskSelected != nil {
			p.OnMaskSelected(p.maskSelect.SelectedIndex())
		}
	})
	p.maskSelect.PlaceHolder = "No predictions"
	p.maskSelect.Disable()

	p.swatch = canvas.NewRectangle(color.RGBA{R: 255, A: 255})
	p.swatch.SetMinSize(fyne.NewSize(24, 24))
	p.colorButton = widget.NewButton("Color…", func() {
		if p.OnPickColor != nil {
			p.OnPickColor()
		}
	})

	p.alphaLabel = widget.NewLabel("")
	p.alphaSlider = widget.NewSlider(0, 1)
	p.alphaSlider.Step = 0.05
	p.alphaSlider.OnChanged = func(v float64) {
		p.alphaLabel.SetText(fmt.Sprintf("%.2f", v))
		if p.OnAlphaChanged != nil {
			p.OnAlphaChanged(v)
		}
	}

	p.frameLabel = widget.NewLabel("Frame 0")
	p.frameSlider = widget.NewSlider(0, 1)
	p.frameSlider.Step = 1
	p.frameSlider.OnChanged = func(v float64) {
		frame := int(v)
		p.frameLabel.SetText(fmt.Sprintf("Frame %d", frame))
		if !p.updatingFrames && p.OnFrameChanged != nil {
			p.OnFrameChanged(frame)
		}
	}
	p.sequencer = container.NewVBox(
		widget.NewRichTextFromMarkdown("**Sequencer**"),
		container.NewBorder(nil, nil, nil, p.frameLabel, p.frameSlider),
	)
	p.sequencer.Hide()

	p.container = container.NewVBox(
		widget.NewRichTextFromMarkdown("**Overlay**"),
		widget.NewForm(
			widget.NewFormItem("Prediction", p.maskSelect),
			widget.NewFormItem("Color", container.NewHBox(p.swatch, p.colorButton)),
			widget.NewFormItem("Alpha", container.NewBorder(nil, nil, nil, p.alphaLabel, p.alphaSlider)),
		),
		p.sequencer,
	)
	return p
}

func (p *OverlayPanel) GetContainer() *fyne.Container {
	return p.container
}

func (p *OverlayPanel) SetColor(c color.RGBA) {
	p.swatch.FillColor = c
	p.swatch.Refresh()
}

func (p *OverlayPanel) SetAlpha(alpha float64) {
	onAlpha := p.OnAlphaChanged
	p.OnAlphaChanged = nil
	p.alphaSlider.SetValue(alpha)
	p.alphaLabel.SetText(fmt.Sprintf("%.2f", alpha))
	p.OnAlphaChanged = onAlpha
}

// SetPredictions lists n candidate masks, selecting the first.
func (p *OverlayPanel) SetPredictions(n int) {
	onSelect := p.OnMaskSelected
	p.OnMaskSelected = nil
	defer func() { p.OnMaskSelected = onSelect }()

	if n == 0 {
		p.maskSelect.SetOptions(nil)
		p.maskSelect.ClearSelected()
		p.maskSelect.Disable()
		return
	}
	options := make([]string, n)
	for i := range options {
		options[i] = fmt.Sprintf("Mask %d", i+1)
	}
	p.maskSelect.SetOptions(options)
	p.maskSelect.SetSelectedIndex(0)
	p.maskSelect.Enable()
}

// SetFrames shows the sequencer over [0, count) at frame, or hides it when count is 0.
func (p *OverlayPanel) SetFrames(count, frame int) {
	if count == 0 {
		p.sequencer.Hide()
		return
	}
	p.updatingFrames = true
	p.frameSlider.Max = float64(count - 1)
	if count == 1 {
		p.frameSlider.Max = 1
	}
	p.frameSlider.SetValue(float64(frame))
	p.frameSlider.Refresh()
	p.updatingFrames = false
	p.sequencer.Show()
}
