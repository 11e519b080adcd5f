package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	ModeImage = "Image"
	ModeVideo = "Video"
	DeviceCPU = "CPU"
	DeviceGPU = "GPU"
)

// SAMPanel selects the predictor configuration and starts Load and Track.
type SAMPanel struct {
	container      *fyne.Container
	modeRadio      *widget.RadioGroup
	deviceRadio    *widget.RadioGroup
	configSelect   *widget.Select
	multimaskCheck *widget.Check
	LoadButton     *widget.Button
	TrackButton    *widget.Button

	OnModeChanged      func(mode string)
	OnDeviceChanged    func(device string)
	OnConfigSelected   func(index int)
	OnMultimaskChanged func(enabled bool)
	OnRefreshConfigs   func()
	OnLoad             func()
	OnTrack            func()
}

func NewSAMPanel() *SAMPanel {
	p := &SAMPanel{}

	p.modeRadio = widget.NewRadioGroup([]string{ModeImage, ModeVideo}, func(v string) {
		if p.OnModeChanged != nil && v != "" {
			p.OnModeChanged(v)
		}
	})
	p.modeRadio.Horizontal = true
	p.modeRadio.Required = true

	p.deviceRadio = widget.NewRadioGroup([]string{DeviceCPU, DeviceGPU}, func(v string) {
		if p.OnDeviceChanged != nil && v != "" {
			p.OnDeviceChanged(v)
		}
	})
	p.deviceRadio.Horizontal = true
	p.deviceRadio.Required = true

	p.configSelect = widget.NewSelect(nil, func(string) {
		if p.OnConfigSelected != nil {
			p.OnConfigSelected(p.configSelect.SelectedIndex())
		}
	})
	p.configSelect.PlaceHolder = "No configurations found"

	p.multimaskCheck = widget.NewCheck("Multiple candidate masks", func(v bool) {
		if p.OnMultimaskChanged != nil {
			p.OnMultimaskChanged(v)
		}
	})

	refresh := widget.NewButton("Rescan", func() {
		if p.OnRefreshConfigs != nil {
			p.OnRefreshConfigs()
		}
	})

	p.LoadButton = widget.NewButton("Load", func() {
		if p.OnLoad != nil {
			p.OnLoad()
		}
	})
	p.LoadButton.Importance = widget.HighImportance
	p.TrackButton = widget.NewButton("Track", func() {
		if p.OnTrack != nil {
			p.OnTrack()
		}
	})
	p.TrackButton.Disable()

	p.container = container.NewVBox(
		widget.NewRichTextFromMarkdown("**Predictor**"),
		widget.NewForm(
			widget.NewFormItem("Mode", p.modeRadio),
			widget.NewFormItem("Device", p.deviceRadio),
			widget.NewFormItem("Config", container.NewBorder(nil, nil, nil, refresh, p.configSelect)),
		),
		p.multimaskCheck,
		container.NewGridWithColumns(2, p.LoadButton, p.TrackButton),
	)
	return p
}

func (p *SAMPanel) GetContainer() *fyne.Container {
	return p.container
}

// SetState seeds the widgets without firing their callbacks.
func (p *SAMPanel) SetState(mode, device string, multimask bool) {
	onMode, onDevice, onMulti := p.OnModeChanged, p.OnDeviceChanged, p.OnMultimaskChanged
	p.OnModeChanged, p.OnDeviceChanged, p.OnMultimaskChanged = nil, nil, nil
	p.modeRadio.SetSelected(mode)
	p.deviceRadio.SetSelected(device)
	p.multimaskCheck.SetChecked(multimask)
	p.OnModeChanged, p.OnDeviceChanged, p.OnMultimaskChanged = onMode, onDevice, onMulti
}

func (p *SAMPanel) SetConfigs(configs []string, selected int) {
	onSelect := p.OnConfigSelected
	p.OnConfigSelected = nil
	p.configSelect.SetOptions(configs)
	if selected >= 0 && selected < len(configs) {
		p.configSelect.SetSelectedIndex(selected)
	} else {
		p.configSelect.ClearSelected()
	}
	p.OnConfigSelected = onSelect
}

// SetActions enables Load and Track according to the segmentation state.
func (p *SAMPanel) SetActions(canLoad, canTrack bool) {
	setEnabled(p.LoadButton, canLoad)
	setEnabled(p.TrackButton, canTrack)
}

func setEnabled(b *widget.Button, enabled bool) {
	if enabled == !b.Disabled() {
		return
	}
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}
