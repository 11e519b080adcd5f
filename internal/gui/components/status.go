package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"sam-segmenter/internal/events"
)

type StatusBar struct {
	container   *fyne.Container
	statusLabel *widget.Label
	noticeLabel *widget.Label
	activity    *widget.ProgressBarInfinite
}

func NewStatusBar() *StatusBar {
	statusLabel := widget.NewLabel("Ready")
	noticeLabel := widget.NewLabel("")
	noticeLabel.Truncation = fyne.TextTruncateEllipsis
	activity := widget.NewProgressBarInfinite()
	activity.Stop()
	activity.Hide()

	mainContainer := container.NewBorder(
		nil, nil,
		statusLabel,
		container.NewGridWrap(fyne.NewSize(120, 20), activity),
		noticeLabel,
	)

	return &StatusBar{
		container:   mainContainer,
		statusLabel: statusLabel,
		noticeLabel: noticeLabel,
		activity:    activity,
	}
}

func (sb *StatusBar) GetContainer() *fyne.Container {
	return sb.container
}

func (sb *StatusBar) SetStatus(status string) {
	sb.statusLabel.SetText(status)
}

func (sb *StatusBar) SetNotice(n events.Notice) {
	switch n.Level {
	case events.NoticeError:
		sb.noticeLabel.Importance = widget.DangerImportance
	case events.NoticeWarning:
		sb.noticeLabel.Importance = widget.WarningImportance
	default:
		sb.noticeLabel.Importance = widget.MediumImportance
	}
	sb.noticeLabel.SetText(n.Message)
}

// SetBusy shows the activity bar while a predictor job runs.
func (sb *StatusBar) SetBusy(busy bool) {
	if busy == sb.activity.Visible() {
		return
	}
	if busy {
		sb.activity.Show()
		sb.activity.Start()
	} else {
		sb.activity.Stop()
		sb.activity.Hide()
	}
}
