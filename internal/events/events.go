// Package events defines the closed set of application events and the
// synchronous bus that dispatches them.
package events

import (
	"image"

	"sam-segmenter/internal/mask"
)

// Kind identifies an event variant.
type Kind int

const (
	KindImportImageRequested Kind = iota
	KindImageImported
	KindImportDirectoryRequested
	KindDirectoryImported
	KindExportRequested
	KindViewportClicked
	KindMaskPredicted
	KindFramePredicted
	KindVideoPredicted
	KindNotice
)

var kindNames = map[Kind]string{
	KindImportImageRequested:     "ImportImageRequested",
	KindImageImported:            "ImageImported",
	KindImportDirectoryRequested: "ImportDirectoryRequested",
	KindDirectoryImported:        "DirectoryImported",
	KindExportRequested:          "ExportRequested",
	KindViewportClicked:          "ViewportClicked",
	KindMaskPredicted:            "MaskPredicted",
	KindFramePredicted:           "FramePredicted",
	KindVideoPredicted:           "VideoPredicted",
	KindNotice:                   "Notice",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Event is implemented by every variant below.
type Event interface {
	Kind() Kind
}

// ImportImageRequested asks the I/O layer to decode a single image file.
type ImportImageRequested struct {
	Path string
}

// ImageImported carries a freshly decoded RGB image.
type ImageImported struct {
	Image *image.RGBA
}

// ImportDirectoryRequested asks the I/O layer to open a directory of video frames.
type ImportDirectoryRequested struct {
	Path string
}

// DirectoryImported announces a frame directory. Decoding is left to consumers.
type DirectoryImported struct {
	Path string
}

// ExportRequested asks for the cached frame predictions to be written to Dir.
type ExportRequested struct {
	Dir string
}

// ViewportClicked carries an image-space click and the image it refers to.
type ViewportClicked struct {
	X, Y  int
	Image *image.RGBA
}

// MaskPredicted carries candidate masks for the current image.
// With IsLogits set, Masks holds exactly one single-object logit grid.
type MaskPredicted struct {
	Masks    []*mask.Mask
	IsLogits bool
}

// FramePredicted selects a cached frame prediction for display.
type FramePredicted struct {
	Mask  *mask.Mask
	Frame int
}

// VideoPredicted announces that propagation finished.
type VideoPredicted struct{}

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

// Notice is a user-visible message, typically a refused action.
type Notice struct {
	Level   NoticeLevel
	Message string
}

func (ImportImageRequested) Kind() Kind     { return KindImportImageRequested }
func (ImageImported) Kind() Kind            { return KindImageImported }
func (ImportDirectoryRequested) Kind() Kind { return KindImportDirectoryRequested }
func (DirectoryImported) Kind() Kind        { return KindDirectoryImported }
func (ExportRequested) Kind() Kind          { return KindExportRequested }
func (ViewportClicked) Kind() Kind          { return KindViewportClicked }
func (MaskPredicted) Kind() Kind            { return KindMaskPredicted }
func (FramePredicted) Kind() Kind           { return KindFramePredicted }
func (VideoPredicted) Kind() Kind           { return KindVideoPredicted }
func (Notice) Kind() Kind                   { return KindNotice }
