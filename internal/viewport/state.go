// Package viewport owns the displayed image, its texture and the overlay
// settings, and maps clicks on the display back into image space.
package viewport

import (
	"errors"
	"image"
	"image/color"

	"sam-segmenter/internal/mask"
)

var (
	ErrFrameOutOfRange = errors.New("frame index out of range")
	ErrNotTracked      = errors.New("video has not been tracked")
)

// TextureID is a renderer-owned handle. NoTexture means nothing is uploaded.
type TextureID uint32

const NoTexture TextureID = 0

// Renderer uploads pixel buffers for display.
type Renderer interface {
	CreateTexture(img *image.RGBA) (TextureID, error)
	UpdateTexture(id TextureID, img *image.RGBA) error
	DeleteTexture(id TextureID)
}

// State is the viewport component.
type State struct {
	DisplayWidth  int
	DisplayHeight int
	// Aspect is image height over image width.
	Aspect float64
	// Scale converts display pixels to image pixels.
	Scale float64

	// CurrentImage is the imported image, or frame 0 of an imported video.
	// Click prompts always refer to it.
	CurrentImage *image.RGBA
	// FrameImage is the decoded tracked frame on screen, if any.
	FrameImage *image.RGBA
	// DisplayImage is the composited buffer the texture shows.
	DisplayImage *image.RGBA
	Texture      TextureID
	textureSize  image.Point

	Overlays     []*mask.Mask
	Selected     int
	OverlayColor color.RGBA
	Alpha        float64
	MarkerRadius int
	Marker       *image.Point

	FrameDir     string
	FramePaths   []string
	TrackedFrame int
}

// base is the buffer overlays are composited onto.
func (s *State) base() *image.RGBA {
	if s.FrameImage != nil {
		return s.FrameImage
	}
	return s.CurrentImage
}

// SelectedMask returns the overlay to composite, or nil.
func (s *State) SelectedMask() *mask.Mask {
	if s.Selected < 0 || s.Selected >= len(s.Overlays) {
		return nil
	}
	return s.Overlays[s.Selected]
}

// relayout derives the display height and click scale from the display width.
func (s *State) relayout() {
	img := s.CurrentImage
	if img == nil || s.DisplayWidth <= 0 {
		s.DisplayHeight = 0
		s.Scale = 0
		return
	}
	b := img.Bounds()
	s.Aspect = float64(b.Dy()) / float64(b.Dx())
	s.DisplayHeight = int(float64(s.DisplayWidth)*s.Aspect + 0.5)
	if s.DisplayHeight < 1 {
		s.DisplayHeight = 1
	}
	s.Scale = float64(b.Dy()) / float64(s.DisplayHeight)
}

// ToImage maps a display-space point to image space. Points outside
// [0, DisplayWidth) x [0, DisplayHeight) are rejected.
func (s *State) ToImage(sx, sy float64) (image.Point, bool) {
	if s.CurrentImage == nil || s.Scale <= 0 {
		return image.Point{}, false
	}
	if sx < 0 || sy < 0 || sx >= float64(s.DisplayWidth) || sy >= float64(s.DisplayHeight) {
		return image.Point{}, false
	}
	b := s.CurrentImage.Bounds()
	ix := int(sx * s.Scale)
	iy := int(sy * s.Scale)
	if ix >= b.Dx() {
		ix = b.Dx() - 1
	}
	if iy >= b.Dy() {
		iy = b.Dy() - 1
	}
	return image.Pt(ix, iy), true
}
