package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"sam-segmenter/internal/mask"
)

// Overlay blends c over img where m is foreground:
// out = img*(1-alpha) + c*alpha. Background pixels are copied unchanged.
func Overlay(img *image.RGBA, m *mask.Mask, c color.RGBA, alpha float64) (*image.RGBA, error) {
	b := img.Bounds()
	rows, cols := m.Dims()
	if rows != b.Dy() || cols != b.Dx() {
		return nil, fmt.Errorf("mask %dx%d does not match image %dx%d", cols, rows, b.Dx(), b.Dy())
	}
	alpha = clamp01(alpha)

	out := Clone(img)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if !m.Foreground(x, y) {
				continue
			}
			i := out.PixOffset(b.Min.X+x, b.Min.Y+y)
			out.Pix[i+0] = blend(out.Pix[i+0], c.R, alpha)
			out.Pix[i+1] = blend(out.Pix[i+1], c.G, alpha)
			out.Pix[i+2] = blend(out.Pix[i+2], c.B, alpha)
		}
	}
	return out, nil
}

func blend(src, over uint8, alpha float64) uint8 {
	v := float64(src)*(1-alpha) + float64(over)*alpha
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// DrawMarker returns a copy of img with a filled disc of radius r at (cx, cy).
func DrawMarker(img *image.RGBA, cx, cy, r int, c color.RGBA) *image.RGBA {
	out := Clone(img)
	b := out.Bounds()
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy > r*r {
				continue
			}
			if !(image.Point{X: x, Y: y}).In(b) {
				continue
			}
			out.SetRGBA(x, y, c)
		}
	}
	return out
}

// BinaryImage renders m as a single-channel image with values 0 and 255.
func BinaryImage(m *mask.Mask) *image.Gray {
	rows, cols := m.Dims()
	out := image.NewGray(image.Rect(0, 0, cols, rows))
	copy(out.Pix, m.Binary())
	return out
}

// WriteMaskPNG writes m, binarized, to path.
func WriteMaskPNG(path string, m *mask.Mask) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mask file: %w", err)
	}
	if err := png.Encode(f, BinaryImage(m)); err != nil {
		f.Close()
		return fmt.Errorf("encode mask %s: %w", path, err)
	}
	return f.Close()
}
