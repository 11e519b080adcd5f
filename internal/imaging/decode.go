// Package imaging decodes source images, lists video frames and composes
// mask overlays. All operations return new buffers; inputs are never modified.
package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrNoFrames = errors.New("no frame files found")

// DefaultFrameExtensions matches the frame dumps produced by ffmpeg for SAM2.
var DefaultFrameExtensions = []string{".jpg", ".jpeg"}

// Decoder turns an image file into an RGB pixel buffer.
type Decoder interface {
	Decode(path string) (*image.RGBA, error)
}

// FileDecoder decodes with the standard library and x/image codecs.
type FileDecoder struct{}

func (FileDecoder) Decode(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
	}
	if format == "" {
		return nil, fmt.Errorf("decode image %s: unknown format", filepath.Base(path))
	}
	return ToRGBA(img), nil
}

// ToRGBA returns an opaque RGBA copy of img anchored at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

// Clone copies an RGBA buffer.
func Clone(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	return out
}

// ListFrames returns the frame files in dir with one of exts, sorted by name.
func ListFrames(dir string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultFrameExtensions
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	var frames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, want := range exts {
			if ext == strings.ToLower(want) {
				frames = append(frames, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}
	sort.Strings(frames)
	return frames, nil
}

// LimitSize scales img down so neither side exceeds max. Smaller images are
// returned unchanged.
func LimitSize(img *image.RGBA, max int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if max <= 0 || (w <= max && h <= max) {
		return img
	}
	ratio := float64(max) / float64(w)
	if r := float64(max) / float64(h); r < ratio {
		ratio = r
	}
	nw, nh := int(float64(w)*ratio+0.5), int(float64(h)*ratio+0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), img, b, draw.Src, nil)
	return out
}
