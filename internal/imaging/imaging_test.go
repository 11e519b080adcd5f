package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"sam-segmenter/internal/mask"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestFileDecoder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	src := image.NewNRGBA(image.Rect(5, 5, 9, 8))
	src.Set(5, 5, color.NRGBA{R: 200, G: 10, B: 20, A: 255})
	writePNG(t, path, src)

	got, err := FileDecoder{}.Decode(path)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Fatalf("bounds = %v, want 4x3 at origin", got.Bounds())
	}
	if c := got.RGBAAt(0, 0); c.R != 200 || c.G != 10 || c.B != 20 || c.A != 255 {
		t.Errorf("pixel = %+v", c)
	}
	// transparent source pixels are made opaque
	if a := got.RGBAAt(1, 1).A; a != 255 {
		t.Errorf("alpha = %d, want 255", a)
	}
}

func TestFileDecoderErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := (FileDecoder{}).Decode(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
	bogus := filepath.Join(dir, "bogus.png")
	if err := os.WriteFile(bogus, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (FileDecoder{}).Decode(bogus); err == nil {
		t.Error("expected error for undecodable file")
	}
}

func TestListFrames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"00002.jpg", "00000.jpg", "00001.JPEG", "notes.txt", "mask.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	frames, err := ListFrames(dir, nil)
	if err != nil {
		t.Fatalf("ListFrames() error = %v", err)
	}
	want := []string{"00000.jpg", "00001.JPEG", "00002.jpg"}
	if len(frames) != len(want) {
		t.Fatalf("frames = %v", frames)
	}
	for i, name := range want {
		if filepath.Base(frames[i]) != name {
			t.Errorf("frames[%d] = %s, want %s", i, frames[i], name)
		}
	}
}

func TestListFramesEmpty(t *testing.T) {
	_, err := ListFrames(t.TempDir(), []string{".jpg"})
	if !errors.Is(err, ErrNoFrames) {
		t.Fatalf("ListFrames() error = %v, want ErrNoFrames", err)
	}
}

func TestOverlayOnlyTouchesForeground(t *testing.T) {
	img := solid(4, 3, color.RGBA{R: 0, G: 100, B: 200, A: 255})
	values := make([]float64, 12)
	values[1*4+2] = 5 // (x=2, y=1)
	m, _ := mask.New(3, 4, values, false)

	out, err := Overlay(img, m, color.RGBA{R: 255, A: 255}, 0.5)
	if err != nil {
		t.Fatalf("Overlay() error = %v", err)
	}

	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			got := out.RGBAAt(x, y)
			if x == 2 && y == 1 {
				want := color.RGBA{R: 128, G: 50, B: 100, A: 255}
				if got != want {
					t.Errorf("foreground pixel = %+v, want %+v", got, want)
				}
				continue
			}
			if got != img.RGBAAt(x, y) {
				t.Errorf("background pixel (%d,%d) changed to %+v", x, y, got)
			}
		}
	}
	if img.RGBAAt(2, 1).R != 0 {
		t.Error("source image was modified")
	}
}

func TestOverlayShapeMismatch(t *testing.T) {
	m, _ := mask.New(2, 2, []float64{1, 1, 1, 1}, false)
	if _, err := Overlay(solid(3, 3, color.RGBA{}), m, color.RGBA{}, 0.5); err == nil {
		t.Error("expected error for mismatched mask")
	}
}

func TestDrawMarker(t *testing.T) {
	img := solid(10, 10, color.RGBA{A: 255})
	red := color.RGBA{R: 255, A: 255}

	out := DrawMarker(img, 0, 0, 2, red)

	if out.RGBAAt(0, 0) != red || out.RGBAAt(2, 0) != red {
		t.Error("marker pixels not drawn")
	}
	if out.RGBAAt(2, 2) == red {
		t.Error("pixel outside the disc was drawn")
	}
	if img.RGBAAt(0, 0) == red {
		t.Error("source image was modified")
	}
}

func TestWriteMaskPNG(t *testing.T) {
	m, _ := mask.New(1, 3, []float64{-1, 0, 2}, true)
	path := filepath.Join(t.TempDir(), "00007.png")

	if err := WriteMaskPNG(path, m); err != nil {
		t.Fatalf("WriteMaskPNG() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode written mask: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("written mask is %T, want *image.Gray", img)
	}
	want := []uint8{0, 0, 255}
	for i, w := range want {
		if gray.Pix[i] != w {
			t.Errorf("pixel %d = %d, want %d", i, gray.Pix[i], w)
		}
	}
}

func TestLimitSize(t *testing.T) {
	img := solid(400, 300, color.RGBA{G: 255, A: 255})

	if got := LimitSize(img, 1000); got != img {
		t.Error("small image should be returned unchanged")
	}
	got := LimitSize(img, 200)
	if got.Bounds().Dx() != 200 || got.Bounds().Dy() != 150 {
		t.Errorf("LimitSize() bounds = %v, want 200x150", got.Bounds())
	}
}

func TestFileDecoderJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "00000.jpg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(f, solid(8, 6, color.RGBA{R: 90, G: 90, B: 90, A: 255}), nil); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := FileDecoder{}.Decode(path)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Bounds().Dx() != 8 || got.Bounds().Dy() != 6 {
		t.Errorf("bounds = %v", got.Bounds())
	}
}
