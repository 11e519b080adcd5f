package opencv

import (
	"fmt"
	"image"
	"os"
	"time"

	"gocv.io/x/gocv"

	"sam-segmenter/internal/logger"
)

// Decoder reads image files with OpenCV and returns opaque RGBA buffers.
// It satisfies imaging.Decoder.
type Decoder struct {
	logger logger.Logger
}

func NewDecoder(log logger.Logger) *Decoder {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Decoder{logger: log}
}

func (d *Decoder) Decode(path string) (*image.RGBA, error) {
	start := time.Now()
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	bgr, err := newMat(gocv.IMRead(path, gocv.IMReadColor), "imread")
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s with OpenCV: %w", path, err)
	}
	defer bgr.Close()

	rgba, err := bgr.convert(gocv.ColorBGRToRGBA, "bgr_to_rgba")
	if err != nil {
		return nil, err
	}
	defer rgba.Close()

	img, err := toRGBA(rgba)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("OpenCVDecoder", "frame decoded", map[string]interface{}{
		"path":        path,
		"width":       img.Bounds().Dx(),
		"height":      img.Bounds().Dy(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return img, nil
}

func toRGBA(m *Mat) (*image.RGBA, error) {
	if m.Channels() != 4 {
		return nil, fmt.Errorf("unsupported channel count: %d", m.Channels())
	}
	data, err := m.bytes()
	if err != nil {
		return nil, err
	}
	rows, cols := m.Rows(), m.Cols()
	if len(data) != rows*cols*4 {
		return nil, fmt.Errorf("unexpected buffer size %d for %dx%d", len(data), cols, rows)
	}
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	copy(img.Pix, data)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img, nil
}
