// Package mask holds per-pixel segmentation scores produced by the predictor.
//
// A Mask is immutable once built: binarization produces new buffers, so a
// cached frame prediction can be re-displayed and re-exported any number of
// times.
package mask

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Mask is a rows x cols grid of scores. Positive values are foreground.
type Mask struct {
	data   *mat.Dense
	logits bool
}

// New wraps a row-major score slice. The slice is copied.
func New(rows, cols int, values []float64, logits bool) (*Mask, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid mask dimensions %dx%d", cols, rows)
	}
	if len(values) != rows*cols {
		return nil, fmt.Errorf("mask data length %d does not match %dx%d", len(values), cols, rows)
	}
	buf := make([]float64, len(values))
	copy(buf, values)
	return &Mask{data: mat.NewDense(rows, cols, buf), logits: logits}, nil
}

// FromFloat32 builds a mask from the float32 layout used on the wire.
func FromFloat32(rows, cols int, values []float32, logits bool) (*Mask, error) {
	buf := make([]float64, len(values))
	for i, v := range values {
		buf[i] = float64(v)
	}
	return New(rows, cols, buf, logits)
}

// Dims returns rows (height) and cols (width).
func (m *Mask) Dims() (rows, cols int) {
	return m.data.Dims()
}

// IsLogits reports whether the scores are raw logits rather than a 0/1 mask.
func (m *Mask) IsLogits() bool {
	return m.logits
}

func (m *Mask) At(row, col int) float64 {
	return m.data.At(row, col)
}

// Foreground reports whether the pixel at (x, y) is above the zero threshold.
// Out of range coordinates are background.
func (m *Mask) Foreground(x, y int) bool {
	rows, cols := m.data.Dims()
	if x < 0 || y < 0 || x >= cols || y >= rows {
		return false
	}
	return m.data.At(y, x) > 0
}

// Binary returns row-major bytes with 255 for foreground and 0 for background.
func (m *Mask) Binary() []uint8 {
	rows, cols := m.data.Dims()
	out := make([]uint8, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if m.data.At(y, x) > 0 {
				out[y*cols+x] = 255
			}
		}
	}
	return out
}

// Coverage is the fraction of pixels classified as foreground.
func (m *Mask) Coverage() float64 {
	raw := m.data.RawMatrix()
	fg := 0
	for y := 0; y < raw.Rows; y++ {
		row := raw.Data[y*raw.Stride : y*raw.Stride+raw.Cols]
		fg += floats.Count(func(v float64) bool { return v > 0 }, row)
	}
	return float64(fg) / float64(raw.Rows*raw.Cols)
}
