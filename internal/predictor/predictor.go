// Package predictor describes the segmentation model capability consumed by
// the application. Implementations live in subpackages.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"sam-segmenter/internal/mask"
)

var ErrWrongMode = errors.New("operation not supported in this predictor mode")

// Mode selects the image or the video predictor API.
type Mode int

const (
	ImageMode Mode = iota
	VideoMode
)

func (m Mode) String() string {
	if m == VideoMode {
		return "video"
	}
	return "image"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "image", "":
		return ImageMode, nil
	case "video":
		return VideoMode, nil
	}
	return ImageMode, fmt.Errorf("unknown predictor mode %q", s)
}

type Device int

const (
	CPU Device = iota
	GPU
)

func (d Device) String() string {
	if d == GPU {
		return "gpu"
	}
	return "cpu"
}

func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(s) {
	case "cpu":
		return CPU, nil
	case "gpu", "cuda", "":
		return GPU, nil
	}
	return GPU, fmt.Errorf("unknown device %q", s)
}

// Point is a positive click prompt in image coordinates.
type Point struct {
	X, Y int
}

// Spec identifies the model to build.
type Spec struct {
	Config     string
	ConfigPath string
	Checkpoint string
	Device     Device
	Mode       Mode
}

type Options struct {
	Multimask bool
}

// Loader constructs predictors. A failed Load returns no predictor.
type Loader interface {
	Load(ctx context.Context, spec Spec) (Predictor, error)
}

// Predictor is a loaded model instance.
type Predictor interface {
	Mode() Mode
	// PredictPoint returns one or more candidate masks shaped like img.
	PredictPoint(ctx context.Context, img *image.RGBA, pt Point, opts Options) ([]*mask.Mask, error)
	// InitVideoSession prepares tracking over the frames stored in dir.
	InitVideoSession(ctx context.Context, dir string) (Session, error)
	Close() error
}

// Session is a per-video inference context tracking a single object.
type Session interface {
	// AddPoint prompts the object on frame and returns its logits there.
	AddPoint(ctx context.Context, frame int, pt Point) (*mask.Mask, error)
	// Propagate streams per-frame logits to yield until the video is exhausted.
	// A yield error stops propagation and is returned.
	Propagate(ctx context.Context, yield func(frame int, logits *mask.Mask) error) error
	Close() error
}
