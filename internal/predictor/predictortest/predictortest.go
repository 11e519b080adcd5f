// Package predictortest provides a deterministic in-memory predictor.
package predictortest

import (
	"context"
	"errors"
	"image"

	"sam-segmenter/internal/mask"
	"sam-segmenter/internal/predictor"
)

// Loader records load requests and hands out Predictors.
type Loader struct {
	Err   error
	Loads []predictor.Spec

	// Candidates is the number of masks returned per image prediction.
	Candidates int
	// FrameCount, FrameWidth and FrameHeight shape video sessions.
	FrameCount  int
	FrameWidth  int
	FrameHeight int

	Last *Predictor
}

func (l *Loader) Load(_ context.Context, spec predictor.Spec) (predictor.Predictor, error) {
	l.Loads = append(l.Loads, spec)
	if l.Err != nil {
		return nil, l.Err
	}
	candidates := l.Candidates
	if candidates == 0 {
		candidates = 3
	}
	p := &Predictor{
		mode:        spec.Mode,
		Candidates:  candidates,
		FrameCount:  l.FrameCount,
		FrameWidth:  l.FrameWidth,
		FrameHeight: l.FrameHeight,
	}
	l.Last = p
	return p, nil
}

// Predictor produces square masks centred on the prompt.
type Predictor struct {
	mode        predictor.Mode
	Candidates  int
	FrameCount  int
	FrameWidth  int
	FrameHeight int

	PredictErr error
	SessionErr error

	Predictions []predictor.Point
	Sessions    []*Session
	Closed      bool
}

func (p *Predictor) Mode() predictor.Mode { return p.mode }

func (p *Predictor) PredictPoint(_ context.Context, img *image.RGBA, pt predictor.Point, opts predictor.Options) ([]*mask.Mask, error) {
	if p.mode != predictor.ImageMode {
		return nil, predictor.ErrWrongMode
	}
	if p.PredictErr != nil {
		return nil, p.PredictErr
	}
	p.Predictions = append(p.Predictions, pt)

	n := p.Candidates
	if !opts.Multimask {
		n = 1
	}
	b := img.Bounds()
	masks := make([]*mask.Mask, 0, n)
	for i := 0; i < n; i++ {
		m, err := Square(b.Dx(), b.Dy(), pt, 10*(i+1), false)
		if err != nil {
			return nil, err
		}
		masks = append(masks, m)
	}
	return masks, nil
}

func (p *Predictor) InitVideoSession(_ context.Context, dir string) (predictor.Session, error) {
	if p.mode != predictor.VideoMode {
		return nil, predictor.ErrWrongMode
	}
	if p.SessionErr != nil {
		return nil, p.SessionErr
	}
	s := &Session{
		Dir:    dir,
		Frames: p.FrameCount,
		Width:  p.FrameWidth,
		Height: p.FrameHeight,
	}
	p.Sessions = append(p.Sessions, s)
	return s, nil
}

func (p *Predictor) Close() error {
	p.Closed = true
	return nil
}

// Session tracks the last prompted point across Frames frames.
type Session struct {
	Dir    string
	Frames int
	Width  int
	Height int

	PropagateErr error

	Prompts []predictor.Point
	Closed  bool
}

func (s *Session) AddPoint(_ context.Context, frame int, pt predictor.Point) (*mask.Mask, error) {
	if frame < 0 || frame >= s.Frames {
		return nil, errors.New("frame out of range")
	}
	s.Prompts = append(s.Prompts, pt)
	return Square(s.Width, s.Height, pt, 10, true)
}

func (s *Session) Propagate(ctx context.Context, yield func(int, *mask.Mask) error) error {
	if len(s.Prompts) == 0 {
		return errors.New("no prompts added")
	}
	pt := s.Prompts[len(s.Prompts)-1]
	for f := 0; f < s.Frames; f++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.PropagateErr != nil && f == s.Frames/2 {
			return s.PropagateErr
		}
		m, err := Square(s.Width, s.Height, predictor.Point{X: pt.X + f, Y: pt.Y}, 10, true)
		if err != nil {
			return err
		}
		if err := yield(f, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}

// Square builds a width x height mask whose foreground is the square of the
// given half-size around pt. Logit masks use -4/+4, binary masks 0/1.
func Square(width, height int, pt predictor.Point, half int, logits bool) (*mask.Mask, error) {
	off, on := 0.0, 1.0
	if logits {
		off, on = -4, 4
	}
	values := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := off
			if abs(x-pt.X) <= half && abs(y-pt.Y) <= half {
				v = on
			}
			values[y*width+x] = v
		}
	}
	return mask.New(height, width, values, logits)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
