package remote

import (
	"context"
	"fmt"
	"image"
	"time"

	"sam-segmenter/internal/mask"
	"sam-segmenter/internal/predictor"
)

// Loader builds predictors on the server reachable through Client.
type Loader struct {
	Client *Client
}

func NewLoader(c *Client) *Loader {
	return &Loader{Client: c}
}

func (l *Loader) Load(ctx context.Context, spec predictor.Spec) (predictor.Predictor, error) {
	start := time.Now()
	resp, err := l.Client.single(ctx, request{
		Op:         opLoad,
		Config:     spec.ConfigPath,
		Checkpoint: spec.Checkpoint,
		Device:     spec.Device.String(),
		Mode:       spec.Mode.String(),
	})
	if err != nil {
		return nil, err
	}
	if resp.Predictor == "" {
		return nil, fmt.Errorf("%w: load returned no predictor handle", ErrServer)
	}

	l.Client.logger.Info("RemotePredictor", "predictor loaded", map[string]interface{}{
		"handle":      resp.Predictor,
		"config":      spec.Config,
		"mode":        spec.Mode.String(),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return &Predictor{client: l.Client, handle: resp.Predictor, mode: spec.Mode}, nil
}

// Predictor is a server-side model handle.
type Predictor struct {
	client *Client
	handle string
	mode   predictor.Mode
}

func (p *Predictor) Mode() predictor.Mode { return p.mode }

func (p *Predictor) PredictPoint(ctx context.Context, img *image.RGBA, pt predictor.Point, opts predictor.Options) ([]*mask.Mask, error) {
	if p.mode != predictor.ImageMode {
		return nil, predictor.ErrWrongMode
	}
	encoded, err := encodeImage(img)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.single(ctx, request{
		Op:        opPredict,
		Predictor: p.handle,
		Image:     encoded,
		Point:     []int{pt.X, pt.Y},
		Label:     1,
		Multimask: opts.Multimask,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Masks) == 0 {
		return nil, fmt.Errorf("%w: prediction returned no masks", ErrServer)
	}
	return decodeMasks(resp.Masks)
}

func (p *Predictor) InitVideoSession(ctx context.Context, dir string) (predictor.Session, error) {
	if p.mode != predictor.VideoMode {
		return nil, predictor.ErrWrongMode
	}
	resp, err := p.client.single(ctx, request{
		Op:        opInitSession,
		Predictor: p.handle,
		Dir:       dir,
	})
	if err != nil {
		return nil, err
	}
	if resp.Session == "" {
		return nil, fmt.Errorf("%w: init_session returned no session handle", ErrServer)
	}
	return &Session{client: p.client, predictor: p.handle, handle: resp.Session}, nil
}

func (p *Predictor) Close() error {
	_, err := p.client.single(context.Background(), request{Op: opUnload, Predictor: p.handle})
	return err
}

// Session is a server-side video inference state.
type Session struct {
	client    *Client
	predictor string
	handle    string
}

func (s *Session) AddPoint(ctx context.Context, frame int, pt predictor.Point) (*mask.Mask, error) {
	resp, err := s.client.single(ctx, request{
		Op:        opAddPoint,
		Predictor: s.predictor,
		Session:   s.handle,
		Frame:     frame,
		Point:     []int{pt.X, pt.Y},
		Label:     1,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Masks) == 0 {
		return nil, fmt.Errorf("%w: add_point returned no logits", ErrServer)
	}
	return decodeMask(resp.Masks[0])
}

func (s *Session) Propagate(ctx context.Context, yield func(int, *mask.Mask) error) error {
	return s.client.call(ctx, request{
		Op:        opPropagate,
		Predictor: s.predictor,
		Session:   s.handle,
	}, func(resp response) (bool, error) {
		if resp.Done {
			return true, nil
		}
		if len(resp.Masks) == 0 {
			return false, fmt.Errorf("%w: frame %d carried no logits", ErrServer, resp.Frame)
		}
		m, err := decodeMask(resp.Masks[0])
		if err != nil {
			return false, fmt.Errorf("frame %d: %w", resp.Frame, err)
		}
		return false, yield(resp.Frame, m)
	})
}

func (s *Session) Close() error {
	_, err := s.client.single(context.Background(), request{
		Op:        opCloseSession,
		Predictor: s.predictor,
		Session:   s.handle,
	})
	return err
}
