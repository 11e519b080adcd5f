// Package segmentation owns the predictor lifecycle and the click and track
// workflow. Its State component lives on the application entity.
package segmentation

import (
	"errors"
	"fmt"
	"path/filepath"

	"sam-segmenter/internal/mask"
	"sam-segmenter/internal/predictor"
)

var (
	ErrBusy          = errors.New("a predictor operation is already running")
	ErrNoPredictor   = errors.New("no predictor loaded")
	ErrNoSession     = errors.New("no video session")
	ErrUnknownConfig = errors.New("no checkpoint for configuration")
)

// IsPrecondition reports whether err is a refused action that has already
// been announced with a notice.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrNoPredictor) || errors.Is(err, ErrNoSession)
}

// State is the segmentation component.
type State struct {
	Mode   predictor.Mode
	Device predictor.Device

	ConfigDir     string
	CheckpointDir string
	Catalog       []string
	Selected      int

	Multimask bool

	Predictor predictor.Predictor
	Session   predictor.Session

	// FramePredictions holds raw logits keyed by frame index. Entries are
	// never modified after they are stored.
	FramePredictions map[int]*mask.Mask

	Tracking bool
	Tracked  bool

	// Busy is set while a Load, prompt, session or Track job is in flight.
	Busy bool

	// source counts imports. Jobs started for an older source drop their
	// results on completion.
	source uint64
	// retired is a session detached by an import while a job still held it.
	retired predictor.Session
}

// SelectedConfig returns the selected catalog entry.
func (s *State) SelectedConfig() (string, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Catalog) {
		return "", false
	}
	return s.Catalog[s.Selected], true
}

// LoadSpec resolves the selected configuration into a predictor.Spec.
func (s *State) LoadSpec() (predictor.Spec, error) {
	cfg, ok := s.SelectedConfig()
	if !ok {
		return predictor.Spec{}, ErrUnknownConfig
	}
	ckpt, ok := predictor.CheckpointFor(cfg)
	if !ok {
		return predictor.Spec{}, fmt.Errorf("%w: %s", ErrUnknownConfig, cfg)
	}
	return predictor.Spec{
		Config:     cfg,
		ConfigPath: filepath.Join(s.ConfigDir, cfg),
		Checkpoint: filepath.Join(s.CheckpointDir, ckpt),
		Device:     s.Device,
		Mode:       s.Mode,
	}, nil
}

// CanExport reports whether a finished tracking run left predictions to write.
func (s *State) CanExport() bool {
	return s.Tracked && !s.Tracking && len(s.FramePredictions) > 0
}

// FrameCount is the number of cached frame predictions.
func (s *State) FrameCount() int {
	return len(s.FramePredictions)
}
