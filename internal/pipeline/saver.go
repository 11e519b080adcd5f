package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"sam-segmenter/internal/imaging"
	"sam-segmenter/internal/logger"
	"sam-segmenter/internal/mask"
)

type maskSaver struct {
	logger logger.Logger
}

// MaskFileName names the export file for a frame.
func MaskFileName(frame int) string {
	return fmt.Sprintf("%05d.png", frame)
}

// SaveFrames writes one binary PNG per prediction into dir, creating it if
// needed. The cached logits are not modified.
func (s *maskSaver) SaveFrames(dir string, predictions map[int]*mask.Mask) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	frames := make([]int, 0, len(predictions))
	for frame := range predictions {
		frames = append(frames, frame)
	}
	sort.Ints(frames)

	start := time.Now()
	for i, frame := range frames {
		path := filepath.Join(dir, MaskFileName(frame))
		if err := imaging.WriteMaskPNG(path, predictions[frame]); err != nil {
			s.logger.Error("MaskSaver", err, map[string]interface{}{
				"frame": frame,
				"path":  path,
			})
			return i, err
		}
		s.logger.Debug("MaskSaver", "mask saved", map[string]interface{}{
			"frame":    frame,
			"progress": fmt.Sprintf("%d/%d", i+1, len(frames)),
			"coverage": predictions[frame].Coverage(),
		})
	}

	s.logger.Info("MaskSaver", "masks exported", map[string]interface{}{
		"dir":         dir,
		"frames":      len(frames),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return len(frames), nil
}
