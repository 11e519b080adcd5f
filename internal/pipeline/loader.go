// Package pipeline turns import and export requests into file I/O.
package pipeline

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sam-segmenter/internal/imaging"
	"sam-segmenter/internal/logger"
)

type imageLoader struct {
	decoder    imaging.Decoder
	extensions []string
	logger     logger.Logger
}

func (l *imageLoader) LoadImage(path string) (*image.RGBA, error) {
	start := time.Now()
	format := determineFormat(path)

	l.logger.Debug("ImageLoader", "loading image", map[string]interface{}{
		"path":   path,
		"format": format,
	})

	img, err := l.decoder.Decode(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
	}

	b := img.Bounds()
	l.logger.Info("ImageLoader", "image loaded successfully", map[string]interface{}{
		"width":       b.Dx(),
		"height":      b.Dy(),
		"format":      format,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return img, nil
}

// OpenDirectory checks that dir holds at least one frame file.
func (l *imageLoader) OpenDirectory(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	frames, err := imaging.ListFrames(dir, l.extensions)
	if err != nil {
		return nil, err
	}

	l.logger.Info("ImageLoader", "frame directory opened", map[string]interface{}{
		"dir":    dir,
		"frames": len(frames),
		"first":  filepath.Base(frames[0]),
	})
	return frames, nil
}

func determineFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tiff", ".tif":
		return "tiff"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return "unknown"
	}
}
