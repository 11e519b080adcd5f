// Package texture keeps the pixel buffers the GUI draws, keyed by the
// handles the viewport hands out.
package texture

import (
	"fmt"
	"image"
	"sync"

	"sam-segmenter/internal/imaging"
	"sam-segmenter/internal/viewport"
)

// DefaultMaxSide caps uploaded buffers; larger images are downscaled.
const DefaultMaxSide = 2048

// Store implements viewport.Renderer.
type Store struct {
	mu       sync.RWMutex
	next     viewport.TextureID
	images   map[viewport.TextureID]*image.RGBA
	maxSide  int
	revision uint64
}

func NewStore(maxSide int) *Store {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	return &Store{
		images:  make(map[viewport.TextureID]*image.RGBA),
		maxSide: maxSide,
	}
}

func (s *Store) CreateTexture(img *image.RGBA) (viewport.TextureID, error) {
	if img == nil {
		return viewport.NoTexture, fmt.Errorf("create texture: nil image")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.images[s.next] = imaging.LimitSize(img, s.maxSide)
	s.revision++
	return s.next, nil
}

func (s *Store) UpdateTexture(id viewport.TextureID, img *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[id]; !ok {
		return fmt.Errorf("update texture %d: not found", id)
	}
	s.images[id] = imaging.LimitSize(img, s.maxSide)
	s.revision++
	return nil
}

func (s *Store) DeleteTexture(id viewport.TextureID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[id]; ok {
		delete(s.images, id)
		s.revision++
	}
}

// Image returns the buffer behind id, or nil.
func (s *Store) Image(id viewport.TextureID) *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.images[id]
}

// Revision changes whenever any texture is created, updated or deleted.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}
