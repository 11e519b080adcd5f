package texture

import (
	"image"
	"testing"

	"sam-segmenter/internal/viewport"
)

func TestStoreLifecycle(t *testing.T) {
	s := NewStore(0)
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))

	id, err := s.CreateTexture(img)
	if err != nil || id == viewport.NoTexture {
		t.Fatalf("CreateTexture() = %d, %v", id, err)
	}
	rev := s.Revision()

	other := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if err := s.UpdateTexture(id, other); err != nil {
		t.Fatal(err)
	}
	if s.Image(id) != other || s.Revision() == rev {
		t.Error("update not visible")
	}

	s.DeleteTexture(id)
	if s.Image(id) != nil || s.Len() != 0 {
		t.Error("texture survived delete")
	}
	if err := s.UpdateTexture(id, other); err == nil {
		t.Error("update of deleted texture accepted")
	}
	if _, err := s.CreateTexture(nil); err == nil {
		t.Error("nil image accepted")
	}
}

func TestStoreLimitsSize(t *testing.T) {
	s := NewStore(100)
	id, err := s.CreateTexture(image.NewRGBA(image.Rect(0, 0, 400, 200)))
	if err != nil {
		t.Fatal(err)
	}
	if b := s.Image(id).Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("stored %v, want 100x50", b)
	}
}

var _ viewport.Renderer = (*Store)(nil)
