// Package opencv decodes frame files through OpenCV.
package opencv

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Mat owns a gocv.Mat and releases it exactly once, either on Close or from
// the finalizer when Close was never called.
type Mat struct {
	mat     gocv.Mat
	isValid int32
	mu      sync.RWMutex
	tag     string
}

func newMat(m gocv.Mat, tag string) (*Mat, error) {
	if m.Empty() {
		m.Close()
		return nil, fmt.Errorf("%s: empty Mat", tag)
	}
	if m.Rows() <= 0 || m.Cols() <= 0 {
		m.Close()
		return nil, fmt.Errorf("%s: invalid dimensions %dx%d", tag, m.Cols(), m.Rows())
	}

	sm := &Mat{mat: m, isValid: 1, tag: tag}
	runtime.SetFinalizer(sm, (*Mat).finalize)
	return sm, nil
}

func (sm *Mat) IsValid() bool {
	return atomic.LoadInt32(&sm.isValid) == 1
}

func (sm *Mat) Rows() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Rows()
}

func (sm *Mat) Cols() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Cols()
}

func (sm *Mat) Channels() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Channels()
}

// convert applies a color conversion into a new Mat.
func (sm *Mat) convert(code gocv.ColorConversionCode, tag string) (*Mat, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return nil, fmt.Errorf("%s: source Mat is invalid", tag)
	}

	dst := gocv.NewMat()
	if err := gocv.CvtColor(sm.mat, &dst, code); err != nil {
		dst.Close()
		return nil, fmt.Errorf("%s: %w", tag, err)
	}
	return newMat(dst, tag)
}

func (sm *Mat) bytes() ([]byte, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return nil, fmt.Errorf("%s: Mat is invalid", sm.tag)
	}
	return sm.mat.ToBytes(), nil
}

func (sm *Mat) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if atomic.CompareAndSwapInt32(&sm.isValid, 1, 0) {
		if !sm.mat.Empty() {
			sm.mat.Close()
		}
		runtime.SetFinalizer(sm, nil)
	}
}

func (sm *Mat) finalize() {
	if atomic.LoadInt32(&sm.isValid) == 1 {
		sm.Close()
	}
}
