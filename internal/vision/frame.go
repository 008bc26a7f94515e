package vision

import (
	"image"
	"sync"

	"github.com/ironsheep/board-gauge/internal/contour"
)

// Frame holds the contours extracted from one image. It is only valid for a
// single processing pass.
type Frame struct {
	Width    int
	Height   int
	Contours []contour.Contour

	mu      sync.Mutex
	closed  bool
	release func() error
}

// NewFrame wraps contours for an image of the given size. release, if not
// nil, runs once on Close.
func NewFrame(width, height int, contours []contour.Contour, release func() error) *Frame {
	return &Frame{
		Width:    width,
		Height:   height,
		Contours: contours,
		release:  release,
	}
}

// Bounds returns the image rectangle the contours live in.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Valid reports whether the frame has not been closed yet.
func (f *Frame) Valid() bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

// Close releases backend memory behind the contours. Further calls are no-ops.
func (f *Frame) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.Contours = nil

	if f.release != nil {
		return f.release()
	}
	return nil
}
