package vision

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/board-gauge/internal/contour"
	"github.com/ironsheep/board-gauge/internal/grain"
)

var (
	// ErrBackendProcessing wraps any failure inside a vision backend.
	ErrBackendProcessing = errors.New("backend processing error")

	// ErrBackendUnavailable is returned for a backend not compiled into this binary.
	ErrBackendUnavailable = errors.New("vision backend unavailable")

	// ErrFrameClosed is returned when a closed frame is used.
	ErrFrameClosed = errors.New("frame already released")

	// ErrForeignContour is returned when a contour from another backend is passed in.
	ErrForeignContour = errors.New("contour does not belong to this backend")
)

// Backend performs the pixel-level work for one frame at a time.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// ExtractContours runs grayscale, blur and edge detection on img and
	// returns the contours found. The caller must Close the frame.
	ExtractContours(img image.Image) (*Frame, error)

	// GradientField returns signed Sobel X and Y gradients of img's luminance.
	GradientField(img image.Image) (grain.Field, error)

	// RasterMask fills c into a width x height mask.
	RasterMask(c contour.Contour, width, height int) (grain.Mask, error)

	// Close releases anything the backend holds beyond single frames.
	Close() error
}

// Options tune the edge and contour stages shared by both backends.
type Options struct {
	// CannyLow and CannyHigh are hysteresis thresholds on 0-255 gradient magnitude.
	CannyLow  float64
	CannyHigh float64

	// BlurRadius is the Gaussian kernel radius applied before edge detection;
	// 2 gives a 5x5 kernel. Zero disables the blur.
	BlurRadius int

	// MinComponentPixels drops edge fragments smaller than this (pure Go only).
	MinComponentPixels int
}

// DefaultOptions matches a 5x5 Gaussian followed by Canny(50, 150).
func DefaultOptions() Options {
	return Options{
		CannyLow:           50,
		CannyHigh:          150,
		BlurRadius:         2,
		MinComponentPixels: 10,
	}
}

// New returns the backend registered under name: "go" or "gocv".
func New(name string, opts Options) (Backend, error) {
	switch strings.ToLower(name) {
	case "", "go", "purego":
		return NewGoBackend(opts), nil
	case "gocv", "opencv":
		return NewCVBackend(opts)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrBackendUnavailable, name)
	}
}

// processingError tags err as a backend failure of op.
func processingError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackendProcessing, op, err)
}

// guard runs fn and turns a panic into a processing error.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = processingError(op, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := fn(); err != nil {
		if errors.Is(err, ErrBackendProcessing) {
			return err
		}
		return processingError(op, err)
	}
	return nil
}
