// Package vision wraps the pixel-level image processing the measurement core
// depends on: edge detection, contour extraction, gradient fields and
// contour masks.
//
// # Backends
//
// Two implementations of Backend are provided:
//
//   - GoBackend: pure Go. Grayscale conversion and Gaussian blur use bild,
//     followed by a Canny detector (Sobel gradients, non-maximum suppression,
//     hysteresis), connected-component labelling and Moore-neighbour boundary
//     tracing. Masks are filled with golang.org/x/image/vector.
//   - CVBackend: OpenCV through gocv. Only compiled with the "gocv" build tag;
//     without it NewCVBackend returns ErrBackendUnavailable.
//
// # Frame Lifetime
//
// ExtractContours returns a Frame that owns every contour handle it holds.
// Callers must Close the frame once the processing pass is over; after Close
// the contours are gone and Valid reports false. No handle may be kept
// across frames.
//
// # Errors
//
// Every backend failure, including a recovered panic inside a backend call,
// is reported wrapped in ErrBackendProcessing so callers can discard the
// frame with a single errors.Is check.
package vision
