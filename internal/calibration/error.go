package calibration

import "errors"

var (
	// ErrNoContoursFound means the backend returned no contours for the frame.
	ErrNoContoursFound = errors.New("no contours found")

	// ErrReferenceObjectNotFound means no contour passed the reference gates.
	ErrReferenceObjectNotFound = errors.New("reference object not found")

	// ErrInvalidScale rejects a non-positive or degenerate scale input.
	ErrInvalidScale = errors.New("invalid calibration scale")
)
