//go:build !gocv

package capture

import "fmt"

// OpenCamera needs OpenCV; this build has none.
func OpenCamera(device int) (Source, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags gocv (device %d)", ErrCameraUnavailable, device)
}
