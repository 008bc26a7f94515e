//go:build gocv

package capture

import (
	"fmt"
	"image"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// CameraSource reads frames from a local video device.
type CameraSource struct {
	cap *gocv.VideoCapture
	mat gocv.Mat
}

// OpenCamera opens the video device with the given index.
func OpenCamera(device int) (Source, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrCameraUnavailable, device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d not opened", ErrCameraUnavailable, device)
	}
	return &CameraSource{cap: vc, mat: gocv.NewMat()}, nil
}

func (c *CameraSource) Read() (image.Image, error) {
	if ok := c.cap.Read(&c.mat); !ok {
		return nil, ErrExhausted
	}
	if c.mat.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	return c.mat.ToImage()
}

func (c *CameraSource) Close() error {
	return multierr.Combine(c.mat.Close(), c.cap.Close())
}
