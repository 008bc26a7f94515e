//go:build !gocv

package vision

// NewCVBackend reports that OpenCV support was not compiled in.
// Rebuild with -tags gocv to enable it.
func NewCVBackend(opts Options) (Backend, error) {
	return nil, ErrBackendUnavailable
}
