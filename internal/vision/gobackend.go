package vision

import (
	"fmt"
	"image"

	"github.com/ironsheep/board-gauge/internal/contour"
	"github.com/ironsheep/board-gauge/internal/grain"
)

// GoBackend is a pure-Go Backend. It is safe for concurrent use; all state
// lives in the frames it returns.
type GoBackend struct {
	opts Options
}

// NewGoBackend returns a pure-Go backend tuned by opts.
func NewGoBackend(opts Options) *GoBackend {
	return &GoBackend{opts: opts}
}

func (b *GoBackend) Name() string { return "go" }

// ExtractContours finds the outer boundary of every edge component in img.
// Components nested inside others are returned too.
func (b *GoBackend) ExtractContours(img image.Image) (*Frame, error) {
	if img == nil {
		return nil, processingError("extract contours", fmt.Errorf("nil image"))
	}

	var frame *Frame
	err := guard("extract contours", func() error {
		p := blurredPlane(img, b.opts.BlurRadius)
		if p.w == 0 || p.h == 0 {
			return fmt.Errorf("empty image")
		}
		edges := canny(p, b.opts.CannyLow, b.opts.CannyHigh)

		labels := acquireLabels(p.w * p.h)
		comps := labelComponents(edges, p.w, p.h, b.opts.MinComponentPixels, *labels)

		contours := make([]contour.Contour, 0, len(comps))
		for _, c := range comps {
			pts := traceBoundary(*labels, p.w, p.h, c)
			contours = append(contours, contour.NewPixelPolygon(pts))
		}

		frame = NewFrame(p.w, p.h, contours, func() error {
			recycleLabels(labels)
			return nil
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// GradientField returns the Sobel derivatives of img's unblurred luminance.
func (b *GoBackend) GradientField(img image.Image) (grain.Field, error) {
	if img == nil {
		return grain.Field{}, processingError("gradient field", fmt.Errorf("nil image"))
	}
	var field grain.Field
	err := guard("gradient field", func() error {
		p := grayPlane(img)
		gx, gy := sobel(p)
		field = grain.Field{Width: p.w, Height: p.h, X: gx, Y: gy}
		return nil
	})
	return field, err
}

// RasterMask fills a contour produced by this backend.
func (b *GoBackend) RasterMask(c contour.Contour, width, height int) (grain.Mask, error) {
	poly, ok := c.(*contour.Polygon)
	if !ok {
		return grain.Mask{}, processingError("raster mask", ErrForeignContour)
	}
	var mask grain.Mask
	err := guard("raster mask", func() error {
		var err error
		mask, err = fillPolygon(poly.Points, width, height)
		return err
	})
	return mask, err
}

func (b *GoBackend) Close() error { return nil }
