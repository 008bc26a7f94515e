//go:build gocv

package vision

import (
	"fmt"
	"image"
	"image/color"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/ironsheep/board-gauge/internal/contour"
	"github.com/ironsheep/board-gauge/internal/geometry"
	"github.com/ironsheep/board-gauge/internal/grain"
)

// CVBackend runs the pipeline through OpenCV.
type CVBackend struct {
	opts Options
}

// NewCVBackend returns an OpenCV-backed Backend.
func NewCVBackend(opts Options) (Backend, error) {
	return &CVBackend{opts: opts}, nil
}

func (b *CVBackend) Name() string { return "gocv" }

// cvContour is a view into a PointsVector owned by a Frame.
type cvContour struct {
	pv gocv.PointVector
}

func (c cvContour) Area() float64 {
	return gocv.ContourArea(c.pv)
}

func (c cvContour) BoundingRect() geometry.Rect {
	return geometry.RectFromImage(gocv.BoundingRect(c.pv))
}

func (c cvContour) Perimeter() float64 {
	return gocv.ArcLength(c.pv, true)
}

func (c cvContour) ApproxVertexCount(epsilon float64) int {
	approx := gocv.ApproxPolyDP(c.pv, epsilon, true)
	defer approx.Close()
	return approx.Size()
}

func (c cvContour) IsConvex() bool {
	return geometry.IsConvex(toPoints(c.pv.ToPoints()))
}

func (c cvContour) Outline() []geometry.Point2D {
	return toPoints(c.pv.ToPoints())
}

func toPoints(in []image.Point) []geometry.Point2D {
	out := make([]geometry.Point2D, len(in))
	for i, p := range in {
		out[i] = geometry.Pt(float64(p.X), float64(p.Y))
	}
	return out
}

// toGray converts img to a single-channel Mat.
func toGray(img image.Image) (gocv.Mat, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer src.Close()
	if src.Empty() {
		return gocv.Mat{}, fmt.Errorf("empty image")
	}

	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	return gray, nil
}

func (b *CVBackend) ExtractContours(img image.Image) (*Frame, error) {
	if img == nil {
		return nil, processingError("extract contours", fmt.Errorf("nil image"))
	}

	var frame *Frame
	err := guard("extract contours", func() (err error) {
		gray, err := toGray(img)
		if err != nil {
			return err
		}
		blurred := gocv.NewMat()
		edges := gocv.NewMat()
		defer func() {
			err = multierr.Combine(err, gray.Close(), blurred.Close(), edges.Close())
		}()

		if k := 2*b.opts.BlurRadius + 1; k > 1 {
			gocv.GaussianBlur(gray, &blurred, image.Pt(k, k), 0, 0, gocv.BorderDefault)
		} else {
			gray.CopyTo(&blurred)
		}
		gocv.Canny(blurred, &edges, float32(b.opts.CannyLow), float32(b.opts.CannyHigh))

		found := gocv.FindContours(edges, gocv.RetrievalList, gocv.ChainApproxSimple)
		contours := make([]contour.Contour, found.Size())
		for i := range contours {
			contours[i] = cvContour{pv: found.At(i)}
		}

		frame = NewFrame(gray.Cols(), gray.Rows(), contours, func() error {
			found.Close()
			return nil
		})
		return nil
	})
	if err != nil {
		if frame != nil {
			frame.Close()
		}
		return nil, err
	}
	return frame, nil
}

func (b *CVBackend) GradientField(img image.Image) (grain.Field, error) {
	var field grain.Field
	err := guard("gradient field", func() (err error) {
		gray, err := toGray(img)
		if err != nil {
			return err
		}
		sx := gocv.NewMat()
		sy := gocv.NewMat()
		defer func() {
			err = multierr.Combine(err, gray.Close(), sx.Close(), sy.Close())
		}()

		gocv.Sobel(gray, &sx, gocv.MatTypeCV64F, 1, 0, 3, 1, 0, gocv.BorderDefault)
		gocv.Sobel(gray, &sy, gocv.MatTypeCV64F, 0, 1, 3, 1, 0, gocv.BorderDefault)

		xs, err := sx.DataPtrFloat64()
		if err != nil {
			return err
		}
		ys, err := sy.DataPtrFloat64()
		if err != nil {
			return err
		}

		// Copy out: the Mats are released when this pass returns.
		field = grain.Field{
			Width:  gray.Cols(),
			Height: gray.Rows(),
			X:      append([]float64(nil), xs...),
			Y:      append([]float64(nil), ys...),
		}
		return nil
	})
	return field, err
}

func (b *CVBackend) RasterMask(c contour.Contour, width, height int) (grain.Mask, error) {
	cc, ok := c.(cvContour)
	if !ok {
		return grain.Mask{}, processingError("raster mask", ErrForeignContour)
	}

	var mask grain.Mask
	err := guard("raster mask", func() (err error) {
		m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8U)
		defer func() {
			err = multierr.Combine(err, m.Close())
		}()

		pvs := gocv.NewPointsVectorFromPoints([][]image.Point{cc.pv.ToPoints()})
		defer pvs.Close()
		gocv.DrawContours(&m, pvs, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

		mask = grain.Mask{Width: width, Height: height, Pix: m.ToBytes()}
		return nil
	})
	return mask, err
}

func (b *CVBackend) Close() error { return nil }
