package vision

import (
	"fmt"
	"image"

	"golang.org/x/image/vector"

	"github.com/ironsheep/board-gauge/internal/geometry"
	"github.com/ironsheep/board-gauge/internal/grain"
)

// fillPolygon rasterises the closed polygon into a width x height mask.
// Points are pixel centres; any pixel the fill touches is set.
func fillPolygon(points []geometry.Point2D, width, height int) (grain.Mask, error) {
	if width <= 0 || height <= 0 {
		return grain.Mask{}, fmt.Errorf("invalid mask size %dx%d", width, height)
	}
	mask := grain.Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
	if len(points) < 3 {
		// Too thin to enclose anything; mark the pixels themselves.
		for _, p := range points {
			x, y := int(p.X), int(p.Y)
			if x >= 0 && y >= 0 && x < width && y < height {
				mask.Pix[y*width+x] = 255
			}
		}
		return mask, nil
	}

	r := vector.NewRasterizer(width, height)
	r.MoveTo(float32(points[0].X+0.5), float32(points[0].Y+0.5))
	for _, p := range points[1:] {
		r.LineTo(float32(p.X+0.5), float32(p.Y+0.5))
	}
	r.ClosePath()

	alpha := image.NewAlpha(image.Rect(0, 0, width, height))
	r.Draw(alpha, alpha.Bounds(), image.Opaque, image.Point{})

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if alpha.Pix[y*alpha.Stride+x] > 0 {
				mask.Pix[y*width+x] = 255
			}
		}
	}
	return mask, nil
}
