package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/board-gauge/internal/geometry"
)

// plot paints a square brush of the given thickness centred on (x, y).
func plot(img *image.NRGBA, x, y, thickness int, c color.NRGBA) {
	r := thickness / 2
	b := img.Bounds()
	for dy := -r; dy < thickness-r; dy++ {
		for dx := -r; dx < thickness-r; dx++ {
			px, py := x+dx, y+dy
			if px >= b.Min.X && px < b.Max.X && py >= b.Min.Y && py < b.Max.Y {
				img.SetNRGBA(px, py, c)
			}
		}
	}
}

// drawLine draws a Bresenham line. With dash > 0 the line alternates dash
// pixels on and dash pixels off.
func drawLine(img *image.NRGBA, a, b geometry.Point2D, thickness, dash int, c color.NRGBA) {
	x0, y0 := int(math.Round(a.X)), int(math.Round(a.Y))
	x1, y1 := int(math.Round(b.X)), int(math.Round(b.Y))

	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy

	for step := 0; ; step++ {
		if dash <= 0 || (step/dash)%2 == 0 {
			plot(img, x0, y0, thickness, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func drawPolygon(img *image.NRGBA, pts []geometry.Point2D, thickness int, c color.NRGBA) {
	for i := range pts {
		drawLine(img, pts[i], pts[(i+1)%len(pts)], thickness, 0, c)
	}
}

func drawRect(img *image.NRGBA, r geometry.Rect, thickness int, c color.NRGBA) {
	drawPolygon(img, []geometry.Point2D{
		geometry.Pt(r.X, r.Y),
		geometry.Pt(r.X+r.Width, r.Y),
		geometry.Pt(r.X+r.Width, r.Y+r.Height),
		geometry.Pt(r.X, r.Y+r.Height),
	}, thickness, c)
}

// drawLabel writes text with its baseline at (x, y) over a backing box,
// shifted as needed to stay inside the image.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(fg), Face: face}

	w := d.MeasureString(text).Ceil()
	m := face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()

	b := img.Bounds()
	x = clampInt(x, b.Min.X+1, b.Max.X-w-1)
	y = clampInt(y, b.Min.Y+ascent+1, b.Max.Y-descent-1)

	box := image.Rect(x-1, y-ascent-1, x+w+1, y+descent+1).Intersect(b)
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Over)

	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
