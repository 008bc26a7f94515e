package geometry

import (
	"image"
	"math"
)

// DefaultSizeTolerance is the relative area slack used by SizesNearlyEqual
// when callers have no better value.
const DefaultSizeTolerance = 0.2

// Rect is an axis-aligned bounding box in pixel space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromImage converts an image.Rectangle into a Rect.
func RectFromImage(r image.Rectangle) Rect {
	return Rect{
		X:      float64(r.Min.X),
		Y:      float64(r.Min.Y),
		Width:  float64(r.Dx()),
		Height: float64(r.Dy()),
	}
}

// Area returns width*height.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Empty reports whether the rectangle has no extent on either axis.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point2D {
	return Point2D{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Image returns the integer rectangle covering r.
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)),
		int(math.Ceil(r.Y+r.Height)),
	)
}

// LongSide returns the larger of width and height.
func (r Rect) LongSide() float64 {
	return math.Max(r.Width, r.Height)
}

// AspectRatio returns width/height normalized to be >= 1, so the value does
// not depend on the rectangle's orientation. A degenerate rectangle yields 0.
func AspectRatio(r Rect) float64 {
	if r.Empty() {
		return 0
	}
	ratio := r.Width / r.Height
	if ratio < 1 {
		ratio = 1 / ratio
	}
	return ratio
}

// SizesNearlyEqual reports whether the larger area is within (1+tolerance)
// times the smaller one. Rectangles with zero area never match.
func SizesNearlyEqual(r1, r2 Rect, tolerance float64) bool {
	a1, a2 := r1.Area(), r2.Area()
	if a1 <= 0 || a2 <= 0 {
		return false
	}
	return math.Max(a1, a2)/math.Min(a1, a2) <= 1+tolerance
}

// BoundingBox returns the smallest Rect enclosing all points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
