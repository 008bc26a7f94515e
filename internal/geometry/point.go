// Package geometry provides the pixel-space primitives shared by contour
// selection, calibration and measurement.
package geometry

import "math"

// Point2D is a point in image pixel coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point2D{X: x, Y: y}.
func Pt(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point2D) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// AngleDegrees returns the signed angle of the vector a->b in degrees,
// measured with atan2 in image coordinates (Y grows downward).
func AngleDegrees(a, b Point2D) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point2D) Point2D {
	return Point2D{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Div returns p with both coordinates divided by factor.
func (p Point2D) Div(factor float64) Point2D {
	return Point2D{X: p.X / factor, Y: p.Y / factor}
}
