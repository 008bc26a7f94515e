package contour

import "github.com/ironsheep/board-gauge/internal/geometry"

// NotFound is returned by the selectors when no contour qualifies.
const NotFound = -1

// Contour is a traced boundary owned by a vision backend.
type Contour interface {
	// Area returns the enclosed area in square pixels.
	Area() float64

	// BoundingRect returns the axis-aligned box around the contour.
	BoundingRect() geometry.Rect

	// Perimeter returns the closed arc length in pixels.
	Perimeter() float64

	// ApproxVertexCount returns the number of vertices left after polygon
	// approximation with the given epsilon.
	ApproxVertexCount(epsilon float64) int

	// IsConvex reports whether the contour outline is convex.
	IsConvex() bool
}

// Outliner is implemented by contours that can hand out their vertices,
// copied so they outlive the frame.
type Outliner interface {
	Outline() []geometry.Point2D
}

// Outline returns a copy of c's vertices, or nil when c cannot provide them.
func Outline(c Contour) []geometry.Point2D {
	if o, ok := c.(Outliner); ok {
		return o.Outline()
	}
	return nil
}

// Polygon is a Contour backed by an ordered list of vertices.
type Polygon struct {
	Points []geometry.Point2D
	bounds geometry.Rect
}

// NewPolygon builds a Polygon whose bounding box is the exact extent of its points.
func NewPolygon(points []geometry.Point2D) *Polygon {
	return &Polygon{Points: points, bounds: geometry.BoundingBox(points)}
}

// NewPixelPolygon builds a Polygon from traced pixel centers. The bounding
// box covers whole pixels, so a contour through x=0..9 is 10 pixels wide.
func NewPixelPolygon(points []geometry.Point2D) *Polygon {
	b := geometry.BoundingBox(points)
	if len(points) > 0 {
		b.Width++
		b.Height++
	}
	return &Polygon{Points: points, bounds: b}
}

func (p *Polygon) Area() float64 {
	return geometry.PolygonArea(p.Points)
}

func (p *Polygon) BoundingRect() geometry.Rect {
	return p.bounds
}

func (p *Polygon) Perimeter() float64 {
	return geometry.PolygonPerimeter(p.Points)
}

func (p *Polygon) ApproxVertexCount(epsilon float64) int {
	return len(geometry.ApproxPolygon(p.Points, epsilon))
}

func (p *Polygon) IsConvex() bool {
	return geometry.IsConvex(p.Points)
}

func (p *Polygon) Outline() []geometry.Point2D {
	return append([]geometry.Point2D(nil), p.Points...)
}
