package geometry

import (
	"image"
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Point2D
		want float64
	}{
		{"same point", Pt(5, 5), Pt(5, 5), 0},
		{"horizontal", Pt(0, 0), Pt(10, 0), 10},
		{"3-4-5 triangle", Pt(0, 0), Pt(3, 4), 5},
		{"negative coords", Pt(-1, -1), Pt(2, 3), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance: got %f, want %f", got, tt.want)
			}
		})
	}
}

func TestAngleDegrees(t *testing.T) {
	tests := []struct {
		name string
		a, b Point2D
		want float64
	}{
		{"right", Pt(0, 0), Pt(10, 0), 0},
		{"left", Pt(10, 0), Pt(0, 0), 180},
		{"down", Pt(0, 0), Pt(0, 10), 90},
		{"up", Pt(0, 10), Pt(0, 0), -90},
		{"diagonal", Pt(0, 0), Pt(10, 10), 45},
		{"3-4-5", Pt(0, 0), Pt(3, 4), 53.13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AngleDegrees(tt.a, tt.b); math.Abs(got-tt.want) > 0.01 {
				t.Errorf("AngleDegrees: got %.2f, want %.2f", got, tt.want)
			}
		})
	}
}

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		name string
		r    Rect
		want float64
	}{
		{"landscape", Rect{Width: 200, Height: 100}, 2},
		{"portrait is inverted", Rect{Width: 100, Height: 200}, 2},
		{"square", Rect{Width: 50, Height: 50}, 1},
		{"card", Rect{Width: 856, Height: 540}, 856.0 / 540.0},
		{"zero height", Rect{Width: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AspectRatio(tt.r); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AspectRatio: got %f, want %f", got, tt.want)
			}
		})
	}
}

func TestSizesNearlyEqual(t *testing.T) {
	base := Rect{Width: 100, Height: 100}

	tests := []struct {
		name string
		r    Rect
		want bool
	}{
		{"identical", base, true},
		{"exactly at tolerance", Rect{Width: 120, Height: 100}, true},
		{"just over tolerance", Rect{Width: 121, Height: 100}, false},
		{"smaller within tolerance", Rect{Width: 90, Height: 100}, true},
		{"zero area", Rect{Width: 0, Height: 100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SizesNearlyEqual(base, tt.r, DefaultSizeTolerance); got != tt.want {
				t.Errorf("SizesNearlyEqual: got %v, want %v", got, tt.want)
			}
			if got := SizesNearlyEqual(tt.r, base, DefaultSizeTolerance); got != tt.want {
				t.Errorf("SizesNearlyEqual (swapped): got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRect_Helpers(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}

	if r.Area() != 1200 {
		t.Errorf("Area: got %f, want 1200", r.Area())
	}
	if c := r.Center(); c != Pt(25, 40) {
		t.Errorf("Center: got %v, want (25,40)", c)
	}
	if r.LongSide() != 40 {
		t.Errorf("LongSide: got %f, want 40", r.LongSide())
	}
	if got := r.Image(); got != image.Rect(10, 20, 40, 60) {
		t.Errorf("Image: got %v", got)
	}
	if got := RectFromImage(image.Rect(1, 2, 4, 8)); got != (Rect{X: 1, Y: 2, Width: 3, Height: 6}) {
		t.Errorf("RectFromImage: got %v", got)
	}
}

func TestBoundingBox(t *testing.T) {
	pts := []Point2D{Pt(5, 1), Pt(2, 8), Pt(9, 3)}
	want := Rect{X: 2, Y: 1, Width: 7, Height: 7}
	if got := BoundingBox(pts); got != want {
		t.Errorf("BoundingBox: got %v, want %v", got, want)
	}
	if got := BoundingBox(nil); got != (Rect{}) {
		t.Errorf("BoundingBox(nil): got %v, want zero", got)
	}
}

func TestPolygonAreaAndPerimeter(t *testing.T) {
	square := []Point2D{Pt(0, 0), Pt(10, 0), Pt(10, 10), Pt(0, 10)}
	if got := PolygonArea(square); got != 100 {
		t.Errorf("PolygonArea: got %f, want 100", got)
	}
	// Reversed winding must give the same magnitude.
	rev := []Point2D{Pt(0, 10), Pt(10, 10), Pt(10, 0), Pt(0, 0)}
	if got := PolygonArea(rev); got != 100 {
		t.Errorf("PolygonArea reversed: got %f, want 100", got)
	}
	if got := PolygonPerimeter(square); got != 40 {
		t.Errorf("PolygonPerimeter: got %f, want 40", got)
	}
	if got := PolygonArea(square[:2]); got != 0 {
		t.Errorf("PolygonArea degenerate: got %f, want 0", got)
	}
}

func TestIsConvex(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point2D
		want bool
	}{
		{"square", []Point2D{Pt(0, 0), Pt(10, 0), Pt(10, 10), Pt(0, 10)}, true},
		{"square with collinear point", []Point2D{Pt(0, 0), Pt(5, 0), Pt(10, 0), Pt(10, 10), Pt(0, 10)}, true},
		{"arrow", []Point2D{Pt(0, 0), Pt(10, 5), Pt(0, 10), Pt(3, 5)}, false},
		{"line", []Point2D{Pt(0, 0), Pt(5, 0), Pt(10, 0)}, false},
		{"two points", []Point2D{Pt(0, 0), Pt(1, 1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConvex(tt.pts); got != tt.want {
				t.Errorf("IsConvex: got %v, want %v", got, tt.want)
			}
		})
	}
}

// pixelRing returns the boundary pixels of a w x h rectangle in clockwise order.
func pixelRing(x0, y0, w, h int) []Point2D {
	var pts []Point2D
	for x := x0; x < x0+w; x++ {
		pts = append(pts, Pt(float64(x), float64(y0)))
	}
	for y := y0 + 1; y < y0+h; y++ {
		pts = append(pts, Pt(float64(x0+w-1), float64(y)))
	}
	for x := x0 + w - 2; x >= x0; x-- {
		pts = append(pts, Pt(float64(x), float64(y0+h-1)))
	}
	for y := y0 + h - 2; y > y0; y-- {
		pts = append(pts, Pt(float64(x0), float64(y)))
	}
	return pts
}

func TestApproxPolygon_Rectangle(t *testing.T) {
	ring := pixelRing(10, 10, 120, 80)
	eps := 0.02 * PolygonPerimeter(ring)

	got := ApproxPolygon(ring, eps)
	if len(got) != 4 {
		t.Fatalf("ApproxPolygon: got %d vertices (%v), want 4", len(got), got)
	}

	want := map[Point2D]bool{Pt(10, 10): true, Pt(129, 10): true, Pt(129, 89): true, Pt(10, 89): true}
	for _, p := range got {
		if !want[p] {
			t.Errorf("unexpected vertex %v", p)
		}
	}
}

func TestApproxPolygon_Triangle(t *testing.T) {
	// Dense sampling of a triangle outline.
	corners := []Point2D{Pt(0, 0), Pt(100, 0), Pt(50, 80)}
	var pts []Point2D
	for i := range corners {
		a, b := corners[i], corners[(i+1)%3]
		for s := 0; s < 20; s++ {
			f := float64(s) / 20
			pts = append(pts, Pt(a.X+(b.X-a.X)*f, a.Y+(b.Y-a.Y)*f))
		}
	}

	got := ApproxPolygon(pts, 0.02*PolygonPerimeter(pts))
	if len(got) != 3 {
		t.Errorf("ApproxPolygon: got %d vertices, want 3", len(got))
	}
}

func TestApproxPolygon_Degenerate(t *testing.T) {
	if got := ApproxPolygon([]Point2D{Pt(1, 1), Pt(2, 2)}, 1); len(got) != 2 {
		t.Errorf("two points: got %d, want 2", len(got))
	}
	same := []Point2D{Pt(3, 3), Pt(3, 3), Pt(3, 3)}
	if got := ApproxPolygon(same, 1); len(got) != 1 {
		t.Errorf("coincident points: got %d, want 1", len(got))
	}
}
