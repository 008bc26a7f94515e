package geometry

import "math"

// PolygonArea returns the absolute shoelace area of a closed polygon.
func PolygonArea(points []Point2D) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return math.Abs(sum) / 2
}

// PolygonPerimeter returns the arc length of the polygon, closing edge included.
func PolygonPerimeter(points []Point2D) float64 {
	n := len(points)
	if n < 2 {
		return 0
	}
	var length float64
	for i := 0; i < n; i++ {
		length += Distance(points[i], points[(i+1)%n])
	}
	return length
}

// IsConvex reports whether every turn of the polygon has the same sign.
// Collinear runs are ignored. Fewer than three vertices is never convex.
func IsConvex(points []Point2D) bool {
	n := len(points)
	if n < 3 {
		return false
	}
	sign := 0
	for i := 0; i < n; i++ {
		cross := crossProduct(points[i], points[(i+1)%n], points[(i+2)%n])
		if cross == 0 {
			continue
		}
		s := 1
		if cross < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return sign != 0
}

// ApproxPolygon simplifies a closed polygon with the Douglas-Peucker algorithm.
// The ring is split at the vertex farthest from the first one and each half
// is simplified independently; vertices within epsilon of the chord are dropped.
func ApproxPolygon(points []Point2D, epsilon float64) []Point2D {
	n := len(points)
	if n < 3 {
		out := make([]Point2D, n)
		copy(out, points)
		return out
	}

	far, farDist := 0, 0.0
	for i := 1; i < n; i++ {
		if d := Distance(points[0], points[i]); d > farDist {
			far, farDist = i, d
		}
	}
	if far == 0 {
		return []Point2D{points[0]}
	}

	keep := make([]bool, n)
	keep[0], keep[far] = true, true

	// end == n stands for vertex 0, closing the ring
	type span struct{ start, end int }
	stack := []span{{0, far}, {far, n}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.end-s.start < 2 {
			continue
		}

		a, b := points[s.start], points[s.end%n]
		idx, maxDist := -1, -1.0
		for i := s.start + 1; i < s.end; i++ {
			if d := segmentDistance(points[i], a, b); d > maxDist {
				idx, maxDist = i, d
			}
		}
		if maxDist > epsilon {
			keep[idx] = true
			stack = append(stack, span{s.start, idx}, span{idx, s.end})
		}
	}

	out := make([]Point2D, 0, 8)
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}

// crossProduct returns the z component of (b-a) x (c-b).
func crossProduct(a, b, c Point2D) float64 {
	return (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
}

// segmentDistance returns the distance from p to the segment a-b.
func segmentDistance(p, a, b Point2D) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Distance(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return Distance(p, Point2D{X: a.X + t*dx, Y: a.Y + t*dy})
}
