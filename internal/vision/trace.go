package vision

import (
	"sync"

	"github.com/ironsheep/board-gauge/internal/geometry"
)

// labelPool recycles component label buffers between frames.
var labelPool sync.Pool // stores *[]int32

func acquireLabels(n int) *[]int32 {
	if v := labelPool.Get(); v != nil {
		buf := v.(*[]int32)
		if cap(*buf) >= n {
			*buf = (*buf)[:n]
			clear(*buf)
			return buf
		}
	}
	buf := make([]int32, n)
	return &buf
}

func recycleLabels(buf *[]int32) {
	if buf != nil && *buf != nil {
		labelPool.Put(buf)
	}
}

// component is one 8-connected group of edge pixels.
type component struct {
	label      int32
	pixels     int
	startX     int
	startY     int
	minX, minY int
	maxX, maxY int
}

// labelComponents assigns a label to every 8-connected edge group with an
// iterative flood fill. Groups smaller than minPixels are returned unlabelled
// (their pixels keep label -1) so tracing skips them.
func labelComponents(edges []bool, w, h, minPixels int, labels []int32) []component {
	var comps []component
	next := int32(1)
	stack := make([]int, 0, 256)
	members := make([]int, 0, 256)

	for start, isEdge := range edges {
		if !isEdge || labels[start] != 0 {
			continue
		}

		c := component{
			label:  next,
			startX: start % w, startY: start / w,
			minX: w, minY: h, maxX: -1, maxY: -1,
		}
		members = members[:0]
		stack = append(stack[:0], start)
		labels[start] = next

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, i)

			x, y := i%w, i/w
			c.minX, c.maxX = min(c.minX, x), max(c.maxX, x)
			c.minY, c.maxY = min(c.minY, y), max(c.maxY, y)

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					j := ny*w + nx
					if edges[j] && labels[j] == 0 {
						labels[j] = next
						stack = append(stack, j)
					}
				}
			}
		}

		c.pixels = len(members)
		if c.pixels < minPixels {
			for _, i := range members {
				labels[i] = -1
			}
			continue
		}
		comps = append(comps, c)
		next++
	}
	return comps
}

// Clockwise Moore neighbourhood in image coordinates: E, SE, S, SW, W, NW, N, NE.
var (
	mooreDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	mooreDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

const mooreWest = 4

// traceBoundary follows the outer boundary of component c clockwise using
// Moore-neighbour tracing and returns the corner points, with straight runs
// collapsed to their end points.
func traceBoundary(labels []int32, w, h int, c component) []geometry.Point2D {
	inside := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && labels[y*w+x] == c.label
	}

	// The first pixel in raster order is on the outer boundary and its west
	// neighbour is background.
	sx, sy := c.startX, c.startY
	pts := []geometry.Point2D{geometry.Pt(float64(sx), float64(sy))}

	cx, cy := sx, sy
	back := mooreWest
	maxSteps := 4*(c.maxX-c.minX+1)*(c.maxY-c.minY+1) + 8

	for step := 0; step < maxSteps; step++ {
		found := -1
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			if inside(cx+mooreDX[d], cy+mooreDY[d]) {
				found = d
				break
			}
		}
		if found < 0 {
			break // isolated pixel
		}

		nx, ny := cx+mooreDX[found], cy+mooreDY[found]
		// Entering the second point again from the start closes the loop.
		if cx == sx && cy == sy && len(pts) > 1 &&
			pts[1].X == float64(nx) && pts[1].Y == float64(ny) {
			break
		}

		// The neighbour checked just before the hit, seen from the new pixel.
		prev := (found + 7) % 8
		bx, by := cx+mooreDX[prev], cy+mooreDY[prev]
		back = directionOf(bx-nx, by-ny)

		cx, cy = nx, ny
		pts = append(pts, geometry.Pt(float64(cx), float64(cy)))
	}

	// The loop ends on the start pixel; drop the duplicate.
	if n := len(pts); n > 1 && pts[n-1] == pts[0] {
		pts = pts[:n-1]
	}
	return compressRuns(pts)
}

// directionOf returns the Moore index of the unit offset (dx, dy).
func directionOf(dx, dy int) int {
	for i := range mooreDX {
		if mooreDX[i] == dx && mooreDY[i] == dy {
			return i
		}
	}
	return mooreWest
}

// compressRuns removes points lying strictly inside a straight run of the
// closed boundary, keeping only where the direction changes.
func compressRuns(pts []geometry.Point2D) []geometry.Point2D {
	n := len(pts)
	if n < 3 {
		return pts
	}
	out := make([]geometry.Point2D, 0, n/4+4)
	for i := 0; i < n; i++ {
		a, b, c := pts[(i+n-1)%n], pts[i], pts[(i+1)%n]
		d1x, d1y := b.X-a.X, b.Y-a.Y
		d2x, d2y := c.X-b.X, c.Y-b.Y
		if d1x*d2y-d1y*d2x == 0 && d1x*d2x+d1y*d2y > 0 {
			continue
		}
		out = append(out, b)
	}
	return out
}
