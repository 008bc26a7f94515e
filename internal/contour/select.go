package contour

import (
	"math"

	"github.com/ironsheep/board-gauge/internal/geometry"
)

// SelectLargest returns the index of the contour with the greatest area.
// Ties keep the earliest contour. An empty input, or one where every area is
// zero, yields NotFound.
func SelectLargest(contours []Contour) int {
	best := NotFound
	maxArea := 0.0
	for i, c := range contours {
		if area := c.Area(); area > maxArea {
			maxArea = area
			best = i
		}
	}
	return best
}

// ReferenceOptions gates and scores candidates in SelectReferenceObject.
type ReferenceOptions struct {
	// TargetAspectRatio is the long/short side ratio of the reference object.
	TargetAspectRatio float64

	// MinArea rejects contours smaller than this many square pixels.
	MinArea float64

	// MaxAspectDeviation is the largest accepted |aspect - target|.
	MaxAspectDeviation float64

	// EpsilonFactor scales the perimeter into the polygon approximation epsilon.
	EpsilonFactor float64

	// RequireConvex additionally rejects non-convex outlines.
	RequireConvex bool
}

// CardAspectRatio is the ISO/IEC 7810 ID-1 long/short ratio (85.6mm x 54.0mm).
const CardAspectRatio = 8.56 / 5.40

// DefaultReferenceOptions returns the gates used for credit-card detection.
func DefaultReferenceOptions() ReferenceOptions {
	return ReferenceOptions{
		TargetAspectRatio:  CardAspectRatio,
		MinArea:            5000,
		MaxAspectDeviation: 0.5,
		EpsilonFactor:      0.02,
	}
}

// SelectReferenceObject returns the index of the four-cornered contour whose
// bounding-box aspect ratio is closest to opts.TargetAspectRatio.
//
// Candidates must reach opts.MinArea and approximate to exactly four vertices.
// The scan keeps the global minimum of |aspect - target|; the first contour
// seen wins a tie. If even the best score exceeds opts.MaxAspectDeviation the
// result is NotFound.
//
// This is a nearest-ratio match, not a rectangle fit: a non-card quadrilateral
// with a closer ratio than the real card will be picked instead.
func SelectReferenceObject(contours []Contour, opts ReferenceOptions) int {
	best := NotFound
	bestScore := math.Inf(1)

	for i, c := range contours {
		if c.Area() < opts.MinArea {
			continue
		}
		if c.ApproxVertexCount(opts.EpsilonFactor*c.Perimeter()) != 4 {
			continue
		}
		if opts.RequireConvex && !c.IsConvex() {
			continue
		}

		score := math.Abs(geometry.AspectRatio(c.BoundingRect()) - opts.TargetAspectRatio)
		if score < bestScore {
			bestScore = score
			best = i
		}
	}

	if bestScore > opts.MaxAspectDeviation {
		return NotFound
	}
	return best
}
