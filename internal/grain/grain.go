// Package grain estimates wood-grain orientation inside a board outline and
// suggests a cut line from it.
//
// The estimate compares the summed absolute horizontal and vertical intensity
// gradients under the board's interior mask. Strong change along X means
// lines that run vertically, and the reverse.
package grain

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/board-gauge/internal/geometry"
)

// ErrDimensionMismatch is returned when a gradient field and mask disagree in size.
var ErrDimensionMismatch = errors.New("gradient field and mask dimensions differ")

// Direction is the dominant grain orientation.
type Direction int

const (
	// Horizontal grain runs along the image X axis.
	Horizontal Direction = iota
	// Vertical grain runs along the image Y axis.
	Vertical
)

func (d Direction) String() string {
	switch d {
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// MarshalText lets Direction appear as a word in JSON.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Field holds signed per-pixel X and Y gradients in row-major order.
type Field struct {
	Width  int
	Height int
	X      []float64
	Y      []float64
}

// Mask is a row-major binary mask; any non-zero value is inside.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// Count returns the number of set pixels.
func (m Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Energy is the masked gradient total along each axis.
type Energy struct {
	SumX float64 `json:"sum_x"`
	SumY float64 `json:"sum_y"`
}

// Direction classifies the energy. SumX > SumY means vertical grain; any
// other outcome, an exact tie included, is horizontal.
func (e Energy) Direction() Direction {
	if e.SumX > e.SumY {
		return Vertical
	}
	return Horizontal
}

// Measure sums |gx| and |gy| over every pixel set in mask.
func Measure(field Field, mask Mask) (Energy, error) {
	n := field.Width * field.Height
	if field.Width != mask.Width || field.Height != mask.Height ||
		len(field.X) != n || len(field.Y) != n || len(mask.Pix) != n {
		return Energy{}, fmt.Errorf("%w: field %dx%d, mask %dx%d",
			ErrDimensionMismatch, field.Width, field.Height, mask.Width, mask.Height)
	}

	gx := make([]float64, 0, n)
	gy := make([]float64, 0, n)
	for i, v := range mask.Pix {
		if v == 0 {
			continue
		}
		gx = append(gx, field.X[i])
		gy = append(gy, field.Y[i])
	}

	var e Energy
	if len(gx) > 0 {
		e.SumX = floats.Norm(gx, 1)
		e.SumY = floats.Norm(gy, 1)
	}
	return e, nil
}

// Detect returns the dominant grain direction under mask.
func Detect(field Field, mask Mask) (Direction, error) {
	e, err := Measure(field, mask)
	if err != nil {
		return Horizontal, err
	}
	return e.Direction(), nil
}

// CutLine is an advisory cut through a board's bounding box.
type CutLine struct {
	P1    geometry.Point2D `json:"p1"`
	P2    geometry.Point2D `json:"p2"`
	Label string           `json:"label"`
}

// SuggestedCutLine proposes a cut perpendicular to vertical grain (a
// horizontal line through the vertical midpoint of rect) or, for horizontal
// grain, a vertical line through the horizontal midpoint.
func SuggestedCutLine(dir Direction, rect geometry.Rect) CutLine {
	if dir == Vertical {
		y := rect.Y + rect.Height/2
		return CutLine{
			P1:    geometry.Pt(rect.X, y),
			P2:    geometry.Pt(rect.X+rect.Width, y),
			Label: "Suggested cut: across grain (horizontal)",
		}
	}
	x := rect.X + rect.Width/2
	return CutLine{
		P1:    geometry.Pt(x, rect.Y),
		P2:    geometry.Pt(x, rect.Y+rect.Height),
		Label: "Suggested cut: along grain (vertical)",
	}
}
