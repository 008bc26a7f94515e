// Package calibration turns a detected reference object into a
// pixels-per-centimetre scale and tracks whether the session is calibrated.
package calibration

import (
	"fmt"

	"github.com/ironsheep/board-gauge/internal/contour"
	"github.com/ironsheep/board-gauge/internal/geometry"
)

// Reference describes a physical object of known size.
type Reference struct {
	Name     string  `json:"name"`
	WidthCm  float64 `json:"width_cm"`
	HeightCm float64 `json:"height_cm"`
}

// CreditCard is an ID-1 card, 8.56cm x 5.40cm.
var CreditCard = Reference{Name: "credit card", WidthCm: 8.56, HeightCm: 5.40}

// AspectRatio returns the long/short side ratio of the reference.
func (r Reference) AspectRatio() float64 {
	return geometry.AspectRatio(geometry.Rect{Width: r.WidthCm, Height: r.HeightCm})
}

// ComputeScale returns pixels per centimetre for a reference of known width
// whose bounding box in the image is rect.
//
// The longer pixel side is always divided by knownWidthCm, whichever way the
// object is turned. This assumes the longer visible side is the object's
// width; the height is not consulted.
func ComputeScale(rect geometry.Rect, knownWidthCm float64) (float64, error) {
	if knownWidthCm <= 0 {
		return 0, fmt.Errorf("%w: known width %.3f cm", ErrInvalidScale, knownWidthCm)
	}
	if rect.Empty() {
		return 0, fmt.Errorf("%w: empty reference rectangle", ErrInvalidScale)
	}
	return rect.LongSide() / knownWidthCm, nil
}

// State is a snapshot of the calibration.
type State struct {
	// Calibrated is true once a calibration pass succeeded.
	Calibrated bool `json:"is_calibrated"`

	// PixelsPerCm is > 0 when Calibrated and meaningless otherwise.
	PixelsPerCm float64 `json:"pixels_per_cm"`
}

// Engine owns the calibration state of a session.
type Engine struct {
	reference Reference
	options   contour.ReferenceOptions
	state     State
}

// NewEngine creates an uncalibrated engine that looks for ref.
// The target aspect ratio in opts is taken from ref when left at zero.
func NewEngine(ref Reference, opts contour.ReferenceOptions) *Engine {
	if opts.TargetAspectRatio == 0 {
		opts.TargetAspectRatio = ref.AspectRatio()
	}
	return &Engine{reference: ref, options: opts}
}

// Reference returns the object the engine calibrates against.
func (e *Engine) Reference() Reference {
	return e.reference
}

// State returns the current calibration.
func (e *Engine) State() State {
	return e.state
}

// PixelsPerCm returns the scale, or 0 when not calibrated.
func (e *Engine) PixelsPerCm() float64 {
	if !e.state.Calibrated {
		return 0
	}
	return e.state.PixelsPerCm
}

// Calibrate selects the reference object among contours and updates the
// scale. On any failure the previous state is left untouched.
func (e *Engine) Calibrate(contours []contour.Contour) (float64, error) {
	if len(contours) == 0 {
		return 0, ErrNoContoursFound
	}

	idx := contour.SelectReferenceObject(contours, e.options)
	if idx == contour.NotFound {
		return 0, ErrReferenceObjectNotFound
	}

	scale, err := ComputeScale(contours[idx].BoundingRect(), e.reference.WidthCm)
	if err != nil {
		return 0, err
	}

	e.state = State{Calibrated: true, PixelsPerCm: scale}
	return scale, nil
}

// Restore seeds a previously measured scale, e.g. from configuration.
func (e *Engine) Restore(pixelsPerCm float64) error {
	if pixelsPerCm <= 0 {
		return fmt.Errorf("%w: %.3f pixels/cm", ErrInvalidScale, pixelsPerCm)
	}
	e.state = State{Calibrated: true, PixelsPerCm: pixelsPerCm}
	return nil
}

// Clear forgets the calibration.
func (e *Engine) Clear() {
	e.state = State{}
}
