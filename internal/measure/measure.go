// Package measure converts pixel geometry into real-world lengths once a
// pixels-per-centimetre scale is known.
package measure

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/board-gauge/internal/geometry"
)

// ErrNotCalibrated is returned when a measurement needs a scale and none is set.
var ErrNotCalibrated = errors.New("not calibrated")

// Dimensions is the real-world size of an object's bounding box.
type Dimensions struct {
	LengthCm float64 `json:"length_cm"`
	WidthCm  float64 `json:"width_cm"`
}

// ObjectDimensions converts the bounding box of an object into centimetres.
// Length follows the rectangle width and width follows its height.
func ObjectDimensions(rect geometry.Rect, pixelsPerCm float64) (Dimensions, error) {
	if pixelsPerCm <= 0 {
		return Dimensions{}, ErrNotCalibrated
	}
	return Dimensions{
		LengthCm: rect.Width / pixelsPerCm,
		WidthCm:  rect.Height / pixelsPerCm,
	}, nil
}

// LengthDisplay returns the formatted length.
func (d Dimensions) LengthDisplay() string {
	return FormatLength(d.LengthCm)
}

// WidthDisplay returns the formatted width.
func (d Dimensions) WidthDisplay() string {
	return FormatLength(d.WidthCm)
}

// FormatLength renders a length for display: under one centimetre it is shown
// in millimetres with one decimal, otherwise in centimetres with two.
func FormatLength(cm float64) string {
	if cm < 1 {
		return fmt.Sprintf("%.1f mm", cm*10)
	}
	return fmt.Sprintf("%.2f cm", cm)
}

// FormatAngle renders an angle in degrees with one decimal.
func FormatAngle(deg float64) string {
	return fmt.Sprintf("%.1f°", deg)
}

// Cut is the result of a two-point cut measurement.
type Cut struct {
	DistanceCm float64 `json:"distance_cm"`

	// AngleDeg is the unsigned angle of the cut against the image X axis.
	AngleDeg float64 `json:"angle_deg"`
}

// DistanceDisplay returns the distance with two decimals.
func (c Cut) DistanceDisplay() string {
	return fmt.Sprintf("%.2f cm", c.DistanceCm)
}

// AngleDisplay returns the formatted angle.
func (c Cut) AngleDisplay() string {
	return FormatAngle(c.AngleDeg)
}

// CutMeasurement measures the segment p1-p2. The sign of the angle is dropped.
func CutMeasurement(p1, p2 geometry.Point2D, pixelsPerCm float64) (Cut, error) {
	if pixelsPerCm <= 0 {
		return Cut{}, ErrNotCalibrated
	}
	return Cut{
		DistanceCm: geometry.Distance(p1, p2) / pixelsPerCm,
		AngleDeg:   math.Abs(geometry.AngleDegrees(p1, p2)),
	}, nil
}

// PointsToCm rescales pixel points into centimetres.
func PointsToCm(points []geometry.Point2D, pixelsPerCm float64) ([]geometry.Point2D, error) {
	if pixelsPerCm <= 0 {
		return nil, ErrNotCalibrated
	}
	out := make([]geometry.Point2D, len(points))
	for i, p := range points {
		out[i] = p.Div(pixelsPerCm)
	}
	return out, nil
}

// DistanceResult describes the segment between two pixel points.
type DistanceResult struct {
	DistancePixels float64 `json:"distance_pixels"`
	DeltaX         float64 `json:"delta_x"`
	DeltaY         float64 `json:"delta_y"`
	AngleDegrees   float64 `json:"angle_degrees"`

	// DistanceCm is only set when a scale was supplied.
	DistanceCm      float64 `json:"distance_cm,omitempty"`
	DistanceDisplay string  `json:"distance_display,omitempty"`
}

// MeasureDistance reports the pixel distance and signed angle between p1 and
// p2, rounded for display. A positive pixelsPerCm adds the length in cm.
func MeasureDistance(p1, p2 geometry.Point2D, pixelsPerCm float64) *DistanceResult {
	distance := geometry.Distance(p1, p2)

	result := &DistanceResult{
		DistancePixels: math.Round(distance*100) / 100,
		DeltaX:         p2.X - p1.X,
		DeltaY:         p2.Y - p1.Y,
		AngleDegrees:   math.Round(geometry.AngleDegrees(p1, p2)*10) / 10,
	}
	if pixelsPerCm > 0 {
		cm := distance / pixelsPerCm
		result.DistanceCm = math.Round(cm*100) / 100
		result.DistanceDisplay = FormatLength(cm)
	}
	return result
}
