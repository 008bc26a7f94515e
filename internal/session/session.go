// Package session holds the state of one measuring session: calibration,
// mode, clicked cut points and the board tracked in the current frame.
//
// A Session is not safe for concurrent use. Hosts that serve concurrent
// requests wrap it in a Guard.
package session

import (
	"errors"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/board-gauge/internal/calibration"
	"github.com/ironsheep/board-gauge/internal/contour"
	"github.com/ironsheep/board-gauge/internal/geometry"
	"github.com/ironsheep/board-gauge/internal/grain"
	"github.com/ironsheep/board-gauge/internal/measure"
	"github.com/ironsheep/board-gauge/internal/vision"
)

var (
	// ErrNoBoard is returned by SuggestCut when no board is tracked in the current pass.
	ErrNoBoard = errors.New("no board tracked in this frame")

	// ErrNoMeasurement is returned by Snapshot before any board was measured.
	ErrNoMeasurement = errors.New("nothing measured yet")
)

// Session is the per-user measuring state.
type Session struct {
	log    logrus.FieldLogger
	engine *calibration.Engine

	mode       Mode
	processing bool
	points     []geometry.Point2D

	// tracked is only set while a frame pass is running.
	tracked contour.Contour

	last *Measurement
}

// Measurement is the most recent board measurement, kept for export.
type Measurement struct {
	Board      geometry.Rect      `json:"board"`
	Dimensions measure.Dimensions `json:"dimensions"`
	Cut        *measure.Cut       `json:"cut,omitempty"`
}

// New returns an idle session in measure mode around engine.
func New(engine *calibration.Engine, logger logrus.FieldLogger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{
		log:    logger.WithField("component", "session"),
		engine: engine,
		mode:   ModeMeasure,
	}
}

func (s *Session) Mode() Mode { return s.mode }

func (s *Session) Processing() bool { return s.processing }

// Points returns a copy of the clicked cut points.
func (s *Session) Points() []geometry.Point2D {
	return append([]geometry.Point2D(nil), s.points...)
}

func (s *Session) Calibration() calibration.State { return s.engine.State() }

// Engine exposes the calibration engine for restore and clear.
func (s *Session) Engine() *calibration.Engine { return s.engine }

// LastMeasurement returns the latest board measurement, or nil.
func (s *Session) LastMeasurement() *Measurement {
	if s.last == nil {
		return nil
	}
	m := *s.last
	return &m
}

// OnCalibrate looks for the reference card among the frame's contours. A
// failed attempt leaves the previous calibration in place.
func (s *Session) OnCalibrate(frame *vision.Frame) (float64, error) {
	if !frame.Valid() {
		return 0, vision.ErrFrameClosed
	}
	s.processing = true

	scale, err := s.engine.Calibrate(frame.Contours)
	if err != nil {
		s.log.WithError(err).WithField("contours", len(frame.Contours)).Warn("calibration failed")
		return 0, err
	}
	s.log.WithField("pixels_per_cm", scale).Info("calibrated")
	return scale, nil
}

// StartMeasure begins tracking the board. It requires calibration and
// discards any clicked points.
func (s *Session) StartMeasure() error {
	if !s.engine.State().Calibrated {
		return measure.ErrNotCalibrated
	}
	s.processing = true
	s.points = nil
	return nil
}

// OnModeChange switches mode and resets the session, so measuring has to
// be started again in the new mode.
func (s *Session) OnModeChange(m Mode) {
	s.mode = m
	s.clear()
	s.log.WithField("mode", m).Debug("mode changed")
}

// OnReset stops processing and clears points, the tracked board and the last
// measurement. Calibration survives a reset.
func (s *Session) OnReset() {
	s.clear()
	s.log.Debug("reset")
}

func (s *Session) clear() {
	s.processing = false
	s.points = nil
	s.tracked = nil
	s.last = nil
}

// Tick is the result of one measuring pass.
type Tick struct {
	Idle   bool   `json:"idle"`
	Reason string `json:"reason,omitempty"`

	Found   bool               `json:"found"`
	Board   geometry.Rect      `json:"board"`
	Outline []geometry.Point2D `json:"outline,omitempty"`

	Dimensions    measure.Dimensions `json:"dimensions"`
	LengthDisplay string             `json:"length_display,omitempty"`
	WidthDisplay  string             `json:"width_display,omitempty"`

	// CutPoints and Cut are set in cut mode once two points are clicked.
	CutPoints []geometry.Point2D `json:"cut_points,omitempty"`
	Cut       *measure.Cut       `json:"cut,omitempty"`
}

// Idle reasons.
const (
	ReasonNotProcessing = "not processing"
	ReasonNotCalibrated = "not calibrated"
	ReasonNoObject      = "no object found"
)

// OnMeasureTick tracks the largest contour in frame and measures it. The
// tracked contour stays valid only until the frame is closed.
func (s *Session) OnMeasureTick(frame *vision.Frame) (Tick, error) {
	if !frame.Valid() {
		return Tick{}, vision.ErrFrameClosed
	}
	if !s.processing {
		return Tick{Idle: true, Reason: ReasonNotProcessing}, nil
	}

	idx := contour.SelectLargest(frame.Contours)
	if idx == contour.NotFound {
		s.tracked = nil
		return Tick{Idle: true, Reason: ReasonNoObject}, nil
	}
	s.tracked = frame.Contours[idx]

	tick := Tick{
		Found:   true,
		Board:   s.tracked.BoundingRect(),
		Outline: contour.Outline(s.tracked),
	}

	state := s.engine.State()
	if !state.Calibrated {
		tick.Idle = true
		tick.Reason = ReasonNotCalibrated
		return tick, nil
	}

	dims, err := measure.ObjectDimensions(tick.Board, state.PixelsPerCm)
	if err != nil {
		return Tick{}, err
	}
	tick.Dimensions = dims
	tick.LengthDisplay = dims.LengthDisplay()
	tick.WidthDisplay = dims.WidthDisplay()

	m := &Measurement{Board: tick.Board, Dimensions: dims}
	if s.mode == ModeCut && len(s.points) == 2 {
		cut, err := measure.CutMeasurement(s.points[0], s.points[1], state.PixelsPerCm)
		if err != nil {
			return Tick{}, err
		}
		tick.CutPoints = s.Points()
		tick.Cut = &cut
		m.Cut = &cut
	}
	s.last = m
	return tick, nil
}

// ClickStatus tells the host what a click did.
type ClickStatus string

const (
	ClickIgnored  ClickStatus = "ignored"
	ClickPending  ClickStatus = "pending"
	ClickComplete ClickStatus = "complete"
)

// Click is the result of OnCanvasClick.
type Click struct {
	Status ClickStatus        `json:"status"`
	Points []geometry.Point2D `json:"points,omitempty"`
	Cut    *measure.Cut       `json:"cut,omitempty"`
}

// OnCanvasClick records a cut point. Clicks count only while processing in
// cut mode. The second point completes a cut; a third starts a new one.
func (s *Session) OnCanvasClick(p geometry.Point2D) (Click, error) {
	if !s.processing || s.mode != ModeCut {
		return Click{Status: ClickIgnored}, nil
	}

	if len(s.points) >= 2 {
		s.points = s.points[:0]
		if s.last != nil {
			s.last.Cut = nil
		}
	}
	s.points = append(s.points, p)

	if len(s.points) < 2 {
		return Click{Status: ClickPending, Points: s.Points()}, nil
	}

	cut, err := measure.CutMeasurement(s.points[0], s.points[1], s.engine.PixelsPerCm())
	if err != nil {
		return Click{Status: ClickPending, Points: s.Points()}, err
	}
	if s.last != nil {
		s.last.Cut = &cut
	}
	s.log.WithFields(logrus.Fields{
		"distance_cm": cut.DistanceCm,
		"angle_deg":   cut.AngleDeg,
	}).Info("cut measured")
	return Click{Status: ClickComplete, Points: s.Points(), Cut: &cut}, nil
}

// Suggestion is a grain-based cut hint for the tracked board.
type Suggestion struct {
	Direction grain.Direction `json:"grain"`
	Energy    grain.Energy    `json:"energy"`
	Line      grain.CutLine   `json:"line"`
}

// SuggestCut runs the grain heuristic over the board tracked in this pass.
// img must be the frame the board was found in.
func (s *Session) SuggestCut(b vision.Backend, img image.Image) (Suggestion, error) {
	if s.tracked == nil {
		return Suggestion{}, ErrNoBoard
	}

	field, err := b.GradientField(img)
	if err != nil {
		return Suggestion{}, err
	}
	mask, err := b.RasterMask(s.tracked, field.Width, field.Height)
	if err != nil {
		return Suggestion{}, err
	}
	energy, err := grain.Measure(field, mask)
	if err != nil {
		return Suggestion{}, err
	}

	dir := energy.Direction()
	return Suggestion{
		Direction: dir,
		Energy:    energy,
		Line:      grain.SuggestedCutLine(dir, s.tracked.BoundingRect()),
	}, nil
}

// Snapshot returns what an export needs: the scale, the last measurement
// and the clicked points in pixels. Points are only returned together with
// the cut they make.
func (s *Session) Snapshot() (float64, Measurement, []geometry.Point2D, error) {
	state := s.engine.State()
	if !state.Calibrated {
		return 0, Measurement{}, nil, measure.ErrNotCalibrated
	}
	if s.last == nil {
		return 0, Measurement{}, nil, ErrNoMeasurement
	}
	m := *s.last
	if m.Cut == nil || len(s.points) != 2 {
		m.Cut = nil
		return state.PixelsPerCm, m, nil, nil
	}
	return state.PixelsPerCm, m, s.Points(), nil
}
