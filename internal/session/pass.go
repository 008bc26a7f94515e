package session

import (
	"errors"
	"image"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/ironsheep/board-gauge/internal/vision"
)

// Pass is everything one processed frame produced.
type Pass struct {
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Contours   int           `json:"contours"`
	Tick       Tick          `json:"tick"`
	Suggestion *Suggestion   `json:"suggestion,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// ProcessFrame runs one measuring pass over img: extract contours, tick,
// and with suggest set, the grain hint. The frame is released before
// returning. A failed pass leaves the last measurement unchanged.
func (s *Session) ProcessFrame(b vision.Backend, img image.Image, suggest bool) (pass Pass, err error) {
	start := time.Now()

	frame, err := b.ExtractContours(img)
	if err != nil {
		s.log.WithError(err).Warn("frame discarded")
		return Pass{}, err
	}
	defer func() {
		s.tracked = nil
		err = multierr.Append(err, frame.Close())
	}()

	pass.Width, pass.Height = frame.Width, frame.Height
	pass.Contours = len(frame.Contours)

	last := s.last
	pass.Tick, err = s.OnMeasureTick(frame)
	if err != nil {
		s.last = last
		return Pass{}, err
	}

	if suggest && pass.Tick.Found {
		sug, err := s.SuggestCut(b, img)
		switch {
		case err == nil:
			pass.Suggestion = &sug
		case errors.Is(err, vision.ErrBackendProcessing):
			// The hint is advisory; the measurement stands.
			s.log.WithError(err).Warn("grain hint skipped")
		default:
			s.last = last
			return Pass{}, err
		}
	}

	pass.Elapsed = time.Since(start)
	return pass, nil
}

// CalibrateImage runs a calibration pass over img and releases its frame.
func (s *Session) CalibrateImage(b vision.Backend, img image.Image) (scale float64, err error) {
	frame, err := b.ExtractContours(img)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Append(err, frame.Close())
	}()
	return s.OnCalibrate(frame)
}

// Guard serialises access to a Session so passes and clicks never overlap.
type Guard struct {
	mu sync.Mutex
	s  *Session
}

// NewGuard wraps s.
func NewGuard(s *Session) *Guard {
	return &Guard{s: s}
}

// Do runs fn with exclusive access to the session.
func (g *Guard) Do(fn func(*Session) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.s)
}
