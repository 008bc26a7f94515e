package session

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/board-gauge/internal/calibration"
	"github.com/ironsheep/board-gauge/internal/contour"
	"github.com/ironsheep/board-gauge/internal/geometry"
	"github.com/ironsheep/board-gauge/internal/grain"
	"github.com/ironsheep/board-gauge/internal/measure"
	"github.com/ironsheep/board-gauge/internal/vision"
)

// fakeBackend hands out fixed contours and gradients.
type fakeBackend struct {
	contours []contour.Contour
	err      error
	field    grain.Field
	fieldErr error
	frames   []*vision.Frame
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) ExtractContours(img image.Image) (*vision.Frame, error) {
	if f.err != nil {
		return nil, f.err
	}
	b := img.Bounds()
	fr := vision.NewFrame(b.Dx(), b.Dy(), append([]contour.Contour(nil), f.contours...), nil)
	f.frames = append(f.frames, fr)
	return fr, nil
}

func (f *fakeBackend) GradientField(image.Image) (grain.Field, error) {
	return f.field, f.fieldErr
}

func (f *fakeBackend) RasterMask(c contour.Contour, w, h int) (grain.Mask, error) {
	return vision.NewGoBackend(vision.DefaultOptions()).RasterMask(c, w, h)
}

func (f *fakeBackend) Close() error { return nil }

func rectPoly(x, y, w, h float64) *contour.Polygon {
	return contour.NewPolygon([]geometry.Point2D{
		geometry.Pt(x, y), geometry.Pt(x+w, y), geometry.Pt(x+w, y+h), geometry.Pt(x, y+h),
	})
}

// card is a credit card at exactly 20 px/cm.
func card() *contour.Polygon { return rectPoly(10, 10, 171.2, 108) }

func board() *contour.Polygon { return rectPoly(50, 40, 400, 200) }

func uniformField(w, h int, gx, gy float64) grain.Field {
	f := grain.Field{Width: w, Height: h, X: make([]float64, w*h), Y: make([]float64, w*h)}
	for i := range f.X {
		f.X[i], f.Y[i] = gx, gy
	}
	return f
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newSession() *Session {
	return New(calibration.NewEngine(calibration.CreditCard, contour.DefaultReferenceOptions()), quietLogger())
}

func frameOf(cs ...contour.Contour) *vision.Frame {
	return vision.NewFrame(500, 300, cs, nil)
}

func approxEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// calibrated returns a session calibrated at 20 px/cm and measuring.
func calibrated(t *testing.T) *Session {
	t.Helper()
	s := newSession()
	if _, err := s.OnCalibrate(frameOf(card())); err != nil {
		t.Fatalf("OnCalibrate failed: %v", err)
	}
	if err := s.StartMeasure(); err != nil {
		t.Fatalf("StartMeasure failed: %v", err)
	}
	return s
}

// cutting returns a calibrated session measuring in cut mode.
func cutting(t *testing.T) *Session {
	t.Helper()
	s := calibrated(t)
	s.OnModeChange(ModeCut)
	if err := s.StartMeasure(); err != nil {
		t.Fatalf("StartMeasure failed: %v", err)
	}
	return s
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"measure", ModeMeasure, false},
		{"cut", ModeCut, false},
		{" CUT ", ModeCut, false},
		{"trim", ModeMeasure, true},
		{"", ModeMeasure, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownMode) {
				t.Errorf("error %v is not ErrUnknownMode", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMode_TextRoundTrip(t *testing.T) {
	var m Mode
	if err := m.UnmarshalText([]byte("cut")); err != nil || m != ModeCut {
		t.Fatalf("UnmarshalText: %v, %v", m, err)
	}
	if b, _ := m.MarshalText(); string(b) != "cut" {
		t.Errorf("MarshalText: got %q", b)
	}
}

func TestStartMeasure_RequiresCalibration(t *testing.T) {
	s := newSession()
	if err := s.StartMeasure(); !errors.Is(err, measure.ErrNotCalibrated) {
		t.Errorf("got %v, want ErrNotCalibrated", err)
	}
	if s.Processing() {
		t.Error("processing started without calibration")
	}
}

func TestOnCalibrate(t *testing.T) {
	s := newSession()
	scale, err := s.OnCalibrate(frameOf(board(), card()))
	if err != nil {
		t.Fatalf("OnCalibrate failed: %v", err)
	}
	if !approxEqual(scale, 20, 1e-9) {
		t.Errorf("scale: got %v, want 20", scale)
	}
	if !s.Processing() || !s.Calibration().Calibrated {
		t.Error("expected calibrated and processing")
	}
}

func TestOnCalibrate_FailureKeepsPreviousScale(t *testing.T) {
	s := calibrated(t)

	if _, err := s.OnCalibrate(frameOf()); !errors.Is(err, calibration.ErrNoContoursFound) {
		t.Errorf("empty frame: got %v", err)
	}
	if _, err := s.OnCalibrate(frameOf(board())); !errors.Is(err, calibration.ErrReferenceObjectNotFound) {
		t.Errorf("no card: got %v", err)
	}
	if got := s.Calibration().PixelsPerCm; got != 20 {
		t.Errorf("scale changed to %v", got)
	}
}

func TestOnCalibrate_ClosedFrame(t *testing.T) {
	s := newSession()
	f := frameOf(card())
	f.Close()
	if _, err := s.OnCalibrate(f); !errors.Is(err, vision.ErrFrameClosed) {
		t.Errorf("got %v, want ErrFrameClosed", err)
	}
}

func TestOnMeasureTick_Idle(t *testing.T) {
	t.Run("not processing", func(t *testing.T) {
		s := newSession()
		tick, err := s.OnMeasureTick(frameOf(board()))
		if err != nil || !tick.Idle || tick.Reason != ReasonNotProcessing {
			t.Errorf("got %+v, %v", tick, err)
		}
	})

	t.Run("no object", func(t *testing.T) {
		s := calibrated(t)
		tick, err := s.OnMeasureTick(frameOf())
		if err != nil || !tick.Idle || tick.Reason != ReasonNoObject || tick.Found {
			t.Errorf("got %+v, %v", tick, err)
		}
	})

	t.Run("uncalibrated still tracks", func(t *testing.T) {
		s := newSession()
		s.OnCalibrate(frameOf()) // fails but starts processing
		tick, err := s.OnMeasureTick(frameOf(board()))
		if err != nil {
			t.Fatal(err)
		}
		if !tick.Idle || tick.Reason != ReasonNotCalibrated || !tick.Found {
			t.Errorf("got %+v", tick)
		}
		if tick.Board.Width != 400 {
			t.Errorf("board width: got %v", tick.Board.Width)
		}
	})
}

func TestOnMeasureTick_Measures(t *testing.T) {
	s := calibrated(t)
	tick, err := s.OnMeasureTick(frameOf(card(), board()))
	if err != nil {
		t.Fatalf("OnMeasureTick failed: %v", err)
	}
	if tick.Idle || !tick.Found {
		t.Fatalf("unexpected idle tick: %+v", tick)
	}
	if tick.LengthDisplay != "20.00 cm" || tick.WidthDisplay != "10.00 cm" {
		t.Errorf("displays: got %q x %q", tick.LengthDisplay, tick.WidthDisplay)
	}
	if len(tick.Outline) != 4 {
		t.Errorf("outline: got %d points", len(tick.Outline))
	}
	if tick.Cut != nil {
		t.Error("cut reported in measure mode")
	}
	if m := s.LastMeasurement(); m == nil || m.Dimensions.LengthCm != 20 {
		t.Errorf("last measurement: %+v", m)
	}
}

func TestOnCanvasClick(t *testing.T) {
	s := calibrated(t)

	if c, _ := s.OnCanvasClick(geometry.Pt(1, 1)); c.Status != ClickIgnored {
		t.Errorf("measure mode click: got %v, want ignored", c.Status)
	}

	s.OnModeChange(ModeCut)
	if c, _ := s.OnCanvasClick(geometry.Pt(1, 1)); c.Status != ClickIgnored {
		t.Errorf("click after mode change: got %v, want ignored", c.Status)
	}
	if err := s.StartMeasure(); err != nil {
		t.Fatal(err)
	}
	c, err := s.OnCanvasClick(geometry.Pt(0, 0))
	if err != nil || c.Status != ClickPending || len(c.Points) != 1 {
		t.Fatalf("first click: %+v, %v", c, err)
	}

	c, err = s.OnCanvasClick(geometry.Pt(60, 80))
	if err != nil || c.Status != ClickComplete {
		t.Fatalf("second click: %+v, %v", c, err)
	}
	if !approxEqual(c.Cut.DistanceCm, 5, 1e-9) || !approxEqual(c.Cut.AngleDeg, 53.13, 0.01) {
		t.Errorf("cut: got %+v", c.Cut)
	}

	// A third click restarts with just that point.
	c, err = s.OnCanvasClick(geometry.Pt(5, 5))
	if err != nil || c.Status != ClickPending {
		t.Fatalf("third click: %+v, %v", c, err)
	}
	if pts := s.Points(); len(pts) != 1 || pts[0] != geometry.Pt(5, 5) {
		t.Errorf("points after restart: %v", pts)
	}
}

func TestOnCanvasClick_IgnoredWhenIdle(t *testing.T) {
	s := newSession()
	s.OnModeChange(ModeCut)
	if c, _ := s.OnCanvasClick(geometry.Pt(1, 1)); c.Status != ClickIgnored {
		t.Errorf("got %v, want ignored", c.Status)
	}
}

func TestOnMeasureTick_CutSegment(t *testing.T) {
	s := cutting(t)
	s.OnCanvasClick(geometry.Pt(100, 100))
	s.OnCanvasClick(geometry.Pt(300, 100))

	tick, err := s.OnMeasureTick(frameOf(board()))
	if err != nil {
		t.Fatal(err)
	}
	if tick.Cut == nil || tick.Cut.DistanceCm != 10 || tick.Cut.AngleDeg != 0 {
		t.Errorf("cut: got %+v", tick.Cut)
	}
	if len(tick.CutPoints) != 2 {
		t.Errorf("cut points: got %v", tick.CutPoints)
	}
}

func TestOnModeChange_Resets(t *testing.T) {
	s := cutting(t)
	s.OnMeasureTick(frameOf(board()))
	s.OnCanvasClick(geometry.Pt(1, 1))

	s.OnModeChange(ModeMeasure)
	if len(s.Points()) != 0 || s.tracked != nil {
		t.Error("mode change kept points or tracked contour")
	}
	if s.Processing() {
		t.Error("still processing after mode change")
	}
	if s.LastMeasurement() != nil {
		t.Error("last measurement survived the mode change")
	}
	if s.Mode() != ModeMeasure {
		t.Errorf("mode: got %v", s.Mode())
	}
	if s.Calibration().PixelsPerCm != 20 {
		t.Errorf("calibration lost: %+v", s.Calibration())
	}

	tick, err := s.OnMeasureTick(frameOf(board()))
	if err != nil || !tick.Idle || tick.Reason != ReasonNotProcessing {
		t.Errorf("tick after mode change: %+v, %v", tick, err)
	}
}

func TestOnReset_KeepsCalibration(t *testing.T) {
	s := cutting(t)
	s.OnMeasureTick(frameOf(board()))
	s.OnCanvasClick(geometry.Pt(1, 1))

	s.OnReset()
	if s.Processing() || len(s.Points()) != 0 || s.tracked != nil || s.LastMeasurement() != nil {
		t.Error("reset left session state behind")
	}

	// Measure again without recalibrating.
	if err := s.StartMeasure(); err != nil {
		t.Fatalf("StartMeasure after reset: %v", err)
	}
	tick, _ := s.OnMeasureTick(frameOf(board()))
	if tick.LengthDisplay != "20.00 cm" || s.Calibration().PixelsPerCm != 20 {
		t.Errorf("scale changed across reset: %+v", tick)
	}
}

func TestProcessFrame(t *testing.T) {
	s := calibrated(t)
	b := &fakeBackend{
		contours: []contour.Contour{board()},
		field:    uniformField(500, 300, 10, 1),
	}

	pass, err := s.ProcessFrame(b, image.NewGray(image.Rect(0, 0, 500, 300)), true)
	if err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	if pass.Contours != 1 || pass.Tick.LengthDisplay != "20.00 cm" {
		t.Errorf("pass: %+v", pass)
	}
	if pass.Suggestion == nil {
		t.Fatal("no suggestion")
	}
	if pass.Suggestion.Direction != grain.Vertical {
		t.Errorf("grain: got %v, want vertical", pass.Suggestion.Direction)
	}
	if l := pass.Suggestion.Line; l.P1.Y != 140 || l.P2.Y != 140 || l.P1.X != 50 || l.P2.X != 450 {
		t.Errorf("cut line: %+v", l)
	}

	if b.frames[0].Valid() {
		t.Error("frame not released after the pass")
	}
	if s.tracked != nil {
		t.Error("tracked contour outlived the pass")
	}
	if _, err := s.SuggestCut(b, nil); !errors.Is(err, ErrNoBoard) {
		t.Errorf("SuggestCut outside a pass: got %v", err)
	}
}

func TestProcessFrame_BackendErrorLeavesState(t *testing.T) {
	s := calibrated(t)
	s.OnMeasureTick(frameOf(board()))
	before := s.LastMeasurement()

	b := &fakeBackend{err: fmt.Errorf("%w: camera glitch", vision.ErrBackendProcessing)}
	if _, err := s.ProcessFrame(b, image.NewGray(image.Rect(0, 0, 10, 10)), false); !errors.Is(err, vision.ErrBackendProcessing) {
		t.Fatalf("got %v, want ErrBackendProcessing", err)
	}
	if s.Calibration().PixelsPerCm != 20 || *s.LastMeasurement() != *before {
		t.Error("backend failure changed session state")
	}
}

func TestProcessFrame_GrainFailureIsAdvisory(t *testing.T) {
	s := calibrated(t)
	b := &fakeBackend{
		contours: []contour.Contour{board()},
		fieldErr: fmt.Errorf("%w: sobel", vision.ErrBackendProcessing),
	}

	pass, err := s.ProcessFrame(b, image.NewGray(image.Rect(0, 0, 500, 300)), true)
	if err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	if pass.Suggestion != nil || pass.Tick.Idle {
		t.Errorf("pass: %+v", pass)
	}
}

func TestProcessFrame_GrainErrorKeepsLastMeasurement(t *testing.T) {
	s := calibrated(t)
	s.OnMeasureTick(frameOf(rectPoly(0, 0, 200, 100)))
	before := s.LastMeasurement()

	b := &fakeBackend{
		contours: []contour.Contour{board()},
		// Sized for the frame but carrying no gradients.
		field: grain.Field{Width: 500, Height: 300},
	}
	_, err := s.ProcessFrame(b, image.NewGray(image.Rect(0, 0, 500, 300)), true)
	if !errors.Is(err, grain.ErrDimensionMismatch) {
		t.Fatalf("got %v, want ErrDimensionMismatch", err)
	}
	if got := s.LastMeasurement(); got == nil || *got != *before {
		t.Errorf("last measurement changed: got %+v, want %+v", got, before)
	}
}

func TestCalibrateImage(t *testing.T) {
	s := newSession()
	b := &fakeBackend{contours: []contour.Contour{card()}}

	scale, err := s.CalibrateImage(b, image.NewGray(image.Rect(0, 0, 500, 300)))
	if err != nil || scale != 20 {
		t.Fatalf("CalibrateImage: %v, %v", scale, err)
	}
	if b.frames[0].Valid() {
		t.Error("calibration frame not released")
	}
}

func TestSnapshot(t *testing.T) {
	s := newSession()
	if _, _, _, err := s.Snapshot(); !errors.Is(err, measure.ErrNotCalibrated) {
		t.Errorf("uncalibrated: got %v", err)
	}

	s = cutting(t)
	if _, _, _, err := s.Snapshot(); !errors.Is(err, ErrNoMeasurement) {
		t.Errorf("nothing measured: got %v", err)
	}

	s.OnMeasureTick(frameOf(board()))
	s.OnCanvasClick(geometry.Pt(0, 0))
	s.OnCanvasClick(geometry.Pt(40, 0))

	scale, m, pts, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if scale != 20 || m.Dimensions.WidthCm != 10 || len(pts) != 2 {
		t.Errorf("snapshot: %v %+v %v", scale, m, pts)
	}
	if m.Cut == nil || m.Cut.DistanceCm != 2 {
		t.Errorf("snapshot cut: %+v", m.Cut)
	}
}

func TestSnapshot_RestartedCut(t *testing.T) {
	s := cutting(t)
	s.OnMeasureTick(frameOf(board()))
	s.OnCanvasClick(geometry.Pt(0, 0))
	s.OnCanvasClick(geometry.Pt(60, 80))
	s.OnCanvasClick(geometry.Pt(200, 200))

	_, m, pts, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if m.Cut != nil || len(pts) != 0 {
		t.Errorf("restarted cut exported as cut=%+v points=%v", m.Cut, pts)
	}
	if last := s.LastMeasurement(); last == nil || last.Cut != nil {
		t.Errorf("last measurement kept the old cut: %+v", last)
	}

	s.OnCanvasClick(geometry.Pt(200, 240))
	_, m, pts, err = s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if m.Cut == nil || m.Cut.DistanceCm != 2 || len(pts) != 2 || pts[0] != geometry.Pt(200, 200) {
		t.Errorf("second cut: cut=%+v points=%v", m.Cut, pts)
	}
}

func TestGuard_Serialises(t *testing.T) {
	g := NewGuard(cutting(t))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g.Do(func(s *Session) error {
				_, err := s.OnCanvasClick(geometry.Pt(float64(i), 0))
				return err
			})
		}(i)
	}
	wg.Wait()

	err := g.Do(func(s *Session) error {
		if n := len(s.Points()); n < 1 || n > 2 {
			return fmt.Errorf("points: %d", n)
		}
		return nil
	})
	if err != nil {
		t.Error(err)
	}
}
