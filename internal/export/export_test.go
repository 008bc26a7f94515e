package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ironsheep/board-gauge/internal/geometry"
	"github.com/ironsheep/board-gauge/internal/measure"
)

var when = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestNewRecord(t *testing.T) {
	dims := measure.Dimensions{LengthCm: 20, WidthCm: 10}
	pts := []geometry.Point2D{geometry.Pt(0, 0), geometry.Pt(60, 80)}

	rec, err := NewRecord(when, 20, dims, nil, pts)
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}

	if rec.Length != 20 || rec.Width != 10 || rec.PixelsPerCm != 20 {
		t.Errorf("record: %+v", rec)
	}
	if len(rec.CutPoints) != 2 || rec.CutPoints[1] != geometry.Pt(3, 4) {
		t.Errorf("cut points in cm: got %v, want [(0,0) (3,4)]", rec.CutPoints)
	}

	id, err := ulid.ParseStrict(rec.ID)
	if err != nil {
		t.Fatalf("record id %q is not a ULID: %v", rec.ID, err)
	}
	if !ulid.Time(id.Time()).Equal(when) {
		t.Errorf("ULID time: got %v, want %v", ulid.Time(id.Time()), when)
	}
}

func TestNewRecord_NotCalibrated(t *testing.T) {
	_, err := NewRecord(when, 0, measure.Dimensions{}, nil, nil)
	if !errors.Is(err, measure.ErrNotCalibrated) {
		t.Errorf("got %v, want ErrNotCalibrated", err)
	}
}

func TestEncode(t *testing.T) {
	rec, err := NewRecord(when, 10, measure.Dimensions{LengthCm: 1.5, WidthCm: 0.5}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, rec); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		`"date": "2026-03-14T09:26:53Z"`,
		`"length": 1.5`,
		`"width": 0.5`,
		`"pixelsPerCm": 10`,
		`"cutPoints": []`,
		"\n  ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, `"cut"`) {
		t.Error("empty cut should be omitted")
	}
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	cut := &measure.Cut{DistanceCm: 5, AngleDeg: 53.1}
	rec, err := NewRecord(when, 20, measure.Dimensions{LengthCm: 20, WidthCm: 10}, cut, nil)
	if err != nil {
		t.Fatal(err)
	}

	path, err := Write(dir, rec)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Base(path) != "measurement-20260314-"+rec.ID+".json" {
		t.Errorf("file name: got %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"distance_cm": 5`) {
		t.Errorf("cut missing from file:\n%s", data)
	}
}
