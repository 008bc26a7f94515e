// Package export writes measurement records as indented JSON. There is no
// import path; records are for people and other tools.
package export

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/oklog/ulid/v2"

	"github.com/ironsheep/board-gauge/internal/geometry"
	"github.com/ironsheep/board-gauge/internal/measure"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is one exported measurement. Lengths and cut points are in cm.
type Record struct {
	ID          string             `json:"id"`
	Date        time.Time          `json:"date"`
	Length      float64            `json:"length"`
	Width       float64            `json:"width"`
	PixelsPerCm float64            `json:"pixelsPerCm"`
	CutPoints   []geometry.Point2D `json:"cutPoints"`
	Cut         *measure.Cut       `json:"cut,omitempty"`
}

// NewULIDFromTimestamp returns a lexically sortable id for t.
func NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewRecord builds a record from a measurement taken at pixelsPerCm. Cut
// points are given in pixels and stored in cm.
func NewRecord(now time.Time, pixelsPerCm float64, dims measure.Dimensions, cut *measure.Cut, pointsPx []geometry.Point2D) (Record, error) {
	points, err := measure.PointsToCm(pointsPx, pixelsPerCm)
	if err != nil {
		return Record{}, err
	}

	id, err := NewULIDFromTimestamp(now)
	if err != nil {
		return Record{}, fmt.Errorf("generate record id: %w", err)
	}

	return Record{
		ID:          id,
		Date:        now.UTC(),
		Length:      dims.LengthCm,
		Width:       dims.WidthCm,
		PixelsPerCm: pixelsPerCm,
		CutPoints:   points,
		Cut:         cut,
	}, nil
}

// Encode writes rec to w as indented JSON.
func Encode(w io.Writer, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// FileName is the name Write uses for rec.
func FileName(rec Record) string {
	return fmt.Sprintf("measurement-%s-%s.json", rec.Date.Format("20060102"), rec.ID)
}

// Write stores rec in dir, creating dir if needed, and returns the file path.
func Write(dir string, rec Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, FileName(rec))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := Encode(f, rec); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
