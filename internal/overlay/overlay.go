// Package overlay draws measurement annotations over a camera frame: the
// tracked board outline and box, its dimensions, the clicked cut and the
// suggested cut line.
package overlay

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/board-gauge/internal/geometry"
	"github.com/ironsheep/board-gauge/internal/grain"
	"github.com/ironsheep/board-gauge/internal/session"
)

const lineWidth = 2

// Annotations is everything Render can draw. Zero fields are skipped.
type Annotations struct {
	Outline []geometry.Point2D
	Board   *geometry.Rect

	LengthCm, WidthCm float64
	Measured          bool

	CutPoints []geometry.Point2D
	CutCm     float64

	Suggestion *grain.CutLine
}

// FromPass collects the annotations for one processed frame.
func FromPass(p session.Pass) Annotations {
	a := Annotations{Outline: p.Tick.Outline}
	if p.Tick.Found {
		board := p.Tick.Board
		a.Board = &board
	}
	if p.Tick.Found && !p.Tick.Idle {
		a.Measured = true
		a.LengthCm = p.Tick.Dimensions.LengthCm
		a.WidthCm = p.Tick.Dimensions.WidthCm
	}
	if p.Tick.Cut != nil && len(p.Tick.CutPoints) == 2 {
		a.CutPoints = p.Tick.CutPoints
		a.CutCm = p.Tick.Cut.DistanceCm
	}
	if p.Suggestion != nil {
		line := p.Suggestion.Line
		a.Suggestion = &line
	}
	return a
}

// Render returns a copy of img with a drawn over it.
func Render(img image.Image, a Annotations, pal Palette) *image.NRGBA {
	// Clone rebases to (0, 0), matching frame coordinates.
	dst := imaging.Clone(img)

	if len(a.Outline) > 1 {
		drawPolygon(dst, a.Outline, lineWidth, opaque(pal.Contour))
	}

	if a.Board != nil {
		r := *a.Board
		drawRect(dst, r, lineWidth, opaque(pal.Box))

		if a.Measured {
			fg, bg := labelColors(pal.Box)
			x, y := int(r.X), int(r.Y)
			drawLabel(dst, x, y-10, fmt.Sprintf("Length: %.1f cm", a.LengthCm), fg, bg)
			drawLabel(dst, x, y-30, fmt.Sprintf("Width: %.1f cm", a.WidthCm), fg, bg)
		}
	}

	if len(a.CutPoints) == 2 {
		c := opaque(pal.Cut)
		drawLine(dst, a.CutPoints[0], a.CutPoints[1], lineWidth, 0, c)

		mid := geometry.Midpoint(a.CutPoints[0], a.CutPoints[1])
		fg, bg := labelColors(pal.Cut)
		drawLabel(dst, int(mid.X), int(mid.Y)-10, fmt.Sprintf("%.1f cm", a.CutCm), fg, bg)
	}

	if s := a.Suggestion; s != nil {
		drawLine(dst, s.P1, s.P2, lineWidth, 8, opaque(pal.Suggestion))

		fg, bg := labelColors(pal.Suggestion)
		x, y := int(min(s.P1.X, s.P2.X)), int(min(s.P1.Y, s.P2.Y))
		if a.Board != nil {
			x, y = int(a.Board.X), int(a.Board.Y)
		}
		drawLabel(dst, x, y-50, s.Label, fg, bg)
	}

	return dst
}

// Encoded is a PNG ready to hand to a client.
type Encoded struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNGBase64 encodes img as base64 PNG, first shrinking it to maxWidth
// when maxWidth > 0 and the image is wider.
func EncodePNGBase64(img image.Image, maxWidth int) (*Encoded, error) {
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}

	return &Encoded{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
