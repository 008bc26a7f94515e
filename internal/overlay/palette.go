package overlay

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette holds the colours of each annotation layer.
type Palette struct {
	Contour    colorful.Color
	Box        colorful.Color
	Cut        colorful.Color
	Suggestion colorful.Color
}

// DefaultPalette draws the board green, its box and the cut red, and the
// suggested cut cyan.
func DefaultPalette() Palette {
	return Palette{
		Contour:    colorful.Color{R: 0, G: 1, B: 0},
		Box:        colorful.Color{R: 1, G: 0, B: 0},
		Cut:        colorful.Color{R: 1, G: 0, B: 0},
		Suggestion: colorful.Color{R: 0, G: 1, B: 1},
	}
}

// ParsePalette reads four "#rrggbb" colours; empty strings keep the default.
func ParsePalette(contour, box, cut, suggestion string) (Palette, error) {
	p := DefaultPalette()
	for _, f := range []struct {
		hex string
		dst *colorful.Color
	}{
		{contour, &p.Contour},
		{box, &p.Box},
		{cut, &p.Cut},
		{suggestion, &p.Suggestion},
	} {
		if f.hex == "" {
			continue
		}
		c, err := colorful.Hex(f.hex)
		if err != nil {
			return Palette{}, fmt.Errorf("parse colour %q: %w", f.hex, err)
		}
		*f.dst = c
	}
	return p, nil
}

func opaque(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// labelColors returns text and backing colours for a label in c: the text
// takes c, the backing is a dark or light shade that keeps it readable.
func labelColors(c colorful.Color) (fg, bg color.NRGBA) {
	l, _, _ := c.Lab()
	shade := colorful.Color{R: 0, G: 0, B: 0}
	if l < 0.5 {
		shade = colorful.Color{R: 1, G: 1, B: 1}
	}
	bg = opaque(c.BlendLab(shade, 0.85))
	bg.A = 190
	return opaque(c), bg
}
