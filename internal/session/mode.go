package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned by ParseMode for anything but "measure" or "cut".
var ErrUnknownMode = errors.New("unknown mode")

// Mode selects what a click on the frame does.
type Mode int

const (
	// ModeMeasure tracks the board and reports its length and width.
	ModeMeasure Mode = iota
	// ModeCut additionally collects two clicked points for a cut line.
	ModeCut
)

func (m Mode) String() string {
	if m == ModeCut {
		return "cut"
	}
	return "measure"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode parses a mode name, ignoring case and surrounding space.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "measure":
		return ModeMeasure, nil
	case "cut":
		return ModeCut, nil
	default:
		return ModeMeasure, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}
