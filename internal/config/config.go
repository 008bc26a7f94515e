// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

const envPrefix = "BOARD_GAUGE_"

// Config holds every tunable of the binary.
type Config struct {
	LogLevel string `validate:"oneof=trace debug info warn warning error"`
	LogDir   string

	Backend            string  `validate:"oneof=go purego gocv opencv"`
	CannyLow           float64 `validate:"gte=0,ltefield=CannyHigh"`
	CannyHigh          float64 `validate:"gt=0"`
	BlurRadius         int     `validate:"gte=0,lte=10"`
	MinComponentPixels int     `validate:"gte=1"`

	MinReferenceArea   float64 `validate:"gt=0"`
	MaxAspectDeviation float64 `validate:"gt=0"`

	// PixelsPerCm restores a known calibration at startup; 0 means none.
	PixelsPerCm float64 `validate:"gte=0"`

	HTTPAddr    string `validate:"required"`
	BodyLimitMB int    `validate:"gte=1,lte=512"`

	ExportDir string `validate:"required"`

	FrameInterval  time.Duration `validate:"gte=0"`
	CameraDevice   int           `validate:"gte=0"`
	MaxFramePixels int           `validate:"gte=0"`
	CacheFrames    int           `validate:"gte=0"`

	OverlayMaxWidth int    `validate:"gte=0"`
	ColorContour    string `validate:"omitempty,hexcolor"`
	ColorBox        string `validate:"omitempty,hexcolor"`
	ColorCut        string `validate:"omitempty,hexcolor"`
	ColorSuggestion string `validate:"omitempty,hexcolor"`
}

// DefaultConfig returns the settings used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:           "info",
		Backend:            "go",
		CannyLow:           50,
		CannyHigh:          150,
		BlurRadius:         2,
		MinComponentPixels: 10,
		MinReferenceArea:   5000,
		MaxAspectDeviation: 0.5,
		HTTPAddr:           ":3000",
		BodyLimitMB:        50,
		ExportDir:          "./exports",
		FrameInterval:      100 * time.Millisecond,
		MaxFramePixels:     40_000_000,
		CacheFrames:        8,
		OverlayMaxWidth:    1280,
	}
}

// NewValidator returns the validator used for configs and request bodies.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// Load reads the given .env files (missing ones are skipped), applies
// BOARD_GAUGE_* variables over the defaults and validates the result.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := DefaultConfig()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(NewValidator()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills zero values that have no meaning with defaults, then checks
// the remaining constraints.
func (c *Config) Validate(v *validator.Validate) error {
	d := DefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.CannyHigh == 0 {
		c.CannyHigh = d.CannyHigh
	}
	if c.MinComponentPixels == 0 {
		c.MinComponentPixels = d.MinComponentPixels
	}
	if c.MinReferenceArea == 0 {
		c.MinReferenceArea = d.MinReferenceArea
	}
	if c.MaxAspectDeviation == 0 {
		c.MaxAspectDeviation = d.MaxAspectDeviation
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = d.HTTPAddr
	}
	if c.BodyLimitMB == 0 {
		c.BodyLimitMB = d.BodyLimitMB
	}
	if c.ExportDir == "" {
		c.ExportDir = d.ExportDir
	}

	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// applyEnv overrides fields from the environment, reporting every
// unparsable value at once.
func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs error
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := lookup(envPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(envPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_DIR", &c.LogDir)
	str("BACKEND", &c.Backend)
	float("CANNY_LOW", &c.CannyLow)
	float("CANNY_HIGH", &c.CannyHigh)
	integer("BLUR_RADIUS", &c.BlurRadius)
	integer("MIN_COMPONENT_PIXELS", &c.MinComponentPixels)
	float("MIN_REFERENCE_AREA", &c.MinReferenceArea)
	float("MAX_ASPECT_DEVIATION", &c.MaxAspectDeviation)
	float("PIXELS_PER_CM", &c.PixelsPerCm)
	str("HTTP_ADDR", &c.HTTPAddr)
	integer("BODY_LIMIT_MB", &c.BodyLimitMB)
	str("EXPORT_DIR", &c.ExportDir)
	duration("FRAME_INTERVAL", &c.FrameInterval)
	integer("CAMERA_DEVICE", &c.CameraDevice)
	integer("MAX_FRAME_PIXELS", &c.MaxFramePixels)
	integer("CACHE_FRAMES", &c.CacheFrames)
	integer("OVERLAY_MAX_WIDTH", &c.OverlayMaxWidth)
	str("COLOR_CONTOUR", &c.ColorContour)
	str("COLOR_BOX", &c.ColorBox)
	str("COLOR_CUT", &c.ColorCut)
	str("COLOR_SUGGESTION", &c.ColorSuggestion)

	return errs
}
