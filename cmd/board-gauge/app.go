package main

import (
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/board-gauge/internal/calibration"
	"github.com/ironsheep/board-gauge/internal/capture"
	"github.com/ironsheep/board-gauge/internal/config"
	"github.com/ironsheep/board-gauge/internal/contour"
	"github.com/ironsheep/board-gauge/internal/export"
	"github.com/ironsheep/board-gauge/internal/imaging"
	"github.com/ironsheep/board-gauge/internal/overlay"
	"github.com/ironsheep/board-gauge/internal/server"
	"github.com/ironsheep/board-gauge/internal/session"
	"github.com/ironsheep/board-gauge/internal/vision"
	"github.com/ironsheep/board-gauge/internal/web"
)

// app holds what every host mode shares.
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	backend vision.Backend
	session *session.Session
	guard   *session.Guard
	palette overlay.Palette
	cache   *imaging.FrameCache
}

func newApp(cfg *config.Config, logger *logrus.Logger) (*app, error) {
	backend, err := vision.New(cfg.Backend, vision.Options{
		CannyLow:           cfg.CannyLow,
		CannyHigh:          cfg.CannyHigh,
		BlurRadius:         cfg.BlurRadius,
		MinComponentPixels: cfg.MinComponentPixels,
	})
	if err != nil {
		return nil, err
	}

	palette, err := overlay.ParsePalette(cfg.ColorContour, cfg.ColorBox, cfg.ColorCut, cfg.ColorSuggestion)
	if err != nil {
		backend.Close()
		return nil, err
	}

	ref := contour.DefaultReferenceOptions()
	ref.MinArea = cfg.MinReferenceArea
	ref.MaxAspectDeviation = cfg.MaxAspectDeviation
	engine := calibration.NewEngine(calibration.CreditCard, ref)
	if cfg.PixelsPerCm > 0 {
		if err := engine.Restore(cfg.PixelsPerCm); err != nil {
			backend.Close()
			return nil, err
		}
		logger.WithField("pixels_per_cm", cfg.PixelsPerCm).Info("calibration restored from config")
	}

	sess := session.New(engine, logger)
	return &app{
		cfg:     cfg,
		log:     logger,
		backend: backend,
		session: sess,
		guard:   session.NewGuard(sess),
		palette: palette,
		cache:   imaging.NewFrameCache(cfg.CacheFrames, cfg.MaxFramePixels),
	}, nil
}

func (a *app) Close() error {
	return a.backend.Close()
}

func (a *app) mcpServer() *server.Server {
	return server.New(server.Options{
		Cache:           a.cache,
		Backend:         a.backend,
		Session:         a.session,
		Logger:          a.log,
		Palette:         a.palette,
		OverlayMaxWidth: a.cfg.OverlayMaxWidth,
		ExportDir:       a.cfg.ExportDir,
		Version:         Version,
	})
}

func (a *app) webServer() (*web.Server, error) {
	return web.NewServer(
		web.WithFiber(config.NewFiber(a.cfg)),
		web.WithLogger(a.log),
		web.WithValidator(config.NewValidator()),
		web.WithSession(a.guard),
		web.WithBackend(a.backend),
		web.WithFrameDecoder(imaging.NewFrameCache(0, a.cfg.MaxFramePixels)),
		web.WithOverlay(a.palette, a.cfg.OverlayMaxWidth),
		web.WithExportDir(a.cfg.ExportDir),
	)
}

func (a *app) openSource(framesDir string, camera, repeat bool) (capture.Source, error) {
	if camera {
		return capture.OpenCamera(a.cfg.CameraDevice)
	}
	src, err := capture.NewDirSource(framesDir, repeat, a.cfg.MaxFramePixels)
	if err != nil {
		return nil, err
	}
	a.log.WithField("frames", src.Len()).Info("playing back frame directory")
	return src, nil
}

// framePass measures one frame. With auto set, an uncalibrated session is
// calibrated from the frame and measuring starts once that succeeds, so the
// loop can run without a host driving it.
func (a *app) framePass(auto bool) capture.PassFunc {
	return func(img image.Image, seq uint64) error {
		return a.guard.Do(func(s *session.Session) error {
			if auto && !s.Calibration().Calibrated {
				scale, err := s.CalibrateImage(a.backend, img)
				if err != nil {
					return err
				}
				a.log.WithFields(logrus.Fields{"seq": seq, "pixels_per_cm": scale}).Info("calibrated from frame")
				return s.StartMeasure()
			}
			if auto && !s.Processing() {
				if err := s.StartMeasure(); err != nil {
					return err
				}
			}

			pass, err := s.ProcessFrame(a.backend, img, false)
			if err != nil {
				return err
			}
			entry := a.log.WithFields(logrus.Fields{"seq": seq, "contours": pass.Contours})
			if pass.Tick.Idle {
				entry.WithField("reason", pass.Tick.Reason).Debug("idle")
				return nil
			}
			entry.WithFields(logrus.Fields{
				"length": pass.Tick.LengthDisplay,
				"width":  pass.Tick.WidthDisplay,
			}).Info("board measured")
			return nil
		})
	}
}

// exportLast writes the last measurement to the export directory.
func (a *app) exportLast() (string, error) {
	var rec export.Record
	err := a.guard.Do(func(s *session.Session) error {
		scale, m, points, err := s.Snapshot()
		if err != nil {
			return err
		}
		rec, err = export.NewRecord(time.Now(), scale, m.Dimensions, m.Cut, points)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return export.Write(a.cfg.ExportDir, rec)
}
