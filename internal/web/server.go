// Package web serves one measuring session over HTTP and WebSocket, for a
// browser page that streams camera frames.
package web

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/board-gauge/internal/imaging"
	"github.com/ironsheep/board-gauge/internal/overlay"
	"github.com/ironsheep/board-gauge/internal/session"
	"github.com/ironsheep/board-gauge/internal/vision"
)

type ServerOption func(*Server) error

type Server struct {
	engine    *fiber.App
	log       *logrus.Logger
	validator *validator.Validate
	guard     *session.Guard
	backend   vision.Backend
	decoder   *imaging.FrameCache

	palette         overlay.Palette
	overlayMaxWidth int
	exportDir       string

	handlers []handler
	mounted  bool
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{
		palette:   overlay.DefaultPalette(),
		exportDir: ".",
	}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.guard == nil {
		return nil, fmt.Errorf("session is required")
	}
	if server.backend == nil {
		return nil, fmt.Errorf("vision backend is required")
	}
	if server.validator == nil {
		server.validator = validator.New(validator.WithRequiredStructEnabled())
	}
	if server.decoder == nil {
		server.decoder = imaging.NewFrameCache(0, 0)
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithSession shares guard with any other host driving the same session.
func WithSession(guard *session.Guard) ServerOption {
	return func(s *Server) error {
		s.guard = guard
		return nil
	}
}

func WithBackend(backend vision.Backend) ServerOption {
	return func(s *Server) error {
		s.backend = backend
		return nil
	}
}

// WithFrameDecoder sets the decoder for uploaded frames; its pixel limit applies.
func WithFrameDecoder(decoder *imaging.FrameCache) ServerOption {
	return func(s *Server) error {
		s.decoder = decoder
		return nil
	}
}

func WithOverlay(palette overlay.Palette, maxWidth int) ServerOption {
	return func(s *Server) error {
		if maxWidth < 0 {
			return fmt.Errorf("overlay max width must not be negative, got %d", maxWidth)
		}
		s.palette = palette
		s.overlayMaxWidth = maxWidth
		return nil
	}
}

func WithExportDir(dir string) ServerOption {
	return func(s *Server) error {
		if dir == "" {
			return fmt.Errorf("export dir is required")
		}
		s.exportDir = dir
		return nil
	}
}

// RegisterHandler mounts middleware, the health check and the API routes.
// Calling it again is a no-op.
func (s *Server) RegisterHandler() {
	if s.mounted {
		return
	}
	s.mounted = true

	s.engine.Use(NewRequestIDMiddleware())
	s.engine.Use(NewLoggingMiddleware(s.log))

	measureHandlers := newMeasureHandler(s)
	s.setupHealthCheck()
	s.handlers = append(s.handlers, measureHandlers)

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}
}

// App exposes the fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.engine
}

// Run serves on addr until the listener fails or Shutdown is called.
func (s *Server) Run(addr string) error {
	s.RegisterHandler()
	s.log.WithField("addr", addr).Info("http host listening")
	return s.engine.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.engine.ShutdownWithContext(ctx)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		var calibrated bool
		_ = s.guard.Do(func(ss *session.Session) error {
			calibrated = ss.Calibration().Calibrated
			return nil
		})
		return ctx.JSON(fiber.Map{
			"message":    "Server is Healthy!",
			"calibrated": calibrated,
		})
	})
}
