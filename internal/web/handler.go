package web

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/board-gauge/internal/export"
	"github.com/ironsheep/board-gauge/internal/geometry"
	"github.com/ironsheep/board-gauge/internal/imaging"
	"github.com/ironsheep/board-gauge/internal/log"
	"github.com/ironsheep/board-gauge/internal/overlay"
	"github.com/ironsheep/board-gauge/internal/session"
	"github.com/ironsheep/board-gauge/internal/vision"
)

type MeasureHandler struct {
	log       *logrus.Logger
	validator *validator.Validate
	errs      *ErrorHandler
	guard     *session.Guard
	backend   vision.Backend
	decoder   *imaging.FrameCache

	palette         overlay.Palette
	overlayMaxWidth int
	exportDir       string
}

func newMeasureHandler(s *Server) *MeasureHandler {
	return &MeasureHandler{
		log:             s.log,
		validator:       s.validator,
		errs:            NewErrorHandler(s.log),
		guard:           s.guard,
		backend:         s.backend,
		decoder:         s.decoder,
		palette:         s.palette,
		overlayMaxWidth: s.overlayMaxWidth,
		exportDir:       s.exportDir,
	}
}

func (h *MeasureHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Post("/calibrate", h.Calibrate)
	srv.Get("/calibration", h.GetCalibration)
	srv.Put("/calibration", h.RestoreCalibration)
	srv.Delete("/calibration", h.ClearCalibration)

	srv.Post("/measure/start", h.StartMeasure)
	srv.Post("/frames", h.ProcessFrame)
	srv.Use("/frames/ws", wsMiddleware)
	srv.Get("/frames/ws", websocket.New(h.handleFrameSocket))

	srv.Post("/clicks", h.Click)
	srv.Put("/mode", h.SetMode)
	srv.Post("/reset", h.Reset)

	srv.Get("/export", h.Export)
}

// formImage decodes the multipart "image" field.
func (h *MeasureHandler) formImage(ctx *fiber.Ctx) (image.Image, error) {
	file, err := ctx.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("%w: form field \"image\" is required", ErrBadImage)
	}
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	defer f.Close()

	img, err := h.decoder.Decode(f)
	if err != nil {
		if errors.Is(err, imaging.ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return img, nil
}

func (h *MeasureHandler) Calibrate(ctx *fiber.Ctx) error {
	requestID := GetRequestID(ctx)

	img, err := h.formImage(ctx)
	if err != nil {
		return h.errs.Handle(ctx, requestID, err, "read_image")
	}

	var res CalibrationResponse
	err = h.guard.Do(func(s *session.Session) error {
		if _, err := s.CalibrateImage(h.backend, img); err != nil {
			return err
		}
		res = calibrationResponse(s)
		return nil
	})
	if err != nil {
		return h.errs.Handle(ctx, requestID, err, "calibrate")
	}

	h.log.WithFields(log.Fields{
		log.RequestIDKey: requestID,
		"pixels_per_cm":  res.PixelsPerCm,
	}).Info("calibrated")
	return ctx.JSON(res)
}

func (h *MeasureHandler) GetCalibration(ctx *fiber.Ctx) error {
	var res CalibrationResponse
	_ = h.guard.Do(func(s *session.Session) error {
		res = calibrationResponse(s)
		return nil
	})
	return ctx.JSON(res)
}

func (h *MeasureHandler) RestoreCalibration(ctx *fiber.Ctx) error {
	requestID := GetRequestID(ctx)

	var req RestoreCalibrationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return h.errs.HandleValidationError(ctx, requestID, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return h.errs.HandleValidationError(ctx, requestID, err)
	}

	var res CalibrationResponse
	err := h.guard.Do(func(s *session.Session) error {
		if err := s.Engine().Restore(req.PixelsPerCm); err != nil {
			return err
		}
		res = calibrationResponse(s)
		return nil
	})
	if err != nil {
		return h.errs.Handle(ctx, requestID, err, "restore_calibration")
	}
	return ctx.JSON(res)
}

func (h *MeasureHandler) ClearCalibration(ctx *fiber.Ctx) error {
	var res CalibrationResponse
	_ = h.guard.Do(func(s *session.Session) error {
		s.Engine().Clear()
		res = calibrationResponse(s)
		return nil
	})
	return ctx.JSON(res)
}

func (h *MeasureHandler) StartMeasure(ctx *fiber.Ctx) error {
	var res StatusResponse
	err := h.guard.Do(func(s *session.Session) error {
		if err := s.StartMeasure(); err != nil {
			return err
		}
		res = statusResponse(s)
		return nil
	})
	if err != nil {
		return h.errs.Handle(ctx, GetRequestID(ctx), err, "start_measure")
	}
	return ctx.JSON(res)
}

// process runs one pass over img and renders the overlay when asked.
func (h *MeasureHandler) process(img image.Image, suggest, withOverlay bool) (*FrameResponse, error) {
	var pass session.Pass
	err := h.guard.Do(func(s *session.Session) error {
		var err error
		pass, err = s.ProcessFrame(h.backend, img, suggest)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &FrameResponse{Pass: pass}
	if withOverlay {
		rendered := overlay.Render(img, overlay.FromPass(pass), h.palette)
		res.Overlay, err = overlay.EncodePNGBase64(rendered, h.overlayMaxWidth)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ProcessFrame takes one multipart frame. Query flags: suggest, overlay.
func (h *MeasureHandler) ProcessFrame(ctx *fiber.Ctx) error {
	requestID := GetRequestID(ctx)

	img, err := h.formImage(ctx)
	if err != nil {
		return h.errs.Handle(ctx, requestID, err, "read_image")
	}

	res, err := h.process(img, ctx.QueryBool("suggest"), ctx.QueryBool("overlay"))
	if err != nil {
		return h.errs.Handle(ctx, requestID, err, "process_frame")
	}
	return ctx.JSON(res)
}

// handleFrameSocket reads binary encoded frames and answers each with a
// FrameResponse, or {"error": ...} when the frame could not be used.
func (h *MeasureHandler) handleFrameSocket(c *websocket.Conn) {
	suggest := c.Query("suggest") == "true"
	withOverlay := c.Query("overlay") == "true"

	h.log.Info("frame WebSocket client connected")
	defer h.log.Info("frame WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.WithError(err).Error("Error sending pong")
		}
		return nil
	})

	maxReadTimeout := 60 * time.Second

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.WithError(err).Error("Error setting read deadline")
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Error("frame WebSocket error")
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		var reply interface{}
		res, err := h.decodeAndProcess(message, suggest, withOverlay)
		if err != nil {
			reply = ErrorResponse{Error: err.Error()}
		} else {
			reply = res
		}

		if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			h.log.WithError(err).Error("Error setting write deadline")
			break
		}
		if err := c.WriteJSON(reply); err != nil {
			h.log.WithError(err).Error("Error writing JSON response")
			break
		}
	}
}

func (h *MeasureHandler) decodeAndProcess(data []byte, suggest, withOverlay bool) (*FrameResponse, error) {
	img, err := h.decoder.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return h.process(img, suggest, withOverlay)
}

func (h *MeasureHandler) Click(ctx *fiber.Ctx) error {
	requestID := GetRequestID(ctx)

	var req ClickRequest
	if err := ctx.BodyParser(&req); err != nil {
		return h.errs.HandleValidationError(ctx, requestID, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return h.errs.HandleValidationError(ctx, requestID, err)
	}

	var click session.Click
	err := h.guard.Do(func(s *session.Session) error {
		var err error
		click, err = s.OnCanvasClick(geometry.Pt(*req.X, *req.Y))
		return err
	})
	if err != nil {
		return h.errs.Handle(ctx, requestID, err, "click")
	}
	return ctx.JSON(click)
}

func (h *MeasureHandler) SetMode(ctx *fiber.Ctx) error {
	requestID := GetRequestID(ctx)

	var req ModeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return h.errs.HandleValidationError(ctx, requestID, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return h.errs.HandleValidationError(ctx, requestID, err)
	}
	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		return h.errs.Handle(ctx, requestID, err, "set_mode")
	}

	var res StatusResponse
	_ = h.guard.Do(func(s *session.Session) error {
		s.OnModeChange(mode)
		res = statusResponse(s)
		return nil
	})
	return ctx.JSON(res)
}

func (h *MeasureHandler) Reset(ctx *fiber.Ctx) error {
	var res StatusResponse
	_ = h.guard.Do(func(s *session.Session) error {
		s.OnReset()
		res = statusResponse(s)
		return nil
	})
	return ctx.JSON(res)
}

// Export downloads the export record. With ?save=true it is also written
// to the export directory and the path returned in X-Export-Path.
func (h *MeasureHandler) Export(ctx *fiber.Ctx) error {
	requestID := GetRequestID(ctx)

	var rec export.Record
	err := h.guard.Do(func(s *session.Session) error {
		scale, m, points, err := s.Snapshot()
		if err != nil {
			return err
		}
		rec, err = export.NewRecord(time.Now(), scale, m.Dimensions, m.Cut, points)
		return err
	})
	if err != nil {
		return h.errs.Handle(ctx, requestID, err, "export")
	}

	if ctx.QueryBool("save") {
		path, err := export.Write(h.exportDir, rec)
		if err != nil {
			return h.errs.Handle(ctx, requestID, err, "export_write")
		}
		ctx.Set("X-Export-Path", path)
	}

	ctx.Attachment(export.FileName(rec))
	return export.Encode(ctx, rec)
}
