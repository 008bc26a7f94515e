package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/board-gauge/internal/calibration"
	"github.com/ironsheep/board-gauge/internal/imaging"
	"github.com/ironsheep/board-gauge/internal/log"
	"github.com/ironsheep/board-gauge/internal/measure"
	"github.com/ironsheep/board-gauge/internal/session"
)

// ErrBadImage is returned when an upload is missing or cannot be decoded.
var ErrBadImage = errors.New("unreadable image")

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// errorStatuses maps domain errors to HTTP responses; first match wins.
var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{ErrBadImage, fiber.StatusBadRequest, "BAD_IMAGE"},
	{imaging.ErrTooLarge, fiber.StatusRequestEntityTooLarge, "FRAME_TOO_LARGE"},
	{session.ErrUnknownMode, fiber.StatusBadRequest, "UNKNOWN_MODE"},
	{calibration.ErrInvalidScale, fiber.StatusBadRequest, "INVALID_SCALE"},
	{measure.ErrNotCalibrated, fiber.StatusConflict, "NOT_CALIBRATED"},
	{calibration.ErrNoContoursFound, fiber.StatusUnprocessableEntity, "NO_CONTOURS"},
	{calibration.ErrReferenceObjectNotFound, fiber.StatusUnprocessableEntity, "REFERENCE_NOT_FOUND"},
	{session.ErrNoBoard, fiber.StatusNotFound, "NO_BOARD"},
	{session.ErrNoMeasurement, fiber.StatusNotFound, "NO_MEASUREMENT"},
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func NewErrorHandler(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, operation string) error {
	fields := log.Fields{
		log.RequestIDKey: requestID,
		"error":          err.Error(),
		"path":           c.Path(),
		"operation":      operation,
	}

	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			h.logger.WithFields(fields).Warn("Operation failed")
			return c.Status(m.status).JSON(ErrorResponse{Error: err.Error(), Code: m.code})
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		h.logger.WithFields(fields).Warn("Request rejected")
		return c.Status(fiberErr.Code).JSON(ErrorResponse{Error: fiberErr.Message})
	}

	traceID := log.ErrorWithTraceID(h.logger, fields, "Unexpected error")
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "An unexpected error occurred",
		TraceID: traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error) error {
	h.logger.WithFields(log.Fields{
		log.RequestIDKey: requestID,
		"error":          err.Error(),
		"path":           c.Path(),
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}
