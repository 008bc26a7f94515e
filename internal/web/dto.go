package web

import (
	"github.com/ironsheep/board-gauge/internal/calibration"
	"github.com/ironsheep/board-gauge/internal/geometry"
	"github.com/ironsheep/board-gauge/internal/overlay"
	"github.com/ironsheep/board-gauge/internal/session"
)

type ClickRequest struct {
	X *float64 `json:"x" validate:"required,gte=0"`
	Y *float64 `json:"y" validate:"required,gte=0"`
}

type ModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=measure cut"`
}

type RestoreCalibrationRequest struct {
	PixelsPerCm float64 `json:"pixels_per_cm" validate:"required,gt=0"`
}

type CalibrationResponse struct {
	calibration.State
	Reference calibration.Reference `json:"reference"`
}

type StatusResponse struct {
	Mode       session.Mode       `json:"mode"`
	Processing bool               `json:"processing"`
	Points     []geometry.Point2D `json:"points"`
}

type FrameResponse struct {
	session.Pass
	Overlay *overlay.Encoded `json:"overlay,omitempty"`
}

func calibrationResponse(s *session.Session) CalibrationResponse {
	return CalibrationResponse{State: s.Calibration(), Reference: s.Engine().Reference()}
}

func statusResponse(s *session.Session) StatusResponse {
	pts := s.Points()
	if pts == nil {
		pts = []geometry.Point2D{}
	}
	return StatusResponse{Mode: s.Mode(), Processing: s.Processing(), Points: pts}
}
