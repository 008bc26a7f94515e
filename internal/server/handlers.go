package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/board-gauge/internal/calibration"
	"github.com/ironsheep/board-gauge/internal/export"
	"github.com/ironsheep/board-gauge/internal/geometry"
	"github.com/ironsheep/board-gauge/internal/measure"
	"github.com/ironsheep/board-gauge/internal/overlay"
	"github.com/ironsheep/board-gauge/internal/session"
)

// errNoFrame is returned by frame tools called without a path before any
// frame_load.
var errNoFrame = errors.New("no frame: pass path or call frame_load first")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "calibrate", "measure_frame").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Info("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler unmarshals its arguments, resolves the frame it works on
// and runs the session operation under the session guard.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Frames
	case "frame_load":
		return s.handleFrameLoad(args)

	// Calibration
	case "calibrate":
		return s.handleCalibrate(args)
	case "calibration_status":
		return s.handleCalibrationStatus()
	case "calibration_clear":
		return s.handleCalibrationClear()

	// Measuring
	case "measure_start":
		return s.handleMeasureStart()
	case "measure_frame":
		return s.handleMeasureFrame(args)
	case "cut_click":
		return s.handleCutClick(args)
	case "set_mode":
		return s.handleSetMode(args)
	case "reset":
		return s.handleReset()

	// Grain
	case "suggest_cut":
		return s.handleSuggestCut(args)

	// Utilities
	case "measure_distance":
		return s.handleMeasureDistance(args)
	case "export_measurement":
		return s.handleExportMeasurement(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes optional tool arguments; absent arguments leave a
// untouched.
func unmarshalArgs(args json.RawMessage, a interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	return json.Unmarshal(args, a)
}

// resolveFrame returns the frame at path, or the active frame when path is empty.
func (s *Server) resolveFrame(path string) (image.Image, error) {
	if path == "" {
		if s.frame == nil {
			return nil, errNoFrame
		}
		return s.frame, nil
	}
	return s.cache.Load(path)
}

// === Frame Handlers ===

type frameLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleFrameLoad(args json.RawMessage) (interface{}, error) {
	var a frameLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	// The file may have been re-shot under the same name; read it afresh.
	s.cache.Evict(a.Path)
	info, err := s.cache.Info(a.Path)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	s.frame, s.framePath = img, a.Path
	s.log.WithFields(logrus.Fields{
		"path":   a.Path,
		"cached": s.cache.Len(),
	}).Debug("active frame set")
	return info, nil
}

// === Calibration Handlers ===

type calibrateArgs struct {
	Path        string  `json:"path"`
	PixelsPerCm float64 `json:"pixels_per_cm"`
}

type calibrationResult struct {
	calibration.State
	Reference calibration.Reference `json:"reference"`
	Restored  bool                  `json:"restored,omitempty"`
}

func (s *Server) handleCalibrate(args json.RawMessage) (interface{}, error) {
	var a calibrateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	if a.PixelsPerCm != 0 {
		var res calibrationResult
		err := s.guard.Do(func(ss *session.Session) error {
			if err := ss.Engine().Restore(a.PixelsPerCm); err != nil {
				return err
			}
			res = calibrationResult{State: ss.Calibration(), Reference: ss.Engine().Reference(), Restored: true}
			return nil
		})
		return res, err
	}

	img, err := s.resolveFrame(a.Path)
	if err != nil {
		return nil, err
	}

	var res calibrationResult
	err = s.guard.Do(func(ss *session.Session) error {
		if _, err := ss.CalibrateImage(s.backend, img); err != nil {
			return err
		}
		res = calibrationResult{State: ss.Calibration(), Reference: ss.Engine().Reference()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Server) handleCalibrationStatus() (interface{}, error) {
	var res calibrationResult
	s.guard.Do(func(ss *session.Session) error {
		res = calibrationResult{State: ss.Calibration(), Reference: ss.Engine().Reference()}
		return nil
	})
	return res, nil
}

func (s *Server) handleCalibrationClear() (interface{}, error) {
	var res calibrationResult
	s.guard.Do(func(ss *session.Session) error {
		ss.Engine().Clear()
		res = calibrationResult{State: ss.Calibration(), Reference: ss.Engine().Reference()}
		return nil
	})
	return res, nil
}

// === Measuring Handlers ===

// statusResult reports the session after a state change.
type statusResult struct {
	Mode       session.Mode       `json:"mode"`
	Processing bool               `json:"processing"`
	Points     []geometry.Point2D `json:"points"`
}

func status(ss *session.Session) statusResult {
	pts := ss.Points()
	if pts == nil {
		pts = []geometry.Point2D{}
	}
	return statusResult{Mode: ss.Mode(), Processing: ss.Processing(), Points: pts}
}

func (s *Server) handleMeasureStart() (interface{}, error) {
	var res statusResult
	err := s.guard.Do(func(ss *session.Session) error {
		if err := ss.StartMeasure(); err != nil {
			return err
		}
		res = status(ss)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type measureFrameArgs struct {
	Path    string `json:"path"`
	Overlay bool   `json:"overlay"`
	Suggest bool   `json:"suggest"`
}

type passResult struct {
	session.Pass
	Overlay *overlay.Encoded `json:"overlay,omitempty"`
}

func (s *Server) runPass(path string, suggest, withOverlay bool) (*passResult, error) {
	img, err := s.resolveFrame(path)
	if err != nil {
		return nil, err
	}

	var pass session.Pass
	err = s.guard.Do(func(ss *session.Session) error {
		var err error
		pass, err = ss.ProcessFrame(s.backend, img, suggest)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &passResult{Pass: pass}
	if withOverlay {
		rendered := overlay.Render(img, overlay.FromPass(pass), s.palette)
		res.Overlay, err = overlay.EncodePNGBase64(rendered, s.overlayMaxWidth)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *Server) handleMeasureFrame(args json.RawMessage) (interface{}, error) {
	var a measureFrameArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return s.runPass(a.Path, a.Suggest, a.Overlay)
}

type cutClickArgs struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (s *Server) handleCutClick(args json.RawMessage) (interface{}, error) {
	var a cutClickArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.X == nil || a.Y == nil {
		return nil, fmt.Errorf("x and y are required")
	}

	var click session.Click
	err := s.guard.Do(func(ss *session.Session) error {
		var err error
		click, err = ss.OnCanvasClick(geometry.Pt(*a.X, *a.Y))
		return err
	})
	if err != nil {
		return nil, err
	}
	return click, nil
}

type setModeArgs struct {
	Mode string `json:"mode"`
}

func (s *Server) handleSetMode(args json.RawMessage) (interface{}, error) {
	var a setModeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	mode, err := session.ParseMode(a.Mode)
	if err != nil {
		return nil, err
	}

	var res statusResult
	s.guard.Do(func(ss *session.Session) error {
		ss.OnModeChange(mode)
		res = status(ss)
		return nil
	})
	return res, nil
}

func (s *Server) handleReset() (interface{}, error) {
	var res statusResult
	s.guard.Do(func(ss *session.Session) error {
		ss.OnReset()
		res = status(ss)
		return nil
	})
	return res, nil
}

// === Grain Handlers ===

type suggestCutArgs struct {
	Path    string `json:"path"`
	Overlay bool   `json:"overlay"`
}

func (s *Server) handleSuggestCut(args json.RawMessage) (interface{}, error) {
	var a suggestCutArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	res, err := s.runPass(a.Path, true, a.Overlay)
	if err != nil {
		return nil, err
	}
	if !res.Tick.Found {
		if res.Tick.Reason == session.ReasonNotProcessing {
			return nil, fmt.Errorf("%w: call measure_start first", session.ErrNoBoard)
		}
		return nil, session.ErrNoBoard
	}
	if res.Suggestion == nil {
		return nil, fmt.Errorf("grain direction could not be estimated for this frame")
	}
	return res, nil
}

// === Utility Handlers ===

type measureDistanceArgs struct {
	X1          float64 `json:"x1"`
	Y1          float64 `json:"y1"`
	X2          float64 `json:"x2"`
	Y2          float64 `json:"y2"`
	PixelsPerCm float64 `json:"pixels_per_cm"`
}

func (s *Server) handleMeasureDistance(args json.RawMessage) (interface{}, error) {
	var a measureDistanceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.PixelsPerCm < 0 {
		return nil, fmt.Errorf("pixels_per_cm must be positive")
	}

	scale := a.PixelsPerCm
	if scale == 0 {
		s.guard.Do(func(ss *session.Session) error {
			scale = ss.Engine().PixelsPerCm()
			return nil
		})
	}
	return measure.MeasureDistance(geometry.Pt(a.X1, a.Y1), geometry.Pt(a.X2, a.Y2), scale), nil
}

type exportArgs struct {
	Dir   string `json:"dir"`
	Write *bool  `json:"write"`
}

type exportResult struct {
	Path   string        `json:"path,omitempty"`
	Record export.Record `json:"record"`
}

func (s *Server) handleExportMeasurement(args json.RawMessage) (interface{}, error) {
	var a exportArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	var rec export.Record
	err := s.guard.Do(func(ss *session.Session) error {
		scale, m, points, err := ss.Snapshot()
		if err != nil {
			return err
		}
		rec, err = export.NewRecord(time.Now(), scale, m.Dimensions, m.Cut, points)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := exportResult{Record: rec}
	if a.Write == nil || *a.Write {
		dir := a.Dir
		if dir == "" {
			dir = s.exportDir
		}
		res.Path, err = export.Write(dir, rec)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}
