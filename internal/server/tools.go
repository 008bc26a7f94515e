package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to a frame image. Defaults to the frame set by frame_load.",
	}
}

func overlayProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": "Return the frame with annotations drawn, as base64 PNG. Default false",
		"default":     false,
	}
}

func emptySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Frames
		{
			Name:        "frame_load",
			Description: "Load a camera frame from disk and make it the active frame for later calls. Returns its size and format.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},

		// Calibration
		{
			Name:        "calibrate",
			Description: "Find a credit card (8.56 x 5.40 cm) in the frame and set the pixels-per-cm scale from it. Pass pixels_per_cm instead to restore a known scale. Starts processing even if the card is not found.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"pixels_per_cm": map[string]interface{}{
						"type":        "number",
						"description": "Known scale to restore without looking at a frame",
					},
				},
			},
		},
		{
			Name:        "calibration_status",
			Description: "Report whether the session is calibrated and its pixels-per-cm scale.",
			InputSchema: emptySchema(),
		},
		{
			Name:        "calibration_clear",
			Description: "Forget the calibration.",
			InputSchema: emptySchema(),
		},

		// Measuring
		{
			Name:        "measure_start",
			Description: "Start measuring. Requires calibration. Clears any cut points.",
			InputSchema: emptySchema(),
		},
		{
			Name:        "measure_frame",
			Description: "Track the largest object in the frame and report its length and width. In cut mode with two points clicked, also reports the cut.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty(),
					"overlay": overlayProperty(),
					"suggest": map[string]interface{}{
						"type":        "boolean",
						"description": "Also run the grain heuristic and suggest a cut line. Default false",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "cut_click",
			Description: "Mark a cut point in frame pixel coordinates. Only counts while measuring in cut mode. The second point completes the cut with its distance in cm and angle in degrees; a third point starts over.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "number",
						"description": "X coordinate in pixels",
					},
					"y": map[string]interface{}{
						"type":        "number",
						"description": "Y coordinate in pixels",
					},
				},
				"required": []string{"x", "y"},
			},
		},
		{
			Name:        "set_mode",
			Description: "Switch between measure and cut mode. Stops measuring and clears cut points and the last measurement; call measure_start again.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"measure", "cut"},
						"description": "New mode",
					},
				},
				"required": []string{"mode"},
			},
		},
		{
			Name:        "reset",
			Description: "Stop measuring and clear cut points and the last measurement. Calibration is kept.",
			InputSchema: emptySchema(),
		},

		// Grain
		{
			Name:        "suggest_cut",
			Description: "Estimate the wood grain direction of the tracked board from image gradients and suggest a cut line through its middle.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty(),
					"overlay": overlayProperty(),
				},
			},
		},

		// Utilities
		{
			Name:        "measure_distance",
			Description: "Measure the distance and angle between two pixel points. Adds the length in cm when calibrated or when pixels_per_cm is given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x1": map[string]interface{}{
						"type":        "number",
						"description": "First point X",
					},
					"y1": map[string]interface{}{
						"type":        "number",
						"description": "First point Y",
					},
					"x2": map[string]interface{}{
						"type":        "number",
						"description": "Second point X",
					},
					"y2": map[string]interface{}{
						"type":        "number",
						"description": "Second point Y",
					},
					"pixels_per_cm": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale overriding the session calibration",
					},
				},
				"required": []string{"x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "export_measurement",
			Description: "Export the last measurement (length, width, scale and cut points in cm) as a JSON record.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory to write the record to. Defaults to the configured export dir",
					},
					"write": map[string]interface{}{
						"type":        "boolean",
						"description": "Write the record to disk. When false it is only returned. Default true",
						"default":     true,
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
