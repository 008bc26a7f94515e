// Package server implements the MCP (Model Context Protocol) server for board measuring.
//
// The server exposes one measuring session to an MCP client. A client loads
// camera frames from disk, calibrates against a credit card, then measures
// boards and cuts in those frames.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Frames:
//   - frame_load: Load a frame and make it the active one
//
// Calibration:
//   - calibrate: Detect the card, or restore a known pixels-per-cm scale
//   - calibration_status: Report the current scale
//   - calibration_clear: Forget the scale
//
// Measuring:
//   - measure_start: Begin measuring (requires calibration)
//   - measure_frame: Run one pass over a frame, optionally with an overlay
//   - cut_click: Record a cut point; the second point completes the cut
//   - set_mode: Switch between measure and cut
//   - reset: Stop measuring and clear points
//
// Grain:
//   - suggest_cut: Estimate grain direction and propose a cut line
//
// Utilities:
//   - measure_distance: Distance and angle between two pixel points
//   - export_measurement: Build and optionally write the JSON export record
//
// Tools that take a path fall back to the frame set by frame_load.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(server.Options{Cache: cache, Backend: backend, Session: sess})
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
