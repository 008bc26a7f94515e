// Package imaging loads camera frames from disk or upload streams.
//
// Frames are decoded with github.com/disintegration/imaging, which applies
// the EXIF orientation tag, so a photo taken in portrait arrives upright and
// pixel coordinates match what the user sees. Supported formats are JPEG,
// PNG, GIF, BMP and TIFF.
//
// All coordinates downstream use the usual image convention: (0,0) is the
// top-left corner, X grows rightward and Y grows downward.
//
// # Caching
//
// FrameCache keeps decoded still frames keyed by path. MCP clients tend to
// issue several tool calls against the same photo (calibrate, then measure,
// then suggest a cut), and the cache spares a decode on each. The cache is
// bounded by frame count and rejects frames above a pixel limit.
package imaging
