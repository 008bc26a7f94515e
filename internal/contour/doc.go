// Package contour selects contours of interest from the set a vision backend
// extracted from one frame.
//
// Contours are consumed through the Contour interface so that selection does
// not care whether the handle is a pure-Go polygon or a view into native
// OpenCV memory. Handles are only valid for the frame they came from; the
// selectors return indices into the input slice and never retain a handle.
//
// # Selectors
//
//   - SelectLargest: the contour with the largest area (the "board").
//   - SelectReferenceObject: the quadrilateral whose bounding-box aspect ratio
//     best matches a known reference object, such as a credit card.
//
// Both return NotFound when no contour qualifies.
package contour
