// Package geometry implements the pan/zoom transform behind the map viewer.
//
// The image layer is drawn with a single affine transform:
//
//	screen = pan + zoom * image
//
// where image coordinates are pixels in the map's natural (unscaled) box.
// Markers live inside the same layer, so they follow every pan and zoom
// without their own coordinate bookkeeping.
//
// # Clamping
//
// After every mutation the [Engine] re-clamps the pan on each axis. When the
// scaled image is no larger than the viewport it is centred exactly;
// otherwise the pan stays within [viewport-scaled, 0], which keeps the image
// edges from being dragged past the opposite viewport edge.
//
// # Zooming around a point
//
// [Engine.ZoomAround] keeps the content under a screen point fixed:
//
//	newPan = focal - (focal - oldPan) * (newZoom / oldZoom)
//
// Zoom is bounded to [MinZoom, MaxZoom], so it is never zero.
package geometry
