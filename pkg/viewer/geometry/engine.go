package geometry

import (
	"fmt"
	"math"
)

// Zoom bounds applied to every zoom mutation.
const (
	MinZoom = 0.5
	MaxZoom = 4.0
)

// Size is a width/height pair in pixels.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Valid reports whether both dimensions are positive and finite.
func (s Size) Valid() bool {
	return s.W > 0 && s.H > 0 && !math.IsInf(s.W, 0) && !math.IsInf(s.H, 0)
}

// Center returns the geometric centre of a box of this size anchored at the origin.
func (s Size) Center() Point {
	return Point{X: s.W / 2, Y: s.H / 2}
}

// Point is a position in either screen or image space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform is the viewport state: the zoom level and the translation applied
// to the image layer. Screen = Pan + Zoom*Image.
type Transform struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

// Engine owns the viewport transform and keeps it clamped so the image can
// never be dragged or zoomed entirely out of the visible area.
//
// Engine is not safe for concurrent use.
type Engine struct {
	viewport Size
	image    Size
	t        Transform
}

// NewEngine returns an engine with zoom=1 and no pan. The image box is unknown
// until SetImage is called; clamping is skipped on axes without an image extent.
func NewEngine(viewport Size) *Engine {
	return &Engine{
		viewport: viewport,
		t:        Transform{Zoom: 1},
	}
}

// State returns the current transform.
func (e *Engine) State() Transform { return e.t }

// Viewport returns the visible viewport size.
func (e *Engine) Viewport() Size { return e.viewport }

// Image returns the natural (unscaled) image size, or the zero Size if unknown.
func (e *Engine) Image() Size { return e.image }

// SetImage records the natural image box and re-clamps.
func (e *Engine) SetImage(s Size) {
	e.image = s
	e.clamp()
}

// SetViewport updates the visible viewport size and re-clamps.
func (e *Engine) SetViewport(s Size) {
	e.viewport = s
	e.clamp()
}

// ZoomTo multiplies the zoom by factor around the viewport centre.
func (e *Engine) ZoomTo(factor float64) bool {
	return e.ZoomAround(factor, e.viewport.Center())
}

// ZoomAround multiplies the zoom by factor, clamps it to [MinZoom, MaxZoom] and
// re-solves the pan so the screen point focal stays visually stationary.
// Non-positive or non-finite factors are ignored. It reports whether the
// transform changed.
func (e *Engine) ZoomAround(factor float64, focal Point) bool {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return false
	}
	before := e.t
	old := e.t.Zoom
	next := clampFloat(old*factor, MinZoom, MaxZoom)
	if next == old {
		return false
	}
	ratio := next / old

	e.t.Zoom = next
	e.t.PanX = focal.X - (focal.X-e.t.PanX)*ratio
	e.t.PanY = focal.Y - (focal.Y-e.t.PanY)*ratio
	e.clamp()
	return e.t != before
}

// Pan adds a raw screen-space delta to the pan offset.
func (e *Engine) Pan(dx, dy float64) bool {
	before := e.t
	e.t.PanX += dx
	e.t.PanY += dy
	e.clamp()
	return e.t != before
}

// Reset restores zoom=1 and pan=(0,0), then clamps.
func (e *Engine) Reset() {
	e.t = Transform{Zoom: 1}
	e.clamp()
}

// CenterOn shifts the pan by the delta between the viewport centre and the
// given screen point, bringing that point toward the centre. Zoom is unchanged.
func (e *Engine) CenterOn(screen Point) bool {
	c := e.viewport.Center()
	return e.Pan(c.X-screen.X, c.Y-screen.Y)
}

// ImageToScreen maps a point in the natural image box to screen space.
func (e *Engine) ImageToScreen(p Point) Point {
	return Point{
		X: e.t.PanX + p.X*e.t.Zoom,
		Y: e.t.PanY + p.Y*e.t.Zoom,
	}
}

// ScreenToImage maps a screen point back into the natural image box.
func (e *Engine) ScreenToImage(p Point) Point {
	return Point{
		X: (p.X - e.t.PanX) / e.t.Zoom,
		Y: (p.Y - e.t.PanY) / e.t.Zoom,
	}
}

// CSS returns the transform as a CSS value for a layer with transform-origin 0 0.
func (e *Engine) CSS() string {
	return fmt.Sprintf("translate(%.2fpx, %.2fpx) scale(%.4f)", e.t.PanX, e.t.PanY, e.t.Zoom)
}

// clamp restores the pan invariant on both axes.
func (e *Engine) clamp() {
	e.t.PanX = clampAxis(e.t.PanX, e.viewport.W, e.image.W*e.t.Zoom)
	e.t.PanY = clampAxis(e.t.PanY, e.viewport.H, e.image.H*e.t.Zoom)
}

// clampAxis centres content smaller than the viewport and otherwise keeps
// pan within [viewport-scaled, 0] so no gap opens past either edge.
func clampAxis(pan, viewport, scaled float64) float64 {
	if scaled <= 0 || viewport <= 0 {
		return pan
	}
	if scaled <= viewport {
		return (viewport - scaled) / 2
	}
	return clampFloat(pan, viewport-scaled, 0)
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
