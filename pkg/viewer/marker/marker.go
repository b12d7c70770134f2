// Package marker places plant markers over the base map image.
//
// Markers are positioned in the image's natural (unscaled) box, as children
// of the same transformed layer as the image. Panning and zooming move them
// with the map, so a layout only has to be recomputed when the plant list or
// the image metadata changes.
//
// Placement depends on the image's natural size, which is only known once
// the image has loaded. [ImageInfo] makes that explicit: [Layout] returns no
// markers while the metadata is pending, and a best-effort layout when the
// image failed to load.
package marker

import (
	"fmt"
	"math"
	"strconv"

	"github.com/matzehuels/ecomap/pkg/plants"
	"github.com/matzehuels/ecomap/pkg/viewer/geometry"
)

// ImageState tracks the base map's load lifecycle.
type ImageState int

const (
	ImagePending ImageState = iota
	ImageReady
	ImageFailed
)

func (s ImageState) String() string {
	switch s {
	case ImageReady:
		return "ready"
	case ImageFailed:
		return "failed"
	default:
		return "pending"
	}
}

// MarshalText encodes the state by name.
func (s ImageState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name. Unknown names decode as pending.
func (s *ImageState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ready":
		*s = ImageReady
	case "failed":
		*s = ImageFailed
	default:
		*s = ImagePending
	}
	return nil
}

// ImageInfo is the base map's metadata as known to the viewer.
type ImageInfo struct {
	State  ImageState
	Width  float64
	Height float64
}

// Pending returns metadata for an image that has not loaded yet.
func Pending() ImageInfo { return ImageInfo{State: ImagePending} }

// Ready returns metadata for a loaded image of the given natural size.
func Ready(w, h float64) ImageInfo {
	return ImageInfo{State: ImageReady, Width: w, Height: h}
}

// Failed returns metadata for an image that could not be loaded.
func Failed() ImageInfo { return ImageInfo{State: ImageFailed} }

// Size returns the natural size, or the zero Size unless the image is ready.
func (i ImageInfo) Size() geometry.Size {
	if i.State != ImageReady {
		return geometry.Size{}
	}
	return geometry.Size{W: i.Width, H: i.Height}
}

// Marker is one placed plant marker.
type Marker struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Label    string         `json:"label"`
	PercentX float64        `json:"x"`
	PercentY float64        `json:"y"`
	Anchor   geometry.Point `json:"anchor"` // bottom-centre, in image pixels
}

// Glyph returns the text drawn inside the marker.
func (m Marker) Glyph() string {
	if m.Label == "" {
		return plants.DefaultLabel
	}
	return m.Label
}

// Style returns inline CSS placing the marker inside the image layer. The
// translate moves the marker's bottom-centre onto the coordinate so the pin
// points down at it.
func (m Marker) Style() string {
	return fmt.Sprintf("left:%s%%;top:%s%%;transform:translate(-50%%,-100%%)",
		formatPercent(m.PercentX), formatPercent(m.PercentY))
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Layout places one marker per placeable record.
//
// While the image is pending Layout returns nil. Once ready, anchors are
// computed against the natural size. When the image failed to load, the
// fallback box (normally the viewport) stands in for it. Records without an
// id or a position are skipped. Coordinates outside [0,100] are kept, which
// may put a marker outside the visible map.
func Layout(records []plants.Record, info ImageInfo, fallback geometry.Size) []Marker {
	var box geometry.Size
	switch info.State {
	case ImageReady:
		box = info.Size()
	case ImageFailed:
		box = fallback
	default:
		return nil
	}

	markers := make([]Marker, 0, len(records))
	for _, r := range records {
		if !r.Placeable() {
			continue
		}
		x, y, _ := r.Position()
		markers = append(markers, Marker{
			ID:       r.ID,
			Name:     r.Name,
			Label:    r.Label,
			PercentX: x,
			PercentY: y,
			Anchor:   geometry.Point{X: x * box.W / 100, Y: y * box.H / 100},
		})
	}
	return markers
}

// Find returns the marker with the given id.
func Find(markers []Marker, id string) (Marker, bool) {
	for _, m := range markers {
		if m.ID == id {
			return m, true
		}
	}
	return Marker{}, false
}

// HitTest returns the marker whose anchor is nearest to p within radius,
// both in image pixels. Later markers are drawn on top, so they win ties.
func HitTest(markers []Marker, p geometry.Point, radius float64) (Marker, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, m := range markers {
		d := math.Hypot(m.Anchor.X-p.X, m.Anchor.Y-p.Y)
		if d <= radius && d <= bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Marker{}, false
	}
	return markers[best], true
}
