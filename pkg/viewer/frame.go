package viewer

import (
	"github.com/matzehuels/ecomap/pkg/viewer/geometry"
	"github.com/matzehuels/ecomap/pkg/viewer/marker"
	"github.com/matzehuels/ecomap/pkg/viewer/markup"
)

// Frame is a render snapshot of the viewer, sent to hosts after each input.
type Frame struct {
	Transform geometry.Transform `json:"transform"`
	CSS       string             `json:"css"`
	Viewport  geometry.Size      `json:"viewport"`
	Image     ImageFrame         `json:"image"`
	Markers   []MarkerFrame      `json:"markers"`
	Selected  string             `json:"selected,omitempty"`
	History   []string           `json:"history"`
	CanGoBack bool               `json:"canGoBack"`
	Options   []Option           `json:"options"`
	Detail    string             `json:"detail"`
	Dragging  bool               `json:"dragging"`
}

// ImageFrame describes the base map. The reference itself is not repeated
// in every frame; hosts receive it once at mount.
type ImageFrame struct {
	State  marker.ImageState `json:"state"`
	Width  float64           `json:"width"`
	Height float64           `json:"height"`
}

// MarkerFrame is one marker as the host draws it.
type MarkerFrame struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Glyph    string         `json:"glyph"`
	Style    string         `json:"style"`
	Anchor   geometry.Point `json:"anchor"`
	Selected bool           `json:"selected"`
}

// Option is one entry of the plant list control.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Frame builds the current render snapshot. The detail HTML is escaped by
// construction.
func (v *Viewer) Frame() Frame {
	selected, _ := v.sel.Current()

	markers := make([]MarkerFrame, 0, len(v.markers))
	for _, m := range v.markers {
		markers = append(markers, MarkerFrame{
			ID:       m.ID,
			Name:     m.Name,
			Glyph:    m.Glyph(),
			Style:    m.Style(),
			Anchor:   m.Anchor,
			Selected: m.ID == selected,
		})
	}

	options := make([]Option, 0, len(v.records))
	for _, r := range v.records {
		options = append(options, Option{ID: r.ID, Name: r.Name})
	}

	return Frame{
		Transform: v.engine.State(),
		CSS:       v.engine.CSS(),
		Viewport:  v.engine.Viewport(),
		Image: ImageFrame{
			State:  v.image.State,
			Width:  v.image.Width,
			Height: v.image.Height,
		},
		Markers:   markers,
		Selected:  selected,
		History:   v.sel.History(),
		CanGoBack: v.sel.CanGoBack(),
		Options:   options,
		Detail:    markup.Render(v.Detail()),
		Dragging:  v.drag.active,
	}
}
