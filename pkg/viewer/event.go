package viewer

import (
	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/viewer/geometry"
)

// EventType names one viewer input.
type EventType string

const (
	EventImageLoaded EventType = "image-loaded"
	EventImageFailed EventType = "image-failed"
	EventResize      EventType = "resize"
	EventPointerDown EventType = "pointer-down"
	EventPointerMove EventType = "pointer-move"
	EventPointerUp   EventType = "pointer-up"
	EventWheel       EventType = "wheel"
	EventClickMarker EventType = "click-marker"
	EventSelect      EventType = "select"
	EventClickEmpty  EventType = "click-empty"
	EventClose       EventType = "close"
	EventBack        EventType = "back"
	EventZoomIn      EventType = "zoom-in"
	EventZoomOut     EventType = "zoom-out"
	EventReset       EventType = "reset"
)

// Event is a viewer input in a form hosts can decode from JSON. Only the
// fields relevant to Type are read.
type Event struct {
	Type     EventType `json:"type"`
	ID       string    `json:"id,omitempty"`
	X        float64   `json:"x,omitempty"`
	Y        float64   `json:"y,omitempty"`
	Width    float64   `json:"width,omitempty"`
	Height   float64   `json:"height,omitempty"`
	DeltaY   float64   `json:"deltaY,omitempty"`
	Modifier bool      `json:"modifier,omitempty"`
}

// Point returns the event position.
func (e Event) Point() geometry.Point { return geometry.Point{X: e.X, Y: e.Y} }

// Dispatch applies an event. It reports whether the viewer state changed;
// unknown event types are an error and change nothing.
func (v *Viewer) Dispatch(e Event) (bool, error) {
	switch e.Type {
	case EventImageLoaded:
		return v.ImageLoaded(e.Width, e.Height), nil
	case EventImageFailed:
		return v.ImageFailed(), nil
	case EventResize:
		return v.Resize(geometry.Size{W: e.Width, H: e.Height}), nil
	case EventPointerDown:
		return v.PointerDown(e.Point()), nil
	case EventPointerMove:
		return v.PointerMove(e.Point()), nil
	case EventPointerUp:
		return v.PointerUp(), nil
	case EventWheel:
		return v.Wheel(e.DeltaY, e.Point(), e.Modifier), nil
	case EventClickMarker:
		return v.ClickMarker(e.ID), nil
	case EventSelect:
		return v.SelectFromList(e.ID), nil
	case EventClickEmpty:
		return v.ClickEmpty(), nil
	case EventClose:
		return v.Close(), nil
	case EventBack:
		return v.Back(), nil
	case EventZoomIn:
		return v.ZoomIn(), nil
	case EventZoomOut:
		return v.ZoomOut(), nil
	case EventReset:
		return v.ResetView(), nil
	default:
		return false, errors.New(errors.ErrCodeInvalidInput, "unknown viewer event %q", e.Type)
	}
}
