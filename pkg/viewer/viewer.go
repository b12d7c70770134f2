package viewer

import (
	"context"
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/observability"
	"github.com/matzehuels/ecomap/pkg/plants"
	"github.com/matzehuels/ecomap/pkg/viewer/detail"
	"github.com/matzehuels/ecomap/pkg/viewer/geometry"
	"github.com/matzehuels/ecomap/pkg/viewer/marker"
	"github.com/matzehuels/ecomap/pkg/viewer/markup"
	"github.com/matzehuels/ecomap/pkg/viewer/selection"
)

const (
	// DragSlop is how far, in screen pixels, a pointer may travel before a
	// press counts as a drag and the click that follows it is swallowed.
	DragSlop = 4.0

	// WheelStep is the zoom factor per wheel notch.
	WheelStep = 1.1

	// ButtonStep is the zoom factor of the zoom in/out controls.
	ButtonStep = 1.25
)

// DefaultViewport is used when the host does not report a size at mount.
var DefaultViewport = geometry.Size{W: 960, H: 640}

// Config carries every input the viewer needs. Nothing is looked up from
// files, caches or globals after Mount.
type Config struct {
	// Plants is the plant list snapshot. Duplicate ids keep the first record.
	Plants []plants.Record

	// Photos maps plant id to a renderable image reference (data URI, URL
	// or relative path). Missing ids have no photo.
	Photos map[string]string

	// MapImage is the resolved base map reference handed to the host.
	MapImage string

	// Viewport is the visible size of the viewer region.
	Viewport geometry.Size

	// Messages overrides the localized panel strings.
	Messages detail.Messages

	// Logger receives debug and warning output. Defaults to discarding.
	Logger *log.Logger

	// Context is passed to observability hooks. Defaults to Background.
	Context context.Context
}

// Viewer is one mounted map viewer: the transform engine, the marker layer
// and the selection controller behind a single set of input methods.
//
// Each input method runs to completion, clamp included, before it returns.
// A Viewer is not safe for concurrent use; hosts feed it from one goroutine.
type Viewer struct {
	records []plants.Record
	byID    map[string]int
	photos  map[string]string
	mapRef  string
	msgs    detail.Messages
	logger  *log.Logger
	ctx     context.Context

	image   marker.ImageInfo
	engine  *geometry.Engine
	sel     *selection.Controller
	markers []marker.Marker
	drag    dragState
}

type dragState struct {
	active       bool
	start, last  geometry.Point
	travel       float64
	swallowClick bool
}

// Mount creates a viewer with default state: zoom 1, no pan, no selection,
// empty history and the base image pending.
func Mount(cfg Config) (*Viewer, error) {
	if cfg.MapImage == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "map image reference is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	vp := cfg.Viewport
	if !vp.Valid() {
		vp = DefaultViewport
	}

	photos := make(map[string]string, len(cfg.Photos))
	for id, ref := range cfg.Photos {
		photos[id] = ref
	}

	v := &Viewer{
		photos: photos,
		mapRef: cfg.MapImage,
		msgs:   cfg.Messages.WithDefaults(),
		logger: logger,
		ctx:    ctx,
		image:  marker.Pending(),
		engine: geometry.NewEngine(vp),
		sel:    selection.New(),
	}
	v.SetPlants(cfg.Plants)
	return v, nil
}

// SetPlants replaces the plant list and rebuilds the marker layer. A shown
// plant that disappears from the list is closed and removed ids leave the
// history.
func (v *Viewer) SetPlants(records []plants.Record) {
	v.records = v.records[:0]
	v.byID = make(map[string]int, len(records))
	for _, r := range records {
		if r.ID == "" {
			v.logger.Debug("plant without id has no marker", "name", r.Name)
			continue
		}
		if _, dup := v.byID[r.ID]; dup {
			v.logger.Warn("duplicate plant id, keeping first", "id", r.ID)
			continue
		}
		v.byID[r.ID] = len(v.records)
		v.records = append(v.records, r)
	}
	v.sel.Retain(func(id string) bool {
		_, ok := v.byID[id]
		return ok
	})
	v.relayout()
}

// ImageLoaded reports the base map's natural size. Non-positive sizes are
// treated as a failed load.
func (v *Viewer) ImageLoaded(w, h float64) bool {
	size := geometry.Size{W: w, H: h}
	if !size.Valid() {
		return v.ImageFailed()
	}
	v.image = marker.Ready(w, h)
	v.engine.SetImage(size)
	v.relayout()
	v.logger.Debug("map image ready", "width", w, "height", h, "markers", len(v.markers))
	return true
}

// ImageFailed reports that the base map could not be loaded. Markers are
// still placed, against the viewport box.
func (v *Viewer) ImageFailed() bool {
	v.image = marker.Failed()
	v.engine.SetImage(v.engine.Viewport())
	v.relayout()
	v.logger.Warn("map image failed to load, using viewport for marker layout")
	return true
}

// Resize updates the viewport size.
func (v *Viewer) Resize(s geometry.Size) bool {
	if !s.Valid() {
		return false
	}
	v.engine.SetViewport(s)
	if v.image.State == marker.ImageFailed {
		v.engine.SetImage(s)
		v.relayout()
	}
	return true
}

// PointerDown starts a drag session. It is ignored while one is active.
func (v *Viewer) PointerDown(p geometry.Point) bool {
	if v.drag.active {
		return false
	}
	v.drag = dragState{active: true, start: p, last: p}
	return true
}

// PointerMove pans by the delta since the last pointer position.
func (v *Viewer) PointerMove(p geometry.Point) bool {
	if !v.drag.active {
		return false
	}
	dx, dy := p.X-v.drag.last.X, p.Y-v.drag.last.Y
	v.drag.last = p
	v.drag.travel = math.Max(v.drag.travel, math.Hypot(p.X-v.drag.start.X, p.Y-v.drag.start.Y))
	return v.engine.Pan(dx, dy)
}

// PointerUp ends the drag session, wherever the pointer was released. If the
// pointer travelled past DragSlop the next empty-area click is swallowed.
func (v *Viewer) PointerUp() bool {
	if !v.drag.active {
		return false
	}
	v.drag.active = false
	v.drag.swallowClick = v.drag.travel > DragSlop
	return true
}

// Dragging reports whether a drag session is active.
func (v *Viewer) Dragging() bool { return v.drag.active }

// Wheel zooms around the pointer. Without a modifier key the event is left
// to the page and nothing changes.
func (v *Viewer) Wheel(deltaY float64, at geometry.Point, modifier bool) bool {
	if !modifier || deltaY == 0 {
		return false
	}
	factor := WheelStep
	if deltaY > 0 {
		factor = 1 / WheelStep
	}
	return v.engine.ZoomAround(factor, at)
}

// ZoomIn zooms around the viewport centre.
func (v *Viewer) ZoomIn() bool { return v.engine.ZoomTo(ButtonStep) }

// ZoomOut zooms out around the viewport centre.
func (v *Viewer) ZoomOut() bool { return v.engine.ZoomTo(1 / ButtonStep) }

// ResetView restores zoom 1 and no pan.
func (v *Viewer) ResetView() bool {
	before := v.engine.State()
	v.engine.Reset()
	return v.engine.State() != before
}

// ClickMarker handles a click on a marker. Re-clicking the shown marker
// closes the panel. A marker click always counts, even right after a drag,
// and it discards any pending swallow.
func (v *Viewer) ClickMarker(id string) bool {
	v.drag.swallowClick = false
	return v.selectID(id, selection.FromMarker)
}

// SelectFromList handles the list control. Re-selecting the shown plant
// leaves it shown.
func (v *Viewer) SelectFromList(id string) bool {
	return v.selectID(id, selection.FromList)
}

// ClickEmpty handles a click on the map outside any marker. The click that
// ends a drag is swallowed so panning never closes the panel.
func (v *Viewer) ClickEmpty() bool {
	if v.consumeSwallowedClick() {
		return false
	}
	return v.Close()
}

// Close returns to the idle panel. History is kept.
func (v *Viewer) Close() bool {
	_, was := v.sel.Current()
	v.sel.Clear()
	return was
}

// Back shows the previously shown plant.
func (v *Viewer) Back() bool {
	id, ok := v.sel.Back()
	if !ok {
		return false
	}
	v.centerOn(id)
	observability.Viewer().OnSelect(v.ctx, id, "back")
	return true
}

func (v *Viewer) selectID(id string, src selection.Source) bool {
	if _, ok := v.byID[id]; !ok {
		v.logger.Debug("ignoring selection of unknown plant", "id", id, "source", src)
		return false
	}
	before, beforeOK := v.sel.Current()
	if v.sel.Select(id, src) {
		v.centerOn(id)
		observability.Viewer().OnSelect(v.ctx, id, src.String())
	}
	after, afterOK := v.sel.Current()
	return before != after || beforeOK != afterOK
}

func (v *Viewer) consumeSwallowedClick() bool {
	if v.drag.swallowClick {
		v.drag.swallowClick = false
		return true
	}
	return false
}

// centerOn brings the marker for id toward the viewport centre.
func (v *Viewer) centerOn(id string) {
	m, ok := marker.Find(v.markers, id)
	if !ok {
		return
	}
	v.engine.CenterOn(v.engine.ImageToScreen(m.Anchor))
}

func (v *Viewer) relayout() {
	v.markers = marker.Layout(v.records, v.image, v.engine.Viewport())
}

// Transform returns the current viewport transform.
func (v *Viewer) Transform() geometry.Transform { return v.engine.State() }

// Engine exposes the transform engine for coordinate conversion by hosts.
func (v *Viewer) Engine() *geometry.Engine { return v.engine }

// Image returns the base map's metadata state.
func (v *Viewer) Image() marker.ImageInfo { return v.image }

// MapImage returns the base map reference.
func (v *Viewer) MapImage() string { return v.mapRef }

// Markers returns the placed markers. Empty while the image is pending.
func (v *Viewer) Markers() []marker.Marker {
	out := make([]marker.Marker, len(v.markers))
	copy(out, v.markers)
	return out
}

// Plants returns the de-duplicated plant list in input order.
func (v *Viewer) Plants() []plants.Record {
	out := make([]plants.Record, len(v.records))
	copy(out, v.records)
	return out
}

// Selected returns the shown plant id, or false when idle.
func (v *Viewer) Selected() (string, bool) { return v.sel.Current() }

// History returns the back-stack, most recent last.
func (v *Viewer) History() []string { return v.sel.History() }

// Record returns the plant with the given id.
func (v *Viewer) Record(id string) (plants.Record, bool) {
	i, ok := v.byID[id]
	if !ok {
		return plants.Record{}, false
	}
	return v.records[i], true
}

// Photo returns the resolved photo reference for id.
func (v *Viewer) Photo(id string) string { return v.photos[id] }

// Messages returns the effective panel strings.
func (v *Viewer) Messages() detail.Messages { return v.msgs }

// Detail returns the panel for the current state: the plant detail when
// showing, the hint when idle.
func (v *Viewer) Detail() markup.Node {
	if id, ok := v.sel.Current(); ok {
		if r, found := v.Record(id); found {
			return detail.Render(r, v.photos[id], v.msgs)
		}
	}
	return detail.Hint(v.msgs)
}

// DetailLines returns the panel as plain text lines.
func (v *Viewer) DetailLines() []string {
	if id, ok := v.sel.Current(); ok {
		if r, found := v.Record(id); found {
			return detail.Plain(r, v.photos[id], v.msgs)
		}
	}
	return []string{v.msgs.Hint}
}
