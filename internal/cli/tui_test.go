package cli

import (
	"image"
	"image/color"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/ecomap/pkg/plants"
	"github.com/matzehuels/ecomap/pkg/viewer"
	"github.com/matzehuels/ecomap/pkg/viewer/geometry"
	"github.com/matzehuels/ecomap/pkg/viewer/marker"
)

// newTestModel mounts oak at (25%, 50%) and pine at (75%, 20%) on a 60x40
// map, in a 100x22 terminal: a 61x20 cell pane, so a 61x40 pixel viewport.
func newTestModel(t *testing.T) MapModel {
	t.Helper()
	oakX, oakY := plants.At(25, 50)
	pineX, pineY := plants.At(75, 20)
	v, err := viewer.Mount(viewer.Config{
		Plants: []plants.Record{
			{ID: "oak", Name: "Oak", X: oakX, Y: oakY, Description: "Old tree by the gate."},
			{ID: "pine", Name: "Pine", X: pineX, Y: pineY},
		},
		MapImage: "map.png",
	})
	if err != nil {
		t.Fatalf("Mount() error: %v", err)
	}
	v.ImageLoaded(60, 40)

	img := image.NewRGBA(image.Rect(0, 0, 60, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.RGBA{G: 160, A: 255})
		}
	}
	return send(t, NewMapModel(v, img, "Test Map"), tea.WindowSizeMsg{Width: 100, Height: 22})
}

func send(t *testing.T, m MapModel, msg tea.Msg) MapModel {
	t.Helper()
	next, _ := m.Update(msg)
	mm, ok := next.(MapModel)
	if !ok {
		t.Fatalf("Update() returned %T, want MapModel", next)
	}
	return mm
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func click(t *testing.T, m MapModel, x, y int) MapModel {
	t.Helper()
	m = send(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	return send(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
}

// cellOf returns the terminal cell a marker is drawn in.
func cellOf(t *testing.T, m MapModel, id string) (int, int) {
	t.Helper()
	mk, ok := marker.Find(m.Viewer.Markers(), id)
	if !ok {
		t.Fatalf("no marker %q", id)
	}
	s := m.Viewer.Engine().ImageToScreen(mk.Anchor)
	return int(s.X), int(s.Y)/pixelsPerRow + headerLines
}

func selected(m MapModel) string {
	id, _ := m.Viewer.Selected()
	return id
}

func TestMapModelResize(t *testing.T) {
	m := newTestModel(t)
	if m.paneW != 61 || m.paneH != 20 {
		t.Errorf("pane = %dx%d, want 61x20", m.paneW, m.paneH)
	}
	want := geometry.Size{W: 61, H: 40}
	if got := m.Viewer.Engine().Viewport(); got != want {
		t.Errorf("Viewport() = %v, want %v", got, want)
	}

	small := send(t, m, tea.WindowSizeMsg{Width: 10, Height: 1})
	if small.paneW != minPaneWidth || small.paneH != 1 {
		t.Errorf("small pane = %dx%d, want %dx1", small.paneW, small.paneH, minPaneWidth)
	}
}

func TestMapModelCycle(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"tab starts at first", []string{"tab"}, "oak"},
		{"tab advances", []string{"tab", "tab"}, "pine"},
		{"tab wraps", []string{"tab", "tab", "tab"}, "oak"},
		{"shift+tab starts at last", []string{"shift+tab"}, "pine"},
		{"shift+tab goes back", []string{"tab", "tab", "shift+tab"}, "oak"},
		{"esc closes", []string{"tab", "esc"}, ""},
		{"back after two", []string{"tab", "tab", "b"}, "oak"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t)
			for _, k := range tt.keys {
				m = send(t, m, key(k))
			}
			if got := selected(m); got != tt.want {
				t.Errorf("Selected() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMapModelZoomKeys(t *testing.T) {
	m := newTestModel(t)
	m = send(t, m, key("+"))
	if z := m.Viewer.Transform().Zoom; z != viewer.ButtonStep {
		t.Errorf("Zoom after + = %v, want %v", z, viewer.ButtonStep)
	}
	m = send(t, m, key("-"))
	if z := m.Viewer.Transform().Zoom; z != 1 {
		t.Errorf("Zoom after - = %v, want 1", z)
	}
	m = send(t, m, key("+"))
	m = send(t, m, key("0"))
	if z := m.Viewer.Transform().Zoom; z != 1 {
		t.Errorf("Zoom after 0 = %v, want 1", z)
	}
}

func TestMapModelQuit(t *testing.T) {
	m := newTestModel(t)
	if _, cmd := m.Update(key("q")); cmd == nil {
		t.Error("Update(q) returned no command, want tea.Quit")
	}
}

func TestMapModelClickMarker(t *testing.T) {
	m := newTestModel(t)
	x, y := cellOf(t, m, "oak")

	m = click(t, m, x, y)
	if got := selected(m); got != "oak" {
		t.Fatalf("Selected() after marker click = %q, want oak", got)
	}

	// Re-clicking the shown marker closes the panel.
	x, y = cellOf(t, m, "oak")
	m = click(t, m, x, y)
	if got := selected(m); got != "" {
		t.Errorf("Selected() after second click = %q, want none", got)
	}
}

func TestMapModelClickEmpty(t *testing.T) {
	m := newTestModel(t)
	m = send(t, m, key("tab"))
	m = send(t, m, key("tab"))

	p, inside := m.screenPoint(5, 2)
	if !inside {
		t.Fatal("cell (5,2) is outside the map pane")
	}
	if _, hit := m.markerAt(p); hit {
		t.Fatal("cell (5,2) unexpectedly covers a marker")
	}
	m = click(t, m, 5, 2)
	if got := selected(m); got != "" {
		t.Errorf("Selected() after empty click = %q, want none", got)
	}
	if n := len(m.Viewer.History()); n != 1 {
		t.Errorf("len(History()) = %d, want 1", n)
	}
}

func TestMapModelDragSwallowsClick(t *testing.T) {
	m := newTestModel(t)
	m = send(t, m, key("+"))
	before := m.Viewer.Transform()

	m = send(t, m, tea.MouseMsg{X: 30, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = send(t, m, tea.MouseMsg{X: 20, Y: 10, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	if got := m.Viewer.Transform(); got == before {
		t.Errorf("Transform() unchanged after drag: %+v", got)
	}
	m = send(t, m, tea.MouseMsg{X: 20, Y: 10, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	if m.Viewer.Dragging() {
		t.Error("Dragging() = true after release")
	}
	if got := selected(m); got != "" {
		t.Errorf("Selected() after drag = %q, want none", got)
	}
}

func TestMapModelMarkerClickAfterDrag(t *testing.T) {
	m := newTestModel(t)
	m = send(t, m, key("+"))

	m = send(t, m, tea.MouseMsg{X: 30, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = send(t, m, tea.MouseMsg{X: 20, Y: 10, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m = send(t, m, tea.MouseMsg{X: 20, Y: 10, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	x, y := cellOf(t, m, "oak")
	if _, inside := m.screenPoint(x, y); !inside {
		t.Fatalf("oak cell (%d,%d) left the map pane", x, y)
	}
	m = click(t, m, x, y)
	if got := selected(m); got != "oak" {
		t.Errorf("Selected() after drag then marker click = %q, want oak", got)
	}
}

func TestMapModelReleaseOnMarkerNeedsPressOnIt(t *testing.T) {
	m := newTestModel(t)
	x, y := cellOf(t, m, "oak")

	m = send(t, m, tea.MouseMsg{X: 5, Y: 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = send(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	if got := selected(m); got != "" {
		t.Errorf("Selected() after press off the marker = %q, want none", got)
	}
}

func TestMapModelWheel(t *testing.T) {
	tests := []struct {
		name   string
		button tea.MouseButton
		ctrl   bool
		zoomed bool
	}{
		{"ctrl wheel up zooms in", tea.MouseButtonWheelUp, true, true},
		{"plain wheel is ignored", tea.MouseButtonWheelUp, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t)
			m = send(t, m, tea.MouseMsg{X: 30, Y: 10, Ctrl: tt.ctrl, Action: tea.MouseActionPress, Button: tt.button})
			if got := m.Viewer.Transform().Zoom > 1; got != tt.zoomed {
				t.Errorf("zoomed = %v, want %v", got, tt.zoomed)
			}
		})
	}
}

func TestMapModelView(t *testing.T) {
	m := newTestModel(t)
	out := m.View()
	for _, want := range []string{"Test Map", "zoom 100%", "2 plants", "q quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	m = send(t, m, key("tab"))
	if out := m.View(); !strings.Contains(out, "Oak") {
		t.Error("View() with oak shown does not contain its name")
	}

	if got := NewMapModel(m.Viewer, nil, "x").View(); got != "loading..." {
		t.Errorf("View() before size = %q, want loading...", got)
	}
}

func TestClipWidth(t *testing.T) {
	tests := []struct {
		in   string
		w    int
		want string
	}{
		{"ab", 2, "ab"},
		{"abc", 2, "ab"},
		{"가나다", 2, "가"},
		{"a가", 2, "a"},
		{"", 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := clipWidth(tt.in, tt.w); got != tt.want {
				t.Errorf("clipWidth(%q, %d) = %q, want %q", tt.in, tt.w, got, tt.want)
			}
		})
	}
}
