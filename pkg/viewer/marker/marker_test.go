package marker

import (
	"encoding/json"
	"testing"

	"github.com/matzehuels/ecomap/pkg/plants"
	"github.com/matzehuels/ecomap/pkg/viewer/geometry"
)

func record(id string, x, y float64) plants.Record {
	px, py := plants.At(x, y)
	return plants.Record{ID: id, Name: id, X: px, Y: py}
}

func TestLayoutPendingReturnsNothing(t *testing.T) {
	got := Layout([]plants.Record{record("p1", 20, 30)}, Pending(), geometry.Size{W: 800, H: 600})
	if got != nil {
		t.Errorf("Layout() while pending = %v, want nil", got)
	}
}

func TestLayoutReady(t *testing.T) {
	records := []plants.Record{
		record("p1", 20, 30),
		record("p2", 0, 100),
		record("p3", 150, -10),
	}
	got := Layout(records, Ready(1400, 900), geometry.Size{W: 800, H: 600})

	want := []geometry.Point{
		{X: 280, Y: 270},
		{X: 0, Y: 900},
		{X: 2100, Y: -90},
	}
	if len(got) != len(want) {
		t.Fatalf("Layout() returned %d markers, want %d", len(got), len(want))
	}
	for i, m := range got {
		if m.Anchor != want[i] {
			t.Errorf("marker %s anchor = %+v, want %+v", m.ID, m.Anchor, want[i])
		}
	}
}

func TestLayoutFailedUsesFallback(t *testing.T) {
	got := Layout([]plants.Record{record("p1", 50, 50)}, Failed(), geometry.Size{W: 800, H: 600})
	if len(got) != 1 {
		t.Fatalf("Layout() on failed image returned %d markers, want 1", len(got))
	}
	if want := (geometry.Point{X: 400, Y: 300}); got[0].Anchor != want {
		t.Errorf("anchor = %+v, want %+v", got[0].Anchor, want)
	}
}

func TestLayoutSkipsMalformed(t *testing.T) {
	x, _ := plants.At(10, 10)
	records := []plants.Record{
		{Name: "no id", X: x, Y: x},
		{ID: "no-y", X: x},
		record("ok", 10, 10),
	}
	got := Layout(records, Ready(100, 100), geometry.Size{})
	if len(got) != 1 || got[0].ID != "ok" {
		t.Errorf("Layout() = %+v, want only the well-formed record", got)
	}
}

func TestStyle(t *testing.T) {
	m := Marker{PercentX: 20, PercentY: 33.5}
	want := "left:20%;top:33.5%;transform:translate(-50%,-100%)"
	if got := m.Style(); got != want {
		t.Errorf("Style() = %q, want %q", got, want)
	}
}

func TestGlyph(t *testing.T) {
	if got := (Marker{}).Glyph(); got != plants.DefaultLabel {
		t.Errorf("Glyph() = %q, want %q", got, plants.DefaultLabel)
	}
	if got := (Marker{Label: "A"}).Glyph(); got != "A" {
		t.Errorf("Glyph() = %q, want %q", got, "A")
	}
}

func TestHitTest(t *testing.T) {
	markers := []Marker{
		{ID: "a", Anchor: geometry.Point{X: 100, Y: 100}},
		{ID: "b", Anchor: geometry.Point{X: 110, Y: 100}},
		{ID: "c", Anchor: geometry.Point{X: 400, Y: 400}},
	}

	tests := []struct {
		name   string
		p      geometry.Point
		want   string
		wantOK bool
	}{
		{"nearest wins", geometry.Point{X: 101, Y: 100}, "a", true},
		{"tie goes to later", geometry.Point{X: 105, Y: 100}, "b", true},
		{"far marker", geometry.Point{X: 398, Y: 402}, "c", true},
		{"miss", geometry.Point{X: 250, Y: 250}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := HitTest(markers, tt.p, 8)
			if ok != tt.wantOK || got.ID != tt.want {
				t.Errorf("HitTest() = (%q, %v), want (%q, %v)", got.ID, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestImageStateJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		State ImageState `json:"state"`
	}{ImageFailed})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `{"state":"failed"}`; got != want {
		t.Errorf("json = %s, want %s", got, want)
	}
}

func TestImageStateUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want ImageState
	}{
		{`"ready"`, ImageReady},
		{`"failed"`, ImageFailed},
		{`"pending"`, ImagePending},
		{`"bogus"`, ImagePending},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got ImageState
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
