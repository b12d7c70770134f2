package plants

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/ecomap/pkg/errors"
)

func TestDecodeJSON(t *testing.T) {
	input := `[
  {"id": "p1", "name": "Oak", "x": 20, "y": 30, "description": "A tree"},
  {"id": "p2", "name": "소나무", "x": 55.5, "y": 0, "label": "🌲", "photo": "photo/pine.jpg"},
  {"id": "p3", "name": "No position"}
]`
	records, err := Decode(strings.NewReader(input), FormatJSON)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}

	x, y, ok := records[0].Position()
	if !ok || x != 20 || y != 30 {
		t.Errorf("records[0].Position() = (%v, %v, %v), want (20, 30, true)", x, y, ok)
	}
	if _, y, ok := records[1].Position(); !ok || y != 0 {
		t.Errorf("records[1] y=0 should be present, got y=%v ok=%v", y, ok)
	}
	if records[2].Placeable() {
		t.Error("record without x/y should not be placeable")
	}
	if got := records[0].Glyph(); got != DefaultLabel {
		t.Errorf("Glyph() = %q, want %q", got, DefaultLabel)
	}
	if got := records[1].Glyph(); got != "🌲" {
		t.Errorf("Glyph() = %q, want %q", got, "🌲")
	}
}

func TestDecodeTOML(t *testing.T) {
	input := `
[[plants]]
id = "p1"
name = "Oak"
x = 20.0
y = 30.0
description = "A tree"

[[plants]]
id = "p2"
name = "Maple"
x = 70.0
y = 40.0
`
	records, err := Decode(strings.NewReader(input), FormatTOML)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Name != "Oak" || records[0].Description != "A tree" {
		t.Errorf("records[0] = %+v", records[0])
	}
	if x, _, ok := records[1].Position(); !ok || x != 70 {
		t.Errorf("records[1].Position() x = %v ok = %v, want 70 true", x, ok)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
		code   errors.Code
	}{
		{"bad json", `[{"id":`, FormatJSON, errors.ErrCodeInvalidFormat},
		{"object not list", `{"id":"p1"}`, FormatJSON, errors.ErrCodeInvalidFormat},
		{"bad toml", `[[plants]`, FormatTOML, errors.ErrCodeInvalidFormat},
		{"unknown format", `[]`, Format("yaml"), errors.ErrCodeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), tt.format)
			if !errors.Is(err, tt.code) {
				t.Errorf("Decode() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"data/plants.json", FormatJSON},
		{"data/plants.TOML", FormatTOML},
		{"plants", FormatJSON},
	}
	for _, tt := range tests {
		if got := FormatFromPath(tt.path); got != tt.want {
			t.Errorf("FormatFromPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plants.json")
	if err := os.WriteFile(path, []byte(`[{"id":"p1","name":"Oak","x":1,"y":2}]`), 0644); err != nil {
		t.Fatal(err)
	}

	src := NewFileSource(path)
	defer src.Close()

	records, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(records) != 1 || records[0].ID != "p1" {
		t.Errorf("Load() = %+v", records)
	}

	_, err = NewFileSource(filepath.Join(dir, "missing.json")).Load(context.Background())
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestFileSourceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFileSource("unused.json").Load(ctx); err != context.Canceled {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestValidate(t *testing.T) {
	x, y := At(20, 30)
	farX, farY := At(120, -5)

	records := []Record{
		{ID: "p1", Name: "Oak", X: x, Y: y},
		{ID: "p1", Name: "Oak again", X: x, Y: y},
		{Name: "Anonymous", X: x, Y: y},
		{ID: "p3", Name: "Floating"},
		{ID: "p4", Name: "Off map", X: farX, Y: farY},
		{ID: "p5", X: x, Y: y},
	}

	issues := Validate(records)
	want := []struct {
		index int
		sev   Severity
		frag  string
	}{
		{1, SeverityError, "duplicate id"},
		{2, SeverityError, "missing id"},
		{3, SeverityError, "missing x/y"},
		{4, SeverityWarning, "x=120"},
		{4, SeverityWarning, "y=-5"},
		{5, SeverityWarning, "empty name"},
	}
	if len(issues) != len(want) {
		t.Fatalf("Validate() returned %d issues, want %d: %v", len(issues), len(want), issues)
	}
	for i, w := range want {
		got := issues[i]
		if got.Index != w.index || got.Severity != w.sev || !strings.Contains(got.Message, w.frag) {
			t.Errorf("issue %d = %+v, want index=%d severity=%s containing %q", i, got, w.index, w.sev, w.frag)
		}
	}
	if !HasErrors(issues) {
		t.Error("HasErrors() = false, want true")
	}
	if HasErrors(Validate(records[:1])) {
		t.Error("HasErrors() on a clean list = true, want false")
	}
}

func TestSaveWritesBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data", "plants.json")
	now := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

	doc, err := ParseDocument(strings.NewReader(`[{"id":"p1","name":"참나무 <oak>"}]`))
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}
	if !doc.IsList {
		t.Error("IsList = false, want true")
	}

	res, err := Save(path, doc, now)
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if res.Backup != "" {
		t.Errorf("first Save() Backup = %q, want none", res.Backup)
	}

	written, _ := os.ReadFile(path)
	if !strings.Contains(string(written), "참나무 <oak>") {
		t.Errorf("saved file should keep non-ASCII and HTML characters verbatim:\n%s", written)
	}
	if !strings.Contains(string(written), "\n  {") {
		t.Errorf("saved file should be indented:\n%s", written)
	}

	res, err = Save(path, doc, now)
	if err != nil {
		t.Fatalf("second Save() error: %v", err)
	}
	wantBackup := path + ".bak.20240305T093000Z"
	if res.Backup != wantBackup {
		t.Errorf("Backup = %q, want %q", res.Backup, wantBackup)
	}
	if _, err := os.Stat(wantBackup); err != nil {
		t.Errorf("backup file missing: %v", err)
	}
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument(strings.NewReader(`{"plants": []}`))
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}
	if doc.IsList {
		t.Error("IsList = true for an object, want false")
	}

	if _, err := ParseDocument(strings.NewReader("   \n")); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty input error = %v, want INVALID_INPUT", err)
	}
	if _, err := ParseDocument(strings.NewReader("{")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad JSON error = %v, want INVALID_FORMAT", err)
	}
}

func TestSaveRecordsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plants.json")
	x, y := At(12.5, 80)
	in := []Record{{ID: "p1", Name: "Oak", X: x, Y: y, Photo: "photo/oak.jpg"}}

	if _, err := SaveRecords(path, in, time.Now()); err != nil {
		t.Fatalf("SaveRecords() error: %v", err)
	}
	out, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if len(out) != 1 || out[0].Photo != "photo/oak.jpg" || *out[0].X != 12.5 {
		got, _ := json.Marshal(out)
		t.Errorf("round trip = %s", got)
	}
}
