package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/ecomap/pkg/plants"
)

func stubConfirm(t *testing.T, answer bool) *int {
	t.Helper()
	calls := 0
	orig := confirm
	confirm = func(string) (bool, error) {
		calls++
		return answer, nil
	}
	t.Cleanup(func() { confirm = orig })
	return &calls
}

func TestSavePlants(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name      string
		input     string
		yes       bool
		answer    bool
		wantAsk   int
		wantSaved bool
	}{
		{"list saves without asking", `[{"id":"oak","name":"Oak","x":10,"y":20}]`, false, false, 0, true},
		{"object asks and saves on yes", `{"plants":[]}`, false, true, 1, true},
		{"object asks and keeps file on no", `{"plants":[]}`, false, false, 1, false},
		{"object with --yes skips asking", `{"plants":[]}`, true, false, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := stubConfirm(t, tt.answer)
			dir := t.TempDir()
			to := filepath.Join(dir, "data", "plants.json")

			c := New(io.Discard, LogInfo)
			if err := c.savePlants(strings.NewReader(tt.input), "-", to, tt.yes, now); err != nil {
				t.Fatalf("savePlants() error: %v", err)
			}
			if *calls != tt.wantAsk {
				t.Errorf("confirm called %d times, want %d", *calls, tt.wantAsk)
			}
			_, err := os.Stat(to)
			if saved := err == nil; saved != tt.wantSaved {
				t.Errorf("saved = %v, want %v", saved, tt.wantSaved)
			}
		})
	}
}

func TestSavePlantsBackup(t *testing.T) {
	stubConfirm(t, false)
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	to := filepath.Join(t.TempDir(), "plants.json")
	if err := os.WriteFile(to, []byte(`[{"id":"old"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, LogInfo)
	if err := c.savePlants(strings.NewReader(`[{"id":"new","name":"새싹"}]`), "-", to, false, now); err != nil {
		t.Fatalf("savePlants() error: %v", err)
	}

	backup := to + ".bak." + now.Format(plants.BackupTimeFormat)
	prev, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(prev) != `[{"id":"old"}]` {
		t.Errorf("backup = %q, want the previous file", prev)
	}
	cur, _ := os.ReadFile(to)
	if !strings.Contains(string(cur), "새싹") {
		t.Errorf("saved file = %q, want unescaped Korean name", cur)
	}
}

func TestSavePlantsErrors(t *testing.T) {
	stubConfirm(t, true)
	c := New(io.Discard, LogInfo)
	to := filepath.Join(t.TempDir(), "plants.json")

	tests := []struct {
		name  string
		input string
		stdin string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.json"), ""},
		{"empty stdin", "-", "  "},
		{"invalid json", "-", "{oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.savePlants(strings.NewReader(tt.stdin), tt.input, to, false, time.Now()); err == nil {
				t.Error("savePlants() error = nil, want error")
			}
		})
	}
}

func TestReportIssues(t *testing.T) {
	x, y := plants.At(10, 20)
	far, _ := plants.At(140, 0)
	tests := []struct {
		name    string
		records []plants.Record
		wantErr bool
	}{
		{"clean", []plants.Record{{ID: "oak", Name: "Oak", X: x, Y: y}}, false},
		{"warnings only", []plants.Record{{ID: "oak", X: far, Y: y}}, false},
		{"missing id", []plants.Record{{Name: "Oak", X: x, Y: y}}, true},
		{"missing position", []plants.Record{{ID: "oak", Name: "Oak"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reportIssues(io.Discard, len(tt.records), plants.Validate(tt.records))
			if (err != nil) != tt.wantErr {
				t.Errorf("reportIssues() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
