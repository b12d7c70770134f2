// Package plants defines the plant record consumed by the map viewer and the
// loaders that produce it.
//
// A plant list is an ordered sequence of [Record] values. Records are
// handed to the viewer once, as a snapshot; nothing in this module writes a
// record back except the explicit [Save] path used by the CLI.
//
// # Formats
//
// Lists are read from JSON (a top-level array) or TOML (an array of
// [[plants]] tables). Both can also be served from a [Source], which lets the
// same list come from a file, a MongoDB collection or a SQLite table.
//
// # Validation
//
// [Validate] reports structural problems without rejecting the list. The
// viewer tolerates them: a record without an id or position simply gets no
// marker, and coordinates outside [0,100] are kept as-is.
package plants

import "context"

// DefaultLabel is drawn inside a marker whose record has no label.
const DefaultLabel = "•"

// Record is one ecological entry on the map.
//
// X and Y are percentages (0-100) of the map image's natural width and
// height. They are pointers so a missing coordinate can be told apart
// from zero.
type Record struct {
	ID          string   `json:"id" toml:"id" bson:"_id"`
	Name        string   `json:"name" toml:"name" bson:"name"`
	X           *float64 `json:"x" toml:"x" bson:"x"`
	Y           *float64 `json:"y" toml:"y" bson:"y"`
	Label       string   `json:"label,omitempty" toml:"label,omitempty" bson:"label,omitempty"`
	Description string   `json:"description,omitempty" toml:"description,omitempty" bson:"description,omitempty"`
	Photo       string   `json:"photo,omitempty" toml:"photo,omitempty" bson:"photo,omitempty"`
}

// Position returns the marker anchor in percent. ok is false when either
// coordinate is missing.
func (r Record) Position() (x, y float64, ok bool) {
	if r.X == nil || r.Y == nil {
		return 0, 0, false
	}
	return *r.X, *r.Y, true
}

// Placeable reports whether the record carries everything a marker needs.
func (r Record) Placeable() bool {
	_, _, ok := r.Position()
	return r.ID != "" && ok
}

// Glyph returns the marker label, falling back to [DefaultLabel].
func (r Record) Glyph() string {
	if r.Label == "" {
		return DefaultLabel
	}
	return r.Label
}

// At is shorthand for building a record position in tests and fixtures.
func At(x, y float64) (*float64, *float64) {
	return &x, &y
}

// Source loads a plant list from some backing store.
type Source interface {
	Load(ctx context.Context) ([]Record, error)
	Close() error
}
