package plants

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/ecomap/pkg/errors"
)

// Format identifies a plant list encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the encoding from a file extension. Unknown
// extensions are treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// tomlList is the on-disk shape of a TOML plant list.
type tomlList struct {
	Plants []Record `toml:"plants"`
}

// Decode reads a plant list in the given format.
func Decode(r io.Reader, format Format) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read plant list")
	}

	switch format {
	case FormatJSON:
		var records []Record
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&records); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode JSON plant list")
		}
		return records, nil
	case FormatTOML:
		var list tomlList
		if err := toml.Unmarshal(data, &list); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode TOML plant list")
		}
		return list.Plants, nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported plant list format %q", format)
	}
}

// LoadFile reads a plant list from disk, picking the decoder by extension.
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "plant list %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open plant list %s", path)
	}
	defer f.Close()
	return Decode(f, FormatFromPath(path))
}

// FileSource serves a plant list from a JSON or TOML file.
type FileSource struct {
	Path string
}

// NewFileSource returns a source reading path on every Load.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads the file. The context is only checked before the read.
func (s *FileSource) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(s.Path)
}

// Close does nothing for file sources.
func (s *FileSource) Close() error { return nil }

var _ Source = (*FileSource)(nil)
