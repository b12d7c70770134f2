package plants

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/ecomap/pkg/errors"
)

// BackupTimeFormat is the UTC stamp appended to backup file names.
const BackupTimeFormat = "20060102T150405Z"

// SaveResult describes what Save wrote.
type SaveResult struct {
	Path   string
	Backup string // empty when there was no previous file
	IsList bool   // false when the top-level JSON value was not an array
}

// Parsed is a decoded JSON document ready to be saved.
type Parsed struct {
	value  any
	IsList bool
}

// ParseDocument decodes arbitrary JSON and records whether the top level is
// an array. Callers decide whether to continue with a non-list document.
func ParseDocument(r io.Reader) (*Parsed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read input")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "input is empty")
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse JSON")
	}
	_, isList := v.([]any)
	return &Parsed{value: v, IsList: isList}, nil
}

// Save writes doc to path as indented UTF-8 JSON. An existing file is first
// copied to <path>.bak.<UTC stamp>.
func Save(path string, doc *Parsed, now time.Time) (*SaveResult, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", filepath.Dir(path))
	}

	res := &SaveResult{Path: path, IsList: doc.IsList}
	if prev, err := os.ReadFile(path); err == nil {
		res.Backup = path + ".bak." + now.UTC().Format(BackupTimeFormat)
		if err := os.WriteFile(res.Backup, prev, 0644); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "write backup %s", res.Backup)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}

	out, err := encode(doc.value)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return res, nil
}

// SaveRecords writes a typed plant list through the same backup path.
func SaveRecords(path string, records []Record, now time.Time) (*SaveResult, error) {
	return Save(path, &Parsed{value: records, IsList: true}, now)
}

// encode marshals with two-space indentation and without escaping
// non-ASCII text or HTML characters.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode JSON")
	}
	return buf.Bytes(), nil
}
