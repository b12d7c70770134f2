// Package photos turns the photo references found in plant records into
// values the detail panel can display directly.
//
// A reference is one of:
//   - empty: the plant has no photo
//   - an http(s) URL or a data: URI: passed through untouched
//   - a path relative to the data root: read, sniffed and inlined as a
//     base64 data URI
//
// Paths that no longer exist fall back to photo/<basename>, the directory
// the photo repair tool writes to. Inlined results are cached keyed by the
// file identity (path, size, modification time).
package photos

import (
	"context"
	"encoding/base64"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/ecomap/pkg/cache"
	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/observability"
	"github.com/matzehuels/ecomap/pkg/plants"
)

var discard = log.New(io.Discard)

const (
	// DefaultMaxBytes caps the size of a photo that is inlined.
	DefaultMaxBytes = 8 << 20

	// DefaultConcurrency bounds parallel reads in ResolveAll.
	DefaultConcurrency = 8

	// FallbackDir is searched by basename when a photo path is missing.
	FallbackDir = "photo"
)

// Resolver resolves photo references against a data root.
// The zero value resolves against the working directory without caching.
type Resolver struct {
	Root        string
	Cache       cache.Cache
	Keyer       cache.Keyer
	MaxBytes    int64
	Concurrency int
	Logger      *log.Logger
}

// Resolve returns a displayable reference for ref. An empty result with a
// nil error means the plant has no photo.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "", nil
	case IsRemote(ref), IsDataURI(ref):
		return ref, nil
	}

	rel := filepath.ToSlash(ref)
	if err := errors.ValidatePath(rel); err != nil {
		return "", err
	}

	full, info, err := r.locate(rel)
	if err != nil {
		return "", err
	}
	if info.Size() > r.maxBytes() {
		return "", errors.New(errors.ErrCodeInvalidImage, "photo %s is too large (%d bytes, max %d)", rel, info.Size(), r.maxBytes())
	}

	key := r.keyer().PhotoKey(cache.FileKeyOpts{
		Path:     full,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		MaxBytes: r.maxBytes(),
	})
	c := r.cache()
	if data, ok, err := c.Get(ctx, key); err == nil && ok {
		observability.Cache().OnCacheHit(ctx, "photo")
		return string(data), nil
	} else if err != nil {
		r.logger().Debug("photo cache read failed", "key", key, "error", err)
	}
	observability.Cache().OnCacheMiss(ctx, "photo")

	data, err := os.ReadFile(full)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "read photo %s", rel)
	}
	uri, err := Inline(data)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidImage, err, "photo %s", rel)
	}

	if err := c.Set(ctx, key, []byte(uri), cache.PhotoTTL); err != nil {
		r.logger().Debug("photo cache write failed", "key", key, "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "photo", len(uri))
	}
	return uri, nil
}

// ResolveAll resolves the photos of records concurrently and returns them
// keyed by plant id. Plants whose photo cannot be resolved are left out, so
// the viewer treats them as having no photo. Only the first record for an id
// is considered. The error is non-nil only when ctx is cancelled.
func (r *Resolver) ResolveAll(ctx context.Context, records []plants.Record) (map[string]string, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]string, len(records))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency())

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.ID == "" || seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		if strings.TrimSpace(rec.Photo) == "" {
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			uri, err := r.Resolve(gctx, rec.Photo)
			if err != nil {
				r.logger().Debug("photo unavailable", "id", rec.ID, "photo", rec.Photo, "error", err)
				return nil
			}
			if uri == "" {
				return nil
			}
			mu.Lock()
			out[rec.ID] = uri
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// locate finds rel under the root, falling back to photo/<basename>.
func (r *Resolver) locate(rel string) (string, os.FileInfo, error) {
	candidates := []string{filepath.Join(r.Root, filepath.FromSlash(rel))}
	if fb := path.Join(FallbackDir, path.Base(rel)); fb != rel {
		candidates = append(candidates, filepath.Join(r.Root, filepath.FromSlash(fb)))
	}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err == nil && info.Mode().IsRegular() {
			return c, info, nil
		}
	}
	return "", nil, errors.New(errors.ErrCodeFileNotFound, "photo not found: %s", rel)
}

// Inline sniffs data and encodes it as a base64 data URI. Content that is
// not an image is rejected.
func Inline(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New(errors.ErrCodeInvalidImage, "empty file")
	}
	mime := ImageType(data)
	if mime == "" {
		return "", errors.New(errors.ErrCodeInvalidImage, "not an image (%s)", mimetype.Detect(data).String())
	}
	return DataURI(mime, data), nil
}

// ImageType returns the image MIME type of data, or "" if data is not an
// image.
func ImageType(data []byte) string {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if s := m.String(); strings.HasPrefix(s, "image/") {
			return s
		}
	}
	return ""
}

// DataURI encodes data as data:<mime>;base64,<payload>.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsRemote reports whether ref is an http or https URL.
func IsRemote(ref string) bool {
	return errors.ValidateURL(ref) == nil
}

// IsDataURI reports whether ref is a data: URI.
func IsDataURI(ref string) bool {
	return len(ref) >= 5 && strings.EqualFold(ref[:5], "data:")
}

func (r *Resolver) maxBytes() int64 {
	if r.MaxBytes > 0 {
		return r.MaxBytes
	}
	return DefaultMaxBytes
}

func (r *Resolver) concurrency() int {
	if r.Concurrency > 0 {
		return r.Concurrency
	}
	return DefaultConcurrency
}

func (r *Resolver) cache() cache.Cache {
	if r.Cache != nil {
		return r.Cache
	}
	return cache.NewNullCache()
}

func (r *Resolver) keyer() cache.Keyer {
	if r.Keyer != nil {
		return r.Keyer
	}
	return cache.NewDefaultKeyer()
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return discard
}
