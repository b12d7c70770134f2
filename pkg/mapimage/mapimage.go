// Package mapimage loads the base map image for the viewer.
//
// A local file is read once, its natural size taken from the image header,
// and the bytes inlined as a data URI so the host can serve the page without
// a static file route. Remote URLs are passed through; their size stays
// pending until the client reports the load. A file that cannot be read or
// decoded produces a failed [Image] rather than an error, matching how a
// browser treats a broken <img>: the viewer still mounts and places markers
// against its viewport.
package mapimage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/ecomap/pkg/cache"
	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/observability"
	"github.com/matzehuels/ecomap/pkg/photos"
	"github.com/matzehuels/ecomap/pkg/viewer/marker"
)

// Image is a loaded base map.
type Image struct {
	// Ref is what the host puts in <img src>: a data URI or a URL.
	Ref    string
	Width  int
	Height int
	Format string
	State  marker.ImageState

	// Decoded holds the pixels when Options.Decode was set and the image
	// is ready. The terminal viewer samples it.
	Decoded image.Image

	// Err explains a failed load.
	Err error
}

// Info converts the load result into marker layout metadata.
func (img *Image) Info() marker.ImageInfo {
	switch img.State {
	case marker.ImageReady:
		return marker.Ready(float64(img.Width), float64(img.Height))
	case marker.ImageFailed:
		return marker.Failed()
	default:
		return marker.Pending()
	}
}

// Options configures Load.
type Options struct {
	// Root resolves relative paths. Absolute paths are used as given.
	Root string

	// Decode also decodes the pixels into Image.Decoded.
	Decode bool

	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// cachedMeta is the cached form of a ready, undecoded image.
type cachedMeta struct {
	Ref    string `json:"ref"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Load resolves ref into an Image. Only an empty ref is an error.
func Load(ctx context.Context, ref string, opts Options) (*Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "map image reference is empty")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	switch {
	case photos.IsRemote(ref):
		return &Image{Ref: ref, State: marker.ImagePending}, nil
	case photos.IsDataURI(ref):
		data, err := decodeDataURI(ref)
		if err != nil {
			return failed(ref, err), nil
		}
		return fromBytes(ref, data, opts.Decode), nil
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(opts.Root, filepath.FromSlash(ref))
	}
	info, err := os.Stat(path)
	if err != nil {
		logger.Warn("map image unavailable", "path", path, "error", err)
		return failed(ref, errors.Wrap(errors.ErrCodeFileNotFound, err, "map image %s", ref)), nil
	}

	c := opts.Cache
	if c == nil {
		c = cache.NewNullCache()
	}
	keyer := opts.Keyer
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	key := keyer.MapKey(cache.FileKeyOpts{Path: path, Size: info.Size(), ModTime: info.ModTime()})

	if !opts.Decode {
		if data, ok, err := c.Get(ctx, key); err == nil && ok {
			var meta cachedMeta
			if json.Unmarshal(data, &meta) == nil {
				observability.Cache().OnCacheHit(ctx, "map")
				return &Image{Ref: meta.Ref, Width: meta.Width, Height: meta.Height, Format: meta.Format, State: marker.ImageReady}, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "map")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return failed(ref, errors.Wrap(errors.ErrCodeFileNotFound, err, "read map image %s", ref)), nil
	}
	mime := photos.ImageType(data)
	if mime == "" {
		logger.Warn("map image is not an image", "path", path)
		return failed(ref, errors.New(errors.ErrCodeInvalidImage, "map image %s is not an image", ref)), nil
	}
	img := fromBytes(photos.DataURI(mime, data), data, opts.Decode)
	if img.State != marker.ImageReady {
		logger.Warn("map image could not be decoded", "path", path, "error", img.Err)
		return img, nil
	}
	logger.Debug("loaded map image", "path", path, "width", img.Width, "height", img.Height, "format", img.Format)

	if meta, err := json.Marshal(cachedMeta{Ref: img.Ref, Width: img.Width, Height: img.Height, Format: img.Format}); err == nil {
		if err := c.Set(ctx, key, meta, cache.MapTTL); err == nil {
			observability.Cache().OnCacheSet(ctx, "map", len(meta))
		}
	}
	return img, nil
}

// fromBytes reads the header of data, and the pixels when decode is set.
func fromBytes(ref string, data []byte, decode bool) *Image {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return failed(ref, errors.Wrap(errors.ErrCodeInvalidImage, err, "decode map image header"))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return failed(ref, errors.New(errors.ErrCodeInvalidImage, "map image has no area (%dx%d)", cfg.Width, cfg.Height))
	}
	img := &Image{Ref: ref, Width: cfg.Width, Height: cfg.Height, Format: format, State: marker.ImageReady}
	if decode {
		decoded, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return failed(ref, errors.Wrap(errors.ErrCodeInvalidImage, err, "decode map image"))
		}
		img.Decoded = decoded
	}
	return img
}

func failed(ref string, err error) *Image {
	return &Image{Ref: ref, State: marker.ImageFailed, Err: err}
}

// decodeDataURI extracts the payload of a base64 data URI.
func decodeDataURI(ref string) ([]byte, error) {
	header, payload, ok := strings.Cut(ref, ",")
	if !ok || !strings.HasSuffix(strings.ToLower(header), ";base64") {
		return nil, errors.New(errors.ErrCodeInvalidImage, "map image data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidImage, err, "map image data URI")
	}
	return data, nil
}
