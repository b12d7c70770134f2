// Package imagetools holds the maintenance operations run over a data root:
// shrinking map and photo files, checking and re-encoding a suspect image,
// normalising plant photos into static_photos/, and drawing a sample map for
// a fresh checkout.
//
// Each processed file is reported to [observability.Image] hooks.
package imagetools

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/disintegration/imaging"

	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/observability"
)

// Defaults for Compress.
const (
	DefaultMaxDim      = 1600
	DefaultJPEGQuality = 80
)

// DefaultDirs are the directories CompressTree walks under a data root.
var DefaultDirs = []string{"map", "photo"}

// imagePattern selects the files CompressTree rewrites.
const imagePattern = "**/*.{jpg,jpeg,png}"

// Options configures Compress.
type Options struct {
	MaxDim      int // longest side after resizing
	JPEGQuality int
}

func (o Options) withDefaults() Options {
	if o.MaxDim <= 0 {
		o.MaxDim = DefaultMaxDim
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = DefaultJPEGQuality
	}
	return o
}

// Result describes one processed file.
type Result struct {
	Path    string
	Before  int64
	After   int64
	Width   int
	Height  int
	Resized bool
	Skipped bool // not a JPEG or PNG
	Err     error
}

// Saved returns the bytes saved, negative if the file grew.
func (r Result) Saved() int64 { return r.Before - r.After }

// Compress rewrites path in place: the longest side is capped at MaxDim
// with Lanczos resampling, JPEGs are re-encoded at JPEGQuality and PNGs with
// the best compression level. Other formats are skipped.
func Compress(ctx context.Context, path string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	res := &Result{Path: path}

	format, ok := compressible(path)
	if !ok {
		res.Skipped = true
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	info, err := os.Stat(path)
	if err != nil {
		return nil, fail(ctx, path, errors.Wrap(errors.ErrCodeFileNotFound, err, "stat %s", path))
	}
	res.Before = info.Size()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fail(ctx, path, errors.Wrap(errors.ErrCodeInvalidImage, err, "open %s", path))
	}
	img, res.Resized = capSize(img, opts.MaxDim)
	b := img.Bounds()
	res.Width, res.Height = b.Dx(), b.Dy()

	var encOpts []imaging.EncodeOption
	switch format {
	case imaging.JPEG:
		encOpts = append(encOpts, imaging.JPEGQuality(opts.JPEGQuality))
	case imaging.PNG:
		encOpts = append(encOpts, imaging.PNGCompressionLevel(png.BestCompression))
	}
	if err := writeAtomic(path, img, format, encOpts...); err != nil {
		return nil, fail(ctx, path, err)
	}

	if info, err := os.Stat(path); err == nil {
		res.After = info.Size()
	}
	observability.Image().OnImageProcessed(ctx, path, res.Before, res.After, time.Since(start))
	return res, nil
}

// Progress is called after each file of a batch.
type Progress func(done, total int, res *Result)

// CompressTree compresses every JPEG and PNG below root/<dir> for each of
// dirs (DefaultDirs when empty). Missing directories are ignored. A file
// that fails is recorded in its Result and does not stop the batch.
func CompressTree(ctx context.Context, root string, dirs []string, opts Options, progress Progress) ([]Result, error) {
	files, err := FindImages(root, dirs)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := Compress(ctx, f, opts)
		if err != nil {
			res = &Result{Path: f, Err: err}
		}
		results = append(results, *res)
		if progress != nil {
			progress(i+1, len(files), res)
		}
	}
	return results, nil
}

// FindImages lists the JPEG and PNG files below root/<dir> for each dir,
// sorted, matching extensions case-insensitively.
func FindImages(root string, dirs []string) ([]string, error) {
	if len(dirs) == 0 {
		dirs = DefaultDirs
	}
	var files []string
	for _, d := range dirs {
		base := filepath.Join(root, filepath.FromSlash(d))
		if info, err := os.Stat(base); err != nil || !info.IsDir() {
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(base), imagePattern,
			doublestar.WithCaseInsensitive(), doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "scan %s", base)
		}
		for _, m := range matches {
			files = append(files, filepath.Join(base, filepath.FromSlash(m)))
		}
	}
	sort.Strings(files)
	return files, nil
}

// compressible reports the output format for path, by extension.
func compressible(path string) (imaging.Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return imaging.JPEG, true
	case ".png":
		return imaging.PNG, true
	}
	return 0, false
}

// capSize fits img within maxDim x maxDim, keeping the aspect ratio.
func capSize(img image.Image, maxDim int) (image.Image, bool) {
	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return img, false
	}
	return imaging.Fit(img, maxDim, maxDim, imaging.Lanczos), true
}

// writeAtomic encodes img to a temporary file beside path and renames it
// over path.
func writeAtomic(path string, img image.Image, format imaging.Format, opts ...imaging.EncodeOption) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create temp file for %s", path)
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, img, format, opts...); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeInvalidImage, err, "encode %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "replace %s", path)
	}
	return nil
}

// fail reports err to the image hooks and returns it.
func fail(ctx context.Context, path string, err error) error {
	observability.Image().OnImageError(ctx, path, err)
	return err
}
