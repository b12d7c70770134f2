package imagetools

import (
	"context"
	"image"
	"image/color"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/observability"
	"github.com/matzehuels/ecomap/pkg/photos"
	"github.com/matzehuels/ecomap/pkg/plants"
)

// Photo normalisation settings.
const (
	NormalizeQuality = 85
	StaticPhotoDir   = "static_photos"
)

// FixedSuffix is appended to the file name written by CheckAndFix.
const FixedSuffix = ".fixed"

// CheckAndFix verifies that path decodes and writes a re-encoded copy to
// path+".fixed" in the same format. Formats that cannot be encoded again
// (such as WebP) are written as JPEG. It returns the output path.
func CheckAndFix(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	_, name, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return "", fail(ctx, path, errors.Wrap(errors.ErrCodeInvalidImage, err, "%s is not a recognised image", path))
	}

	start := time.Now()
	img, err := imaging.Open(path)
	if err != nil {
		return "", fail(ctx, path, errors.Wrap(errors.ErrCodeInvalidImage, err, "decode %s", path))
	}

	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		format = imaging.JPEG
	}
	out := path + FixedSuffix
	if err := writeAtomic(out, img, format); err != nil {
		return "", fail(ctx, path, err)
	}

	var before, after int64
	if info, err := os.Stat(path); err == nil {
		before = info.Size()
	}
	if info, err := os.Stat(out); err == nil {
		after = info.Size()
	}
	observability.Image().OnImageProcessed(ctx, path, before, after, time.Since(start))
	return out, nil
}

// Normalize writes src to dst as an RGB JPEG at NormalizeQuality, capped at
// DefaultMaxDim. Transparent areas are flattened onto white.
func Normalize(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fail(ctx, src, errors.Wrap(errors.ErrCodeInvalidImage, err, "open %s", src))
	}
	img, _ = capSize(img, DefaultMaxDim)
	b := img.Bounds()
	flat := imaging.New(b.Dx(), b.Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fail(ctx, src, errors.Wrap(errors.ErrCodeInternal, err, "create %s", filepath.Dir(dst)))
	}
	if err := writeAtomic(dst, flat, imaging.JPEG, imaging.JPEGQuality(NormalizeQuality)); err != nil {
		return fail(ctx, src, err)
	}

	var before, after int64
	if info, err := os.Stat(src); err == nil {
		before = info.Size()
	}
	if info, err := os.Stat(dst); err == nil {
		after = info.Size()
	}
	observability.Image().OnImageProcessed(ctx, src, before, after, time.Since(start))
	return nil
}

// FixStatus is the outcome of FixPhotos for one record.
type FixStatus string

const (
	FixUpdated   FixStatus = "updated"   // normalised and the record now points at it
	FixRewritten FixStatus = "rewritten" // normalised; the record already pointed at it
	FixMissing   FixStatus = "missing"   // photo file not found
	FixFailed    FixStatus = "failed"    // file found but could not be converted
	FixSkipped   FixStatus = "skipped"   // no photo, or a URL/data URI
)

// PhotoFix reports what FixPhotos did for one record.
type PhotoFix struct {
	ID     string
	Source string
	Photo  string // new photo reference, when updated
	Status FixStatus
	Err    error
}

// FixPhotos normalises every local plant photo under root into
// static_photos/<id>.jpg and returns a copy of records pointing at the new
// files, along with one PhotoFix per record and whether any record changed.
// A photo path that does not exist is retried as photo/<basename>.
func FixPhotos(ctx context.Context, root string, records []plants.Record) ([]plants.Record, []PhotoFix, bool, error) {
	out := make([]plants.Record, len(records))
	copy(out, records)
	fixes := make([]PhotoFix, 0, len(records))
	changed := false

	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, nil, false, err
		}
		rec := &out[i]
		fix := PhotoFix{ID: rec.ID, Source: rec.Photo}
		ref := strings.TrimSpace(rec.Photo)

		switch {
		case ref == "" || photos.IsRemote(ref) || photos.IsDataURI(ref):
			fix.Status = FixSkipped
		case errors.ValidatePlantID(rec.ID) != nil:
			fix.Status, fix.Err = FixFailed, errors.ValidatePlantID(rec.ID)
		default:
			src, ok := findPhoto(root, ref)
			if !ok {
				fix.Status = FixMissing
				break
			}
			newRef := path.Join(StaticPhotoDir, rec.ID+".jpg")
			if err := Normalize(ctx, src, filepath.Join(root, filepath.FromSlash(newRef))); err != nil {
				fix.Status, fix.Err = FixFailed, err
				break
			}
			fix.Photo = newRef
			if rec.Photo == newRef {
				fix.Status = FixRewritten
				break
			}
			rec.Photo = newRef
			fix.Status = FixUpdated
			changed = true
		}
		fixes = append(fixes, fix)
	}
	return out, fixes, changed, nil
}

// findPhoto locates ref below root, then photo/<basename>.
func findPhoto(root, ref string) (string, bool) {
	rel := filepath.ToSlash(ref)
	var candidates []string
	if errors.ValidatePath(rel) == nil {
		candidates = append(candidates, filepath.Join(root, filepath.FromSlash(rel)))
	}
	candidates = append(candidates, filepath.Join(root, photos.FallbackDir, path.Base(rel)))
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c, true
		}
	}
	return "", false
}
