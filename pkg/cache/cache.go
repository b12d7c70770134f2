// Package cache stores derived bytes, such as photos encoded as data URIs,
// so repeated viewer mounts do not re-read and re-encode the same files.
//
// Three backends implement [Cache]:
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry under a cache directory (CLI)
//   - [RedisCache]: a shared Redis instance (the live viewer server)
//
// Keys come from a [Keyer]. [DefaultKeyer] hashes the file identity (path,
// size, modification time) so an edited photo never hits a stale entry, and
// [ScopedKeyer] prefixes keys when several data roots share one Redis.
package cache

import (
	"context"
	"time"
)

// TTLs for cached entries.
const (
	PhotoTTL = 7 * 24 * time.Hour
	MapTTL   = 7 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the stored bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// FileKeyOpts identifies one version of a file on disk.
type FileKeyOpts struct {
	Path     string
	Size     int64
	ModTime  time.Time
	MaxBytes int64 // resolver limit, part of the key since it changes the outcome
}

// Keyer generates cache keys.
type Keyer interface {
	// PhotoKey keys a resolved plant photo.
	PhotoKey(opts FileKeyOpts) string

	// MapKey keys a resolved base map.
	MapKey(opts FileKeyOpts) string
}

// DefaultKeyer hashes file identities into keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// PhotoKey returns photo:<sha256 of path, size, mtime, limit>.
func (DefaultKeyer) PhotoKey(o FileKeyOpts) string {
	return hashKey("photo", o.Path, o.Size, o.ModTime.UnixNano(), o.MaxBytes)
}

// MapKey returns map:<sha256 of path, size, mtime, limit>.
func (DefaultKeyer) MapKey(o FileKeyOpts) string {
	return hashKey("map", o.Path, o.Size, o.ModTime.UnixNano(), o.MaxBytes)
}
