// Package config loads ecomap settings.
//
// Values are layered: built-in defaults, then ecomap.yaml, then ECOMAP_*
// environment variables. Environment names map onto keys by lowercasing
// and turning the first underscore after the prefix into a section
// separator, so ECOMAP_SERVER_ADDR sets server.addr and
// ECOMAP_CACHE_REDIS_ADDR sets cache.redis_addr.
//
// Command-line flags override the loaded values in the CLI.
package config

import (
	"path/filepath"

	"github.com/matzehuels/ecomap/pkg/viewer/detail"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "ecomap.yaml"

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "ECOMAP_"

// SourceKind selects where plant records come from.
type SourceKind string

const (
	SourceFile   SourceKind = "file"
	SourceSQLite SourceKind = "sqlite"
	SourceMongo  SourceKind = "mongo"
)

// CacheBackend selects the photo cache.
type CacheBackend string

const (
	CacheNone  CacheBackend = "none"
	CacheFile  CacheBackend = "file"
	CacheRedis CacheBackend = "redis"
)

// Config is the top-level configuration, corresponding to ecomap.yaml.
type Config struct {
	Data   DataConfig   `yaml:"data" koanf:"data"`
	Source SourceConfig `yaml:"source" koanf:"source"`
	Cache  CacheConfig  `yaml:"cache" koanf:"cache"`
	Server ServerConfig `yaml:"server" koanf:"server"`
	Viewer ViewerConfig `yaml:"viewer" koanf:"viewer"`
	Images ImagesConfig `yaml:"images" koanf:"images"`
}

// DataConfig locates the site's files. Plants and Map are relative to Root
// unless absolute.
type DataConfig struct {
	Root   string `yaml:"root" koanf:"root"`
	Plants string `yaml:"plants" koanf:"plants"`
	Map    string `yaml:"map" koanf:"map"`
}

// SourceConfig selects the plant record backend.
type SourceConfig struct {
	Kind            SourceKind `yaml:"kind" koanf:"kind"`
	SQLitePath      string     `yaml:"sqlite_path" koanf:"sqlite_path"`
	MongoURI        string     `yaml:"mongo_uri" koanf:"mongo_uri"`
	MongoDatabase   string     `yaml:"mongo_database" koanf:"mongo_database"`
	MongoCollection string     `yaml:"mongo_collection" koanf:"mongo_collection"`
}

// CacheConfig configures the photo cache.
type CacheConfig struct {
	Backend       CacheBackend `yaml:"backend" koanf:"backend"`
	Dir           string       `yaml:"dir" koanf:"dir"` // empty: user cache dir
	RedisAddr     string       `yaml:"redis_addr" koanf:"redis_addr"`
	RedisPassword string       `yaml:"redis_password" koanf:"redis_password"`
	RedisDB       int          `yaml:"redis_db" koanf:"redis_db"`
	Prefix        string       `yaml:"prefix" koanf:"prefix"`
}

// ServerConfig configures the live viewer host.
type ServerConfig struct {
	Addr           string   `yaml:"addr" koanf:"addr"`
	MaxSessions    int      `yaml:"max_sessions" koanf:"max_sessions"` // 0: unlimited
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}

// ViewerConfig holds viewer defaults.
type ViewerConfig struct {
	Width    float64         `yaml:"width" koanf:"width"`
	Height   float64         `yaml:"height" koanf:"height"`
	Messages detail.Messages `yaml:"messages" koanf:"messages"`
}

// ImagesConfig tunes photo resolution and the image tools.
type ImagesConfig struct {
	MaxDim        int      `yaml:"max_dim" koanf:"max_dim"`
	JPEGQuality   int      `yaml:"jpeg_quality" koanf:"jpeg_quality"`
	Dirs          []string `yaml:"dirs" koanf:"dirs"`
	PhotoMaxBytes int64    `yaml:"photo_max_bytes" koanf:"photo_max_bytes"`
}

// DefaultConfig returns a Config with the layout of a fresh checkout:
// data/plants.json and map/school-map.jpg below the working directory.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Root:   ".",
			Plants: "data/plants.json",
			Map:    "map/school-map.jpg",
		},
		Source: SourceConfig{
			Kind:            SourceFile,
			SQLitePath:      "data/plants.db",
			MongoDatabase:   "ecomap",
			MongoCollection: "plants",
		},
		Cache: CacheConfig{
			Backend: CacheFile,
		},
		Server: ServerConfig{
			Addr:           ":8501",
			MaxSessions:    200,
			AllowedOrigins: []string{"*"},
		},
		Viewer: ViewerConfig{
			Width:    960,
			Height:   640,
			Messages: detail.DefaultMessages(),
		},
		Images: ImagesConfig{
			MaxDim:        1600,
			JPEGQuality:   80,
			Dirs:          []string{"map", "photo"},
			PhotoMaxBytes: 8 << 20,
		},
	}
}

// PlantsPath returns the plant list path resolved against the data root.
func (c *Config) PlantsPath() string { return c.resolve(c.Data.Plants) }

// MapPath returns the base map path resolved against the data root. URLs
// and data URIs are returned unchanged.
func (c *Config) MapPath() string {
	if isURL(c.Data.Map) {
		return c.Data.Map
	}
	return c.resolve(c.Data.Map)
}

// SQLitePath returns the SQLite database path resolved against the data root.
func (c *Config) SQLitePath() string { return c.resolve(c.Source.SQLitePath) }

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Data.Root, filepath.FromSlash(p))
}

func isURL(s string) bool {
	for _, prefix := range []string{"http://", "https://", "data:"} {
		if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
