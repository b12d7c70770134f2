package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (ECOMAP_*). A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Viewer.Messages = cfg.Viewer.Messages.WithDefaults()
	return cfg, nil
}

// envKey maps ECOMAP_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validSources = map[SourceKind]bool{
	SourceFile:   true,
	SourceSQLite: true,
	SourceMongo:  true,
}

var validCaches = map[CacheBackend]bool{
	CacheNone:  true,
	CacheFile:  true,
	CacheRedis: true,
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.Data.Map == "" {
		return fmt.Errorf("data.map is required")
	}

	if !validSources[c.Source.Kind] {
		return fmt.Errorf("invalid source.kind %q: must be one of file, sqlite, mongo", c.Source.Kind)
	}
	switch c.Source.Kind {
	case SourceFile:
		if c.Data.Plants == "" {
			return fmt.Errorf("data.plants is required for the file source")
		}
	case SourceSQLite:
		if c.Source.SQLitePath == "" {
			return fmt.Errorf("source.sqlite_path is required for the sqlite source")
		}
	case SourceMongo:
		if c.Source.MongoURI == "" {
			return fmt.Errorf("source.mongo_uri is required for the mongo source")
		}
	}

	if !validCaches[c.Cache.Backend] {
		return fmt.Errorf("invalid cache.backend %q: must be one of none, file, redis", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required for the redis cache")
	}

	if c.Server.MaxSessions < 0 {
		return fmt.Errorf("server.max_sessions must be non-negative")
	}
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		return fmt.Errorf("viewer width and height must be positive")
	}
	if c.Images.MaxDim <= 0 {
		return fmt.Errorf("images.max_dim must be positive")
	}
	if c.Images.JPEGQuality < 1 || c.Images.JPEGQuality > 100 {
		return fmt.Errorf("images.jpeg_quality must be between 1 and 100")
	}
	if c.Images.PhotoMaxBytes < 0 {
		return fmt.Errorf("images.photo_max_bytes must be non-negative")
	}
	return nil
}
