// Package cli implements the ecomap command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ecomap/pkg/buildinfo"
	"github.com/matzehuels/ecomap/pkg/cache"
	"github.com/matzehuels/ecomap/pkg/config"
	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/plants"
	"github.com/matzehuels/ecomap/pkg/plants/mongostore"
	"github.com/matzehuels/ecomap/pkg/plants/sqlitestore"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "ecomap"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is set by the persistent --config flag.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Ecomap shows a school's ecological map with plant markers",
		Long:         `Ecomap serves and explores an interactive school ecological map: a zoomable base map with plant markers, a plant list and a detail panel. It also ships the maintenance tools for the plant list and the map and photo images.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: ./"+config.DefaultFile+" when present)")

	// Register all subcommands
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.plantsCommand())
	root.AddCommand(c.imagesCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config, Cache and Source Factories
// =============================================================================

// loadConfig reads the layered configuration. An explicit --config path must
// exist; the default file is optional.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		path = config.DefaultFile
	} else if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config", "path", path, "source", cfg.Source.Kind, "cache", cfg.Cache.Backend)
	return cfg, nil
}

// newCache opens the configured photo cache and its keyer. Failing to open
// a file or Redis cache is logged and caching is disabled rather than
// failing the command.
func (c *CLI) newCache(ctx context.Context, cfg config.CacheConfig, noCache bool) (cache.Cache, cache.Keyer) {
	keyer := cache.NewDefaultKeyer()
	if cfg.Prefix != "" {
		keyer = cache.NewScopedKeyer(keyer, cfg.Prefix)
	}
	if noCache {
		return cache.NewNullCache(), keyer
	}

	switch cfg.Backend {
	case config.CacheFile:
		dir := cfg.Dir
		if dir == "" {
			d, err := cacheDir()
			if err != nil {
				c.Logger.Warn("no cache directory, caching disabled", "error", err)
				return cache.NewNullCache(), keyer
			}
			dir = d
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			c.Logger.Warn("file cache unavailable, caching disabled", "dir", dir, "error", err)
			return cache.NewNullCache(), keyer
		}
		return fc, keyer
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			c.Logger.Warn("redis cache unavailable, caching disabled", "addr", cfg.RedisAddr, "error", err)
			return cache.NewNullCache(), keyer
		}
		return rc, keyer
	default:
		return cache.NewNullCache(), keyer
	}
}

// openSource opens the configured plant record backend.
func openSource(ctx context.Context, cfg *config.Config) (plants.Source, error) {
	switch cfg.Source.Kind {
	case config.SourceFile, "":
		return plants.NewFileSource(cfg.PlantsPath()), nil
	case config.SourceSQLite:
		store, err := sqlitestore.Open(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.SourceMongo:
		store, err := mongostore.Open(ctx, mongostore.Config{
			URI:        cfg.Source.MongoURI,
			Database:   cfg.Source.MongoDatabase,
			Collection: cfg.Source.MongoCollection,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown plant source %q", cfg.Source.Kind)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/ecomap/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
