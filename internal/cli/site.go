package cli

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ecomap/pkg/cache"
	"github.com/matzehuels/ecomap/pkg/config"
	"github.com/matzehuels/ecomap/pkg/mapimage"
	"github.com/matzehuels/ecomap/pkg/photos"
	"github.com/matzehuels/ecomap/pkg/server"
)

// siteLoader loads plants, photos and the base map for one viewer mount.
type siteLoader struct {
	cfg    *config.Config
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger

	// decode also decodes the base map pixels, for the terminal viewer.
	decode bool
}

// newSiteLoader opens the configured cache. The caller closes it.
func (c *CLI) newSiteLoader(ctx context.Context, cfg *config.Config, noCache, decode bool) *siteLoader {
	ch, keyer := c.newCache(ctx, cfg.Cache, noCache)
	return &siteLoader{cfg: cfg, cache: ch, keyer: keyer, logger: c.Logger, decode: decode}
}

// Close releases the cache.
func (l *siteLoader) Close() error { return l.cache.Close() }

// Load reads the plant list from the configured source, resolves photos
// concurrently and loads the base map. A broken map does not fail the load;
// the viewer falls back to its viewport.
func (l *siteLoader) Load(ctx context.Context) (*server.Site, error) {
	src, err := openSource(ctx, l.cfg)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	records, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}

	resolver := &photos.Resolver{
		Root:     l.cfg.Data.Root,
		Cache:    l.cache,
		Keyer:    l.keyer,
		MaxBytes: l.cfg.Images.PhotoMaxBytes,
		Logger:   l.logger,
	}
	refs, err := resolver.ResolveAll(ctx, records)
	if err != nil {
		return nil, err
	}

	img, err := mapimage.Load(ctx, l.cfg.Data.Map, mapimage.Options{
		Root:   l.cfg.Data.Root,
		Decode: l.decode,
		Cache:  l.cache,
		Keyer:  l.keyer,
		Logger: l.logger,
	})
	if err != nil {
		return nil, err
	}

	l.logger.Debug("loaded site", "plants", len(records), "photos", len(refs), "map", img.State)
	return &server.Site{
		Plants:   records,
		Photos:   refs,
		Map:      img,
		Messages: l.cfg.Viewer.Messages,
	}, nil
}

// loadSite loads once behind a spinner and prints a summary line.
func (c *CLI) loadSite(ctx context.Context, l *siteLoader) (*server.Site, error) {
	prog := newProgress(c.Logger)
	spin := newSpinner(ctx, "Loading plants, photos and map...")
	spin.Start()
	site, err := l.Load(ctx)
	spin.Stop()
	if err != nil {
		return nil, err
	}
	prog.done("loaded site", "plants", len(site.Plants))
	return site, nil
}
