package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ecomap/pkg/server"
	"github.com/matzehuels/ecomap/pkg/viewer/geometry"
)

// shutdownTimeout bounds how long serve waits for connections to drain.
const shutdownTimeout = 5 * time.Second

type serveOpts struct {
	addr        string
	title       string
	maxSessions int
	origins     []string
	noCache     bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive map viewer to browsers",
		Long: `Serve the map viewer over HTTP.

Every browser tab gets its own live viewer session over a websocket. The plant
list, photos and base map are reloaded for each new session, so edits show up
on the next page load.`,
		Example: `  ecomap serve
  ecomap serve --addr :9000 --max-sessions 50
  ECOMAP_CACHE_BACKEND=redis ECOMAP_CACHE_REDIS_ADDR=localhost:6379 ecomap serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8501)")
	cmd.Flags().StringVar(&opts.title, "title", "", "page title")
	cmd.Flags().IntVar(&opts.maxSessions, "max-sessions", 0, "maximum concurrent viewer sessions (default from config)")
	cmd.Flags().StringSliceVar(&opts.origins, "origin", nil, "allowed websocket/CORS origin (repeatable)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the photo cache")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, opts serveOpts) error {
	ctx := cmd.Context()

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = opts.addr
	}
	if cmd.Flags().Changed("max-sessions") {
		cfg.Server.MaxSessions = opts.maxSessions
	}
	if cmd.Flags().Changed("origin") {
		cfg.Server.AllowedOrigins = opts.origins
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.registerLogHooks()

	loader := c.newSiteLoader(ctx, cfg, opts.noCache, false)
	defer loader.Close()

	// Load once up front so a broken source fails at startup, not per tab.
	site, err := c.loadSite(ctx, loader)
	if err != nil {
		return err
	}
	printSiteStats(siteStatsOf(site))

	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		Title:          opts.title,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxSessions:    cfg.Server.MaxSessions,
		Viewport:       geometry.Size{W: cfg.Viewer.Width, H: cfg.Viewer.Height},
		Messages:       cfg.Viewer.Messages,
		Logger:         c.Logger,
	}, loader.Load)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	printSuccess("Serving the map viewer")
	printNextStep("Open", StyleLink.Render(browserURL(cfg.Server.Addr)))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.Logger.Warn("shutdown", "error", err)
	}
	printInfo("Stopped")
	return ctx.Err()
}

// browserURL turns a listen address into a URL to open locally.
func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return fmt.Sprintf("http://%s/", addr)
}

// siteStatsOf summarizes a loaded site.
func siteStatsOf(site *server.Site) siteStats {
	// Duplicate ids keep the first record, as in the viewer.
	placed := make(map[string]bool, len(site.Plants))
	markers := 0
	for _, r := range site.Plants {
		if r.Placeable() && !placed[r.ID] {
			placed[r.ID] = true
			markers++
		}
	}
	return siteStats{
		Plants:  len(site.Plants),
		Markers: markers,
		Photos:  len(site.Photos),
		Map:     site.Map.State.String(),
	}
}
