package cli

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ecomap/pkg/server"
	"github.com/matzehuels/ecomap/pkg/viewer/geometry"
)

type viewOpts struct {
	selectID string
	title    string
	noCache  bool
}

// viewCommand creates the view command.
func (c *CLI) viewCommand() *cobra.Command {
	var opts viewOpts

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Explore the map in the terminal",
		Long: `Explore the map in the terminal.

The base map is drawn with colored half blocks and the plant markers on top.
Drag to pan, ctrl+wheel to zoom around the pointer, click a marker to show
its details. Tab and shift+tab walk the plant list, b goes back, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.selectID, "select", "", "plant to show at start")
	cmd.Flags().StringVar(&opts.title, "title", server.DefaultTitle, "title shown above the map")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the photo cache")
	_ = cmd.RegisterFlagCompletionFunc("select", c.completePlantIDs)

	return cmd
}

func (c *CLI) runView(ctx context.Context, opts viewOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	loader := c.newSiteLoader(ctx, cfg, opts.noCache, true)
	defer loader.Close()

	site, err := c.loadSite(ctx, loader)
	if err != nil {
		return err
	}
	if site.Map.Err != nil {
		printWarning("Map image unavailable: %v", site.Map.Err)
	}

	v, err := site.Mount(ctx, server.MountOptions{
		Viewport: geometry.Size{W: cfg.Viewer.Width, H: cfg.Viewer.Height},
		Messages: cfg.Viewer.Messages,
		Logger:   c.Logger,
	})
	if err != nil {
		return err
	}
	if opts.selectID != "" && !v.SelectFromList(opts.selectID) {
		printWarning("No plant with id %q", opts.selectID)
	}

	// The viewer logs at debug level; keep it off the alternate screen.
	c.Logger.SetOutput(io.Discard)

	p := tea.NewProgram(NewMapModel(v, site.Map.Decoded, opts.title),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}
