package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ecomap/pkg/server"
	"github.com/matzehuels/ecomap/pkg/viewer"
	"github.com/matzehuels/ecomap/pkg/viewer/geometry"
)

type snapshotOpts struct {
	selectIDs []string
	width     float64
	height    float64
	output    string
	detail    bool
	noCache   bool
}

// snapshotCommand creates the snapshot command.
func (c *CLI) snapshotCommand() *cobra.Command {
	var opts snapshotOpts

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the viewer state as JSON",
		Long: `Mount a viewer, apply the given selections in order and print the resulting
frame: transform, markers, list options, history and detail panel HTML.

Useful for checking how a plant list lays out without opening a browser.`,
		Example: `  ecomap snapshot --select oak --select pine
  ecomap snapshot --select oak --detail
  ecomap snapshot --width 1280 --height 800 -o frame.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("width") {
				opts.width = cfg.Viewer.Width
			}
			if !cmd.Flags().Changed("height") {
				opts.height = cfg.Viewer.Height
			}

			loader := c.newSiteLoader(ctx, cfg, opts.noCache, false)
			defer loader.Close()
			site, err := loader.Load(ctx)
			if err != nil {
				return err
			}

			v, err := site.Mount(ctx, server.MountOptions{
				Viewport: geometry.Size{W: opts.width, H: opts.height},
				Messages: cfg.Viewer.Messages,
				Logger:   c.Logger,
			})
			if err != nil {
				return err
			}
			for _, id := range opts.selectIDs {
				if !v.SelectFromList(id) {
					c.Logger.Warn("selection had no effect", "id", id)
				}
			}

			out := io.Writer(os.Stdout)
			if opts.output != "" {
				f, err := os.Create(opts.output)
				if err != nil {
					return fmt.Errorf("create %s: %w", opts.output, err)
				}
				defer f.Close()
				out = f
			}
			if err := writeSnapshot(out, v.Frame(), opts.detail); err != nil {
				return err
			}
			if opts.output != "" {
				printSuccess("Snapshot written")
				printFile(opts.output)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&opts.selectIDs, "select", nil, "plant to select from the list (repeatable, applied in order)")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "viewport width in pixels (default from config)")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "viewport height in pixels (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.detail, "detail", false, "print only the detail panel HTML")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the photo cache")
	_ = cmd.RegisterFlagCompletionFunc("select", c.completePlantIDs)

	return cmd
}

// writeSnapshot writes the frame as indented JSON, or only its detail HTML.
func writeSnapshot(w io.Writer, f viewer.Frame, detailOnly bool) error {
	if detailOnly {
		_, err := fmt.Fprintln(w, f.Detail)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

// completePlantIDs completes plant ids from the configured source.
func (c *CLI) completePlantIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	src, err := openSource(cmd.Context(), cfg)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer src.Close()
	records, err := src.Load(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if r.Name != "" {
			ids = append(ids, r.ID+"\t"+r.Name)
		} else {
			ids = append(ids, r.ID)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}
