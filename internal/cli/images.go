package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/imagetools"
	"github.com/matzehuels/ecomap/pkg/plants"
)

// imagesCommand creates the image maintenance command.
func (c *CLI) imagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Compress, check and normalise map and plant images",
	}

	cmd.AddCommand(c.imagesCompressCommand())
	cmd.AddCommand(c.imagesCheckCommand())
	cmd.AddCommand(c.imagesNormalizeCommand())
	cmd.AddCommand(c.imagesFixPhotosCommand())
	cmd.AddCommand(c.imagesSampleCommand())

	return cmd
}

type compressOpts struct {
	maxDim  int
	quality int
	dirs    []string
}

// imagesCompressCommand creates the "images compress" subcommand.
func (c *CLI) imagesCompressCommand() *cobra.Command {
	var opts compressOpts

	cmd := &cobra.Command{
		Use:   "compress",
		Short: "Shrink the JPEG and PNG files of the site in place",
		Long: `Compress every JPEG and PNG below the configured image directories (map,
static_photos and photo by default). Images are capped at the maximum dimension
and JPEGs re-encoded at the given quality. A file that fails is reported and
the batch continues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			c.registerLogHooks()

			iopts := imagetools.Options{MaxDim: cfg.Images.MaxDim, JPEGQuality: cfg.Images.JPEGQuality}
			if cmd.Flags().Changed("max-dim") {
				iopts.MaxDim = opts.maxDim
			}
			if cmd.Flags().Changed("quality") {
				iopts.JPEGQuality = opts.quality
			}
			dirs := cfg.Images.Dirs
			if len(opts.dirs) > 0 {
				dirs = opts.dirs
			}

			files, err := imagetools.FindImages(cfg.Data.Root, dirs)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				printInfo("No images found below %s", cfg.Data.Root)
				return nil
			}

			bar := progressbar.NewOptions(len(files),
				progressbar.OptionSetDescription("Compressing images"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			results, err := imagetools.CompressTree(ctx, cfg.Data.Root, dirs, iopts, func(done, total int, res *imagetools.Result) {
				_ = bar.Add(1)
			})
			_ = bar.Finish()
			if err != nil {
				return err
			}

			var saved int64
			var failed, skipped int
			for _, r := range results {
				switch {
				case r.Err != nil:
					failed++
					printError("%s: %v", r.Path, r.Err)
				case r.Skipped:
					skipped++
				default:
					saved += r.Saved()
					c.Logger.Debug("compressed", "path", r.Path, "before", r.Before, "after", r.After, "resized", r.Resized)
				}
			}

			printSuccess("Compressed %d images", len(results)-failed-skipped)
			printDetail("Saved: %s", humanize.Bytes(uint64(max(saved, 0))))
			if skipped > 0 {
				printDetail("Skipped: %d", skipped)
			}
			if failed > 0 {
				printWarning("%d images failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.maxDim, "max-dim", imagetools.DefaultMaxDim, "longest side in pixels after resizing")
	cmd.Flags().IntVar(&opts.quality, "quality", imagetools.DefaultJPEGQuality, "JPEG quality (1-100)")
	cmd.Flags().StringSliceVar(&opts.dirs, "dir", nil, "directories below the data root to scan (repeatable)")

	return cmd
}

// imagesCheckCommand creates the "images check" subcommand.
func (c *CLI) imagesCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <image>...",
		Short: "Verify images decode and write re-encoded .fixed copies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				out, err := imagetools.CheckAndFix(cmd.Context(), path)
				if err != nil {
					failed++
					printError("%s: %v", path, err)
					continue
				}
				printSuccess("%s", path)
				printDetail("Fixed copy: %s", out)
			}
			if failed > 0 {
				return errors.New(errors.ErrCodeInvalidImage, "%d of %d images could not be read", failed, len(args))
			}
			return nil
		},
	}
}

// imagesNormalizeCommand creates the "images normalize" subcommand.
func (c *CLI) imagesNormalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <src> <dst>",
		Short: "Convert any supported image to an RGB JPEG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := imagetools.Normalize(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			printSuccess("Normalised %s", args[0])
			printFile(args[1])
			return nil
		},
	}
}

type fixPhotosOpts struct {
	dryRun bool
}

// imagesFixPhotosCommand creates the "images fix-photos" subcommand.
func (c *CLI) imagesFixPhotosCommand() *cobra.Command {
	var opts fixPhotosOpts

	cmd := &cobra.Command{
		Use:   "fix-photos",
		Short: "Normalise plant photos into static_photos and update the plant list",
		Long: `Convert every local plant photo to static_photos/<id>.jpg. Photos that
cannot be found at their path are looked up in photo/ by file name. When any
record changes, the plant list is saved with a timestamped backup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			path := cfg.PlantsPath()
			if plants.FormatFromPath(path) != plants.FormatJSON {
				return errors.New(errors.ErrCodeUnsupported, "fix-photos rewrites JSON plant lists only, got %s", filepath.Base(path))
			}
			records, err := plants.LoadFile(path)
			if err != nil {
				return err
			}

			out, fixes, changed, err := imagetools.FixPhotos(cmd.Context(), cfg.Data.Root, records)
			if err != nil {
				return err
			}

			counts := map[imagetools.FixStatus]int{}
			for _, f := range fixes {
				counts[f.Status]++
				switch f.Status {
				case imagetools.FixMissing:
					printWarning("%s: photo not found (%s)", f.ID, f.Source)
				case imagetools.FixFailed:
					printError("%s: %v", f.ID, f.Err)
				case imagetools.FixUpdated:
					printDetail("%s → %s", f.ID, f.Photo)
				}
			}
			printKeyValue("Updated", fmt.Sprint(counts[imagetools.FixUpdated]))
			printKeyValue("Already fixed", fmt.Sprint(counts[imagetools.FixRewritten]))
			printKeyValue("Missing", fmt.Sprint(counts[imagetools.FixMissing]))
			printKeyValue("Failed", fmt.Sprint(counts[imagetools.FixFailed]))

			if !changed {
				printInfo("Plant list unchanged")
				return nil
			}
			if opts.dryRun {
				printInfo("Dry run: plant list not saved")
				return nil
			}
			res, err := plants.SaveRecords(path, out, time.Now())
			if err != nil {
				return err
			}
			printSuccess("Updated plant list")
			printFile(res.Path)
			if res.Backup != "" {
				printDetail("Backup: %s", res.Backup)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "convert photos but do not rewrite the plant list")

	return cmd
}

// imagesSampleCommand creates the "images sample" subcommand.
func (c *CLI) imagesSampleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sample [path]",
		Short: "Draw a placeholder school map",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := c.loadConfig()
				if err != nil {
					return err
				}
				path = cfg.MapPath()
			}
			if err := imagetools.SampleMap(path); err != nil {
				return err
			}
			printSuccess("Wrote sample map")
			printFile(path)
			printNextStep("Try it", "ecomap view")
			return nil
		},
	}
}
