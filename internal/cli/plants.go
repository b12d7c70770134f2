package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ecomap/pkg/config"
	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/plants"
	"github.com/matzehuels/ecomap/pkg/plants/mongostore"
	"github.com/matzehuels/ecomap/pkg/plants/sqlitestore"
)

// plantsCommand creates the plant list management command.
func (c *CLI) plantsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plants",
		Short: "Validate, save and import plant lists",
	}

	cmd.AddCommand(c.plantsValidateCommand())
	cmd.AddCommand(c.plantsSaveCommand())
	cmd.AddCommand(c.plantsImportCommand())

	return cmd
}

// plantsValidateCommand creates the "plants validate" subcommand.
func (c *CLI) plantsValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a plant list for records that get no marker",
		Long: `Check a plant list. Missing or duplicate ids and missing positions are
errors: those records get no marker. Coordinates outside 0-100 and empty names
are warnings. Without a file argument the configured source is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []plants.Record
			if len(args) == 1 {
				r, err := plants.LoadFile(args[0])
				if err != nil {
					return err
				}
				records = r
			} else {
				cfg, err := c.loadConfig()
				if err != nil {
					return err
				}
				src, err := openSource(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer src.Close()
				if records, err = src.Load(cmd.Context()); err != nil {
					return err
				}
			}
			return reportIssues(cmd.OutOrStdout(), len(records), plants.Validate(records))
		},
	}
}

// reportIssues prints validation results. It fails when any issue is an error.
func reportIssues(w io.Writer, count int, issues []plants.Issue) error {
	if len(issues) == 0 {
		printSuccess("%d plants, no problems found", count)
		return nil
	}
	fmt.Fprintln(w, issueTable(issues))
	if plants.HasErrors(issues) {
		return errors.New(errors.ErrCodeInvalidRecord, "plant list has errors (%d issues in %d plants)", len(issues), count)
	}
	printWarning("%d warnings in %d plants", len(issues), count)
	return nil
}

// confirm asks a yes/no question. Tests replace it.
var confirm = func(label string) (bool, error) {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	if _, err := p.Run(); err != nil {
		if stderrors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		if stderrors.Is(err, promptui.ErrInterrupt) {
			return false, context.Canceled
		}
		return false, err
	}
	return true, nil
}

type saveOpts struct {
	to  string
	yes bool
}

// plantsSaveCommand creates the "plants save" subcommand.
func (c *CLI) plantsSaveCommand() *cobra.Command {
	var opts saveOpts

	cmd := &cobra.Command{
		Use:   "save <input.json|->",
		Short: "Save edited plant data with a timestamped backup",
		Long: `Save plant data, for example a list exported from an editor, as the site's
plant list. The previous file is kept as <file>.bak.<UTC stamp>. Input that is
not a JSON list is saved only after confirmation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to := opts.to
			if to == "" {
				cfg, err := c.loadConfig()
				if err != nil {
					return err
				}
				to = cfg.PlantsPath()
			}
			return c.savePlants(cmd.InOrStdin(), args[0], to, opts.yes, time.Now())
		},
	}

	cmd.Flags().StringVar(&opts.to, "to", "", "destination (default: the configured plant list)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "save without asking when the input is not a list")

	return cmd
}

func (c *CLI) savePlants(stdin io.Reader, input, to string, yes bool, now time.Time) error {
	r := stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", input)
		}
		defer f.Close()
		r = f
	}

	doc, err := plants.ParseDocument(r)
	if err != nil {
		return err
	}
	if !doc.IsList && !yes {
		printWarning("The top level of the input is not a list")
		ok, err := confirm("Save it anyway")
		if err != nil {
			return err
		}
		if !ok {
			printInfo("Nothing saved")
			return nil
		}
	}

	res, err := plants.Save(to, doc, now)
	if err != nil {
		return err
	}
	printSuccess("Saved plant data")
	printFile(res.Path)
	if res.Backup != "" {
		printDetail("Backup: %s", res.Backup)
	}
	c.Logger.Debug("saved plants", "path", res.Path, "backup", res.Backup, "list", res.IsList)
	return nil
}

type importOpts struct {
	from string
	to   string
}

// plantsImportCommand creates the "plants import" subcommand.
func (c *CLI) plantsImportCommand() *cobra.Command {
	var opts importOpts

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy a plant list file into SQLite or MongoDB",
		Long: `Replace the plants in a database backend with the records of a JSON or TOML
plant list. The backend settings come from the source section of the config.`,
		Example: `  ecomap plants import --to sqlite
  ECOMAP_SOURCE_MONGO_URI=mongodb://localhost:27017 ecomap plants import --to mongo --from plants.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			from := opts.from
			if from == "" {
				from = cfg.PlantsPath()
			}
			records, err := plants.LoadFile(from)
			if err != nil {
				return err
			}
			if issues := plants.Validate(records); plants.HasErrors(issues) {
				printWarning("%d problems in %s; records without an id are rejected", len(issues), from)
			}

			var (
				n    int
				dest string
			)
			switch config.SourceKind(opts.to) {
			case config.SourceSQLite:
				store, err := sqlitestore.Open(cfg.SQLitePath())
				if err != nil {
					return err
				}
				defer store.Close()
				n, err = store.Replace(ctx, records)
				if err != nil {
					return err
				}
				dest = cfg.SQLitePath()
			case config.SourceMongo:
				store, err := mongostore.Open(ctx, mongostore.Config{
					URI:        cfg.Source.MongoURI,
					Database:   cfg.Source.MongoDatabase,
					Collection: cfg.Source.MongoCollection,
				})
				if err != nil {
					return err
				}
				defer store.Close()
				n, err = store.Replace(ctx, records)
				if err != nil {
					return err
				}
				dest = cfg.Source.MongoDatabase + "." + cfg.Source.MongoCollection
			default:
				return errors.New(errors.ErrCodeInvalidInput, "--to must be sqlite or mongo, got %q", opts.to)
			}

			printSuccess("Imported %d plants", n)
			printDetail("From: %s", from)
			printDetail("Into: %s", dest)
			printNextStep("Serve from it", "ECOMAP_SOURCE_KIND="+opts.to+" ecomap serve")
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "plant list file (default: the configured plant list)")
	cmd.Flags().StringVar(&opts.to, "to", string(config.SourceSQLite), "destination backend: sqlite or mongo")

	return cmd
}
