package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ecomap/pkg/config"
	"github.com/matzehuels/ecomap/pkg/errors"
)

// configCommand creates the configuration command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and inspect the ecomap configuration",
		Long: `Ecomap reads ` + config.DefaultFile + ` from the working directory (or the file
given with --config) and then applies ` + config.EnvPrefix + `SECTION_KEY environment
overrides, for example ` + config.EnvPrefix + `SOURCE_KIND=sqlite.`,
	}

	cmd.AddCommand(c.configInitCommand())
	cmd.AddCommand(c.configShowCommand())

	return cmd
}

// configInitCommand creates the "config init" subcommand.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if path == "" {
				path = config.DefaultFile
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.New(errors.ErrCodeInvalidInput, "%s already exists (use --force to overwrite)", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			printSuccess("Wrote default configuration")
			printFile(path)
			printNextStep("Check it", "ecomap config show")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	return cmd
}

// configShowCommand creates the "config show" subcommand.
func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			for _, kv := range configRows(cfg) {
				printKeyValue(kv[0], kv[1])
			}
			if err := cfg.Validate(); err != nil {
				printWarning("%v", err)
			}
			return nil
		},
	}
}

// configRows flattens the settings a site operator usually checks.
// Secrets are masked.
func configRows(cfg *config.Config) [][2]string {
	rows := [][2]string{
		{"Data root", cfg.Data.Root},
		{"Plant list", cfg.PlantsPath()},
		{"Map", cfg.MapPath()},
		{"Source", string(cfg.Source.Kind)},
	}
	switch cfg.Source.Kind {
	case config.SourceSQLite:
		rows = append(rows, [2]string{"SQLite", cfg.SQLitePath()})
	case config.SourceMongo:
		rows = append(rows, [2]string{"MongoDB", cfg.Source.MongoDatabase + "." + cfg.Source.MongoCollection})
	}
	rows = append(rows, [2]string{"Cache", string(cfg.Cache.Backend)})
	switch cfg.Cache.Backend {
	case config.CacheFile:
		dir, _ := fileCacheDir(cfg.Cache)
		rows = append(rows, [2]string{"Cache dir", dir})
	case config.CacheRedis:
		rows = append(rows, [2]string{"Redis", cfg.Cache.RedisAddr})
		if cfg.Cache.RedisPassword != "" {
			rows = append(rows, [2]string{"Redis password", "****"})
		}
	}
	rows = append(rows,
		[2]string{"Listen", cfg.Server.Addr},
		[2]string{"Max sessions", fmt.Sprint(cfg.Server.MaxSessions)},
		[2]string{"Origins", strings.Join(cfg.Server.AllowedOrigins, ", ")},
		[2]string{"Viewport", fmt.Sprintf("%gx%g", cfg.Viewer.Width, cfg.Viewer.Height)},
		[2]string{"Image dirs", strings.Join(cfg.Images.Dirs, ", ")},
	)
	return rows
}
