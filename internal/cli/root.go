package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"anchorwatch/internal/config"
	"anchorwatch/internal/repository"
	"anchorwatch/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DBPath     string // sqlite file, overrides the configured store
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for anchorctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "anchorctl",
		Short: "anchorctl - operator tool for anchorwatch",
		Long:  "Inspect reconciled detections and manage the device whitelist against the anchorwatch store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: search standard locations)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "sqlite database path (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewWhitelistCommand(opts))
	cmd.AddCommand(NewDetectionsCommand(opts))
	cmd.AddCommand(NewCheckMACCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig resolves the config the same way the server does, then applies
// the --db override.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, _, err = config.LoadFromPath(opts.ConfigPath)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if opts.DBPath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = opts.DBPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore loads config and opens the configured repository
func openStore(ctx context.Context, opts *RootOptions) (*config.Config, repository.Repository, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "load config", err)
	}
	repo, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open store", err)
	}
	return cfg, repo, nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
	}
}
