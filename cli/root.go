// Package cli implements the series-tracker command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"series-tracker/config"
	"series-tracker/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "series-tracker",
		Short: "Track the TV series you watch",
		Long: `series-tracker keeps a personal list of TV series (name, episode count,
cover image) on a small document server.

Run "series-tracker serve" to host the API, then register or log in and
manage your list with add, edit, rm, list and watch.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			cfg, err := config.LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			level := cfg.LogLevel
			if opts.Verbose {
				level = "debug"
			}
			// the server logs JSON; interactive commands log to stderr
			if cmd.Name() == "serve" {
				logging.Configure(logging.Config{Level: level, Output: os.Stdout})
			} else {
				if !opts.Verbose {
					level = "warn"
				}
				logging.Configure(logging.Config{Level: level, Output: cmd.ErrOrStderr(), Console: true})
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file (default $SERIES_CONFIG)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// Execute runs the root command until it finishes or the process is
// interrupted, and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
