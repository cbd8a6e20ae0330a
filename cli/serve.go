package cli

import (
	"github.com/spf13/cobra"

	"series-tracker/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		port    string
		backend string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the series API server",
		Long: `Run the document store and account API.

Series are stored with the backend chosen by STORE_BACKEND (sqlite, badger or
memory). Tokens live in memory unless REDIS_ADDR is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *rootOpts.cfg
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("backend") {
				cfg.StoreBackend = backend
			}
			if err := cfg.Validate(); err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}

			srv, err := server.New(cmd.Context(), &cfg)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to start server", err)
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().StringVar(&backend, "backend", "", "store backend: sqlite, badger or memory (overrides STORE_BACKEND)")
	return cmd
}
