package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"series-tracker/syncer"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print your series every time they change",
		Long: `Refresh your series on an interval and print the list after every
change, including the loading and error states. Stops on Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return NewExitError(ExitCommandError, "--interval must be positive")
			}
			c, identity, err := signedInClient(rootOpts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ctrl := syncer.New(ctx, c, rootOpts.cfg.Collection)
			defer ctrl.Close()

			sub := ctrl.Subscribe()
			defer sub.Close()

			done := make(chan struct{})
			defer close(done)
			go refreshEvery(ctx, ctrl, interval, done)

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			for {
				select {
				case <-ctx.Done():
					return nil
				case state, ok := <-sub.Updates():
					if !ok {
						return nil
					}
					if err := f.State(title(identity), state); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "time between refreshes")
	return cmd
}

func refreshEvery(ctx context.Context, ctrl *syncer.Controller, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			ctrl.Refresh(ctx)
		}
	}
}
