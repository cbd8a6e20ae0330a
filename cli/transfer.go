package cli

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"series-tracker/models"
	"series-tracker/utils"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var parallel int

	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Add every series from a JSON file",
		Long: `Add every series listed in a JSON file to your list.

The file holds an array of {"name", "episodeCount", "imageUrl"} objects; the
output of "export" is accepted (ids are ignored and new ones assigned).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !utils.FileExists(args[0]) {
				return NewExitError(ExitCommandError, "no such file: "+args[0])
			}
			var items []models.SeriesInput
			if err := utils.ReadJSON(args[0], &items); err != nil {
				return WrapExitError(ExitCommandError, "failed to read "+args[0], err)
			}

			ctrl, _, err := openController(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			var added atomic.Int64
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(parallel, 1))
			for _, in := range items {
				g.Go(func() error {
					if _, ok := ctrl.Create(ctx, in.Name, in.EpisodeCount, in.ImageURL); ok {
						added.Add(1)
					}
					return nil
				})
			}
			_ = g.Wait()

			n := int(added.Load())
			f := newFormatter(rootOpts, cmd.OutOrStdout())
			if err := f.Message(fmt.Sprintf("Imported %d of %d series", n, len(items)), map[string]int{"imported": n, "total": len(items)}); err != nil {
				return err
			}
			if n < len(items) {
				return failure(ctrl, fmt.Sprintf("import %d series", len(items)-n))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&parallel, "parallel", 4, "number of series added at once")
	return cmd
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file.json]",
		Short: "Write your series as JSON",
		Long:  "Write your series as a JSON array to a file, or to stdout when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, err := openController(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			state := ctrl.Snapshot()
			if state.Error {
				return failure(ctrl, "load series")
			}

			if len(args) == 0 {
				return (&OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}).JSON(state.Series)
			}
			if err := utils.WriteJSON(args[0], state.Series, 0o644); err != nil {
				return WrapExitError(ExitCommandError, "failed to write "+args[0], err)
			}
			f := newFormatter(rootOpts, cmd.OutOrStdout())
			return f.Message(fmt.Sprintf("Exported %d series to %s", len(state.Series), args[0]),
				map[string]any{"exported": len(state.Series), "file": args[0]})
		},
	}
}
