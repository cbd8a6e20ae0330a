package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"series-tracker/models"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show your series",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, identity, err := openController(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			state := ctrl.Snapshot()
			if err := newFormatter(rootOpts, cmd.OutOrStdout()).State(title(identity), state); err != nil {
				return err
			}
			if state.Error {
				return failure(ctrl, "load series")
			}
			return nil
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		episodes string
		image    string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a series",
		Long: `Add a series to your list.

Episode counts that are not a non-negative number are stored as 0. Without
--image the series gets a placeholder cover.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, err := openController(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			created, ok := ctrl.Create(cmd.Context(), args[0], models.ParseEpisodeCount(episodes), image)
			if !ok {
				return failure(ctrl, "add series")
			}
			f := newFormatter(rootOpts, cmd.OutOrStdout())
			return f.Message(fmt.Sprintf("Added %s (%s)", created.Name, created.ID), created)
		},
	}

	cmd.Flags().StringVarP(&episodes, "episodes", "e", "0", "number of episodes")
	cmd.Flags().StringVarP(&image, "image", "i", "", "cover image URL")
	return cmd
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		name     string
		episodes string
		image    string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a series",
		Long:  "Change the name, episode count or cover of a series. Fields without a flag keep their value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, err := openController(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			current, found := findSeries(ctrl.Snapshot().Series, args[0])
			if !found {
				return NewExitError(ExitCommandError, fmt.Sprintf("no series with id %s", args[0]))
			}

			updated := current
			if cmd.Flags().Changed("name") {
				updated.Name = name
			}
			if cmd.Flags().Changed("episodes") {
				updated.EpisodeCount = models.ParseEpisodeCount(episodes)
			}
			if cmd.Flags().Changed("image") {
				updated.ImageURL = image
			}

			if !ctrl.Update(cmd.Context(), updated) {
				return failure(ctrl, "update series")
			}
			updated, _ = findSeries(ctrl.Snapshot().Series, updated.ID)
			f := newFormatter(rootOpts, cmd.OutOrStdout())
			return f.Message(fmt.Sprintf("Updated %s (%s)", updated.Name, updated.ID), updated)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&episodes, "episodes", "e", "", "new number of episodes")
	cmd.Flags().StringVarP(&image, "image", "i", "", "new cover image URL (empty for the placeholder)")
	return cmd
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Remove a series",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, err := openController(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			target, found := findSeries(ctrl.Snapshot().Series, args[0])
			if !found {
				target = models.Series{ID: args[0]}
			}
			if !ctrl.Delete(cmd.Context(), target) {
				return failure(ctrl, "remove series")
			}
			f := newFormatter(rootOpts, cmd.OutOrStdout())
			return f.Message("Removed "+target.ID, map[string]string{"id": target.ID})
		},
	}
}

func findSeries(list []models.Series, id string) (models.Series, bool) {
	for _, s := range list {
		if s.ID == id {
			return s, true
		}
	}
	return models.Series{}, false
}
