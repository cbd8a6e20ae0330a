package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"series-tracker/models"
	"series-tracker/syncer"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "series-tracker", cmd.Use)
	assert.Contains(t, cmd.Long, "TV series")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"serve", "register", "login", "logout", "whoami", "list", "add", "edit", "rm", "import", "export", "watch"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestAddCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	addCmd, _, err := cmd.Find([]string{"add"})
	require.NoError(t, err)

	episodes := addCmd.Flags().Lookup("episodes")
	require.NotNil(t, episodes)
	assert.Equal(t, "e", episodes.Shorthand)
	assert.Equal(t, "0", episodes.DefValue)

	image := addCmd.Flags().Lookup("image")
	require.NotNil(t, image)
	assert.Equal(t, "", image.DefValue)
}

func TestWatchCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	watchCmd, _, err := cmd.Find([]string{"watch"})
	require.NoError(t, err)

	interval := watchCmd.Flags().Lookup("interval")
	require.NotNil(t, interval)
	assert.Equal(t, "30s", interval.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"whoami", "--format", "xml"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := WrapExitError(ExitFailure, "failed", models.ErrNotFound)
	assert.ErrorIs(t, wrapped, models.ErrNotFound)
	assert.Equal(t, "failed: not found", wrapped.Error())
}

func TestRenderStateGolden(t *testing.T) {
	tests := []struct {
		name  string
		state syncer.State
	}{
		{"state_loading", syncer.State{Loading: true}},
		{"state_error", syncer.State{Error: true, Failure: syncer.KindTransient}},
		{"state_empty", syncer.State{Series: []models.Series{}}},
		{"state_table", syncer.State{Series: []models.Series{
			{ID: "1", Name: "Dark", EpisodeCount: 26, ImageURL: "https://img.example/dark.png"},
			{ID: "2", Name: "Loki", EpisodeCount: 12, ImageURL: models.PlaceholderImageURL},
		}}},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, renderState(&buf, "Series of ana@example.com", tt.state))
			g.Assert(t, tt.name, buf.Bytes())
		})
	}
}
