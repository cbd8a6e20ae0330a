package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"series-tracker/config"
	"series-tracker/models"
	"series-tracker/server"
	"series-tracker/services"
	"series-tracker/store"
)

// setupCLI points the CLI at an in-process API and a temporary session file
func setupCLI(t *testing.T) string {
	t.Helper()
	st := store.NewMemoryStore()
	auth := services.NewAuthService(st, services.NewMemoryTokenStore(), services.AuthConfig{
		HashCost: bcrypt.MinCost,
	})
	ts := httptest.NewServer(server.NewRouter(config.Default(), auth, services.NewSeriesService(st)))
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	t.Setenv("SERIES_CONFIG", "")
	t.Setenv("API_URL", ts.URL)
	t.Setenv("DATA_DIR", dir)
	t.Setenv("SESSION_FILE", filepath.Join(dir, "session.json"))
	t.Setenv("SERIES_PASSWORD", "")
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func listJSON(t *testing.T) stateView {
	t.Helper()
	out, err := runCLI(t, "list", "--format", "json")
	require.NoError(t, err)
	var view stateView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	return view
}

func TestCommandsNeedSession(t *testing.T) {
	setupCLI(t)

	for _, args := range [][]string{{"list"}, {"whoami"}, {"add", "Dark"}} {
		_, err := runCLI(t, args...)
		require.Error(t, err, args)
		assert.Equal(t, ExitCommandError, GetExitCode(err), args)
		assert.ErrorIs(t, err, ErrNotSignedIn, args)
	}
}

func TestSeriesWorkflow(t *testing.T) {
	dir := setupCLI(t)

	out, err := runCLI(t, "register", "ana@example.com", "-p", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Registered as ana@example.com\n", out)

	out, err = runCLI(t, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com\n", out)

	out, err = runCLI(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "Series of ana@example.com\nNo series yet\n", out)

	out, err = runCLI(t, "add", "Dark", "-e", "26")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Added Dark ("), out)

	_, err = runCLI(t, "add", "Loki", "--episodes", "lots")
	require.NoError(t, err)

	view := listJSON(t)
	require.Len(t, view.Series, 2)
	assert.Equal(t, 26, view.Series[0].EpisodeCount)
	assert.Equal(t, 0, view.Series[1].EpisodeCount)
	assert.Equal(t, models.PlaceholderImageURL, view.Series[1].ImageURL)

	out, err = runCLI(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "EPISODES")
	assert.Contains(t, out, "Loki")

	_, err = runCLI(t, "edit", view.Series[1].ID, "--episodes", "18", "--image", "https://img.example/loki.png")
	require.NoError(t, err)

	_, err = runCLI(t, "add", "   ")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation")

	exported := filepath.Join(dir, "export.json")
	_, err = runCLI(t, "export", exported)
	require.NoError(t, err)

	out, err = runCLI(t, "import", exported)
	require.NoError(t, err)
	assert.Equal(t, "Imported 2 of 2 series\n", out)

	view = listJSON(t)
	require.Len(t, view.Series, 4)
	names := map[string]int{}
	for _, s := range view.Series {
		names[s.Name]++
		if s.Name == "Loki" {
			assert.Equal(t, 18, s.EpisodeCount)
			assert.Equal(t, "https://img.example/loki.png", s.ImageURL)
		}
	}
	assert.Equal(t, map[string]int{"Dark": 2, "Loki": 2}, names)

	_, err = runCLI(t, "rm", view.Series[0].ID)
	require.NoError(t, err)
	// removing an unknown id is not an error
	_, err = runCLI(t, "rm", view.Series[0].ID)
	require.NoError(t, err)
	assert.Len(t, listJSON(t).Series, 3)

	_, err = runCLI(t, "edit", "no-such-id", "--episodes", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err = runCLI(t, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Signed out ana@example.com\n", out)

	_, err = runCLI(t, "whoami")
	assert.ErrorIs(t, err, ErrNotSignedIn)

	out, err = runCLI(t, "login", "ana@example.com", "-p", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Signed in as ana@example.com\n", out)
	assert.Len(t, listJSON(t).Series, 3)
}

func TestLoginFailures(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "login", "ana@example.com", "-p", "secret1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong email or password")

	_, err = runCLI(t, "register", "ana@example.com", "-p", "123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 6 characters")

	_, err = runCLI(t, "register", "ana@example.com", "-p", "secret1")
	require.NoError(t, err)
	_, err = runCLI(t, "register", "ana@example.com", "-p", "secret1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestLoginReadsPasswordFromEnv(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "register", "ana@example.com", "-p", "secret1")
	require.NoError(t, err)

	t.Setenv("SERIES_PASSWORD", "secret1")
	out, err := runCLI(t, "login", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Signed in as ana@example.com\n", out)
}
