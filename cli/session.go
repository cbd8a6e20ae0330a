package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"series-tracker/client"
	"series-tracker/models"
	"series-tracker/session"
	"series-tracker/syncer"
)

// ErrNotSignedIn is returned by commands that need a saved session
var ErrNotSignedIn = errors.New(`not signed in: run "series-tracker login" first`)

func newClient(opts *RootOptions) *client.Client {
	return client.New(opts.cfg.APIURL, opts.cfg.RequestTimeout)
}

func newSessionStore(opts *RootOptions) *session.FileStore {
	return session.NewFileStore(opts.cfg.SessionFile)
}

// signedInClient returns a client carrying the saved token
func signedInClient(opts *RootOptions) (*client.Client, models.Identity, error) {
	identity, ok, err := newSessionStore(opts).Get()
	if err != nil {
		return nil, models.Identity{}, WrapExitError(ExitCommandError, "failed to read session", err)
	}
	if !ok {
		return nil, models.Identity{}, &ExitError{Code: ExitCommandError, Message: ErrNotSignedIn.Error(), Err: ErrNotSignedIn}
	}
	c := newClient(opts)
	c.SetToken(identity.Token)
	return c, identity, nil
}

// openController signs in from the session, starts a controller and
// waits for its first load to finish.
func openController(ctx context.Context, opts *RootOptions) (*syncer.Controller, models.Identity, error) {
	c, identity, err := signedInClient(opts)
	if err != nil {
		return nil, models.Identity{}, err
	}

	ctrl := syncer.New(ctx, c, opts.cfg.Collection)
	sub := ctrl.Subscribe()
	defer sub.Close()

	for {
		select {
		case state, ok := <-sub.Updates():
			if !ok || !state.Loading {
				return ctrl, identity, nil
			}
		case <-ctx.Done():
			ctrl.Close()
			return nil, models.Identity{}, ctx.Err()
		}
	}
}

// failure turns the controller's error state into an ExitError
func failure(ctrl *syncer.Controller, action string) error {
	state := ctrl.Snapshot()
	msg := "failed to " + action
	if state.Failure != syncer.KindNone {
		msg = fmt.Sprintf("%s (%s)", msg, state.Failure)
	}
	if state.Failure == syncer.KindPermission {
		msg += `: session expired, run "series-tracker login"`
	}
	return NewExitError(ExitFailure, msg)
}

func title(identity models.Identity) string {
	return "Series of " + identity.Email
}

// readCredentials takes the email from args or a prompt and the password
// from --password, $SERIES_PASSWORD or a prompt.
func readCredentials(cmd *cobra.Command, args []string, password string) (string, string, error) {
	in := bufio.NewReader(cmd.InOrStdin())

	email := ""
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		if email, err = prompt(cmd.ErrOrStderr(), in, "Email: "); err != nil {
			return "", "", err
		}
	}

	if password == "" {
		password = os.Getenv("SERIES_PASSWORD")
	}
	if password == "" {
		var err error
		if password, err = prompt(cmd.ErrOrStderr(), in, "Password: "); err != nil {
			return "", "", err
		}
	}

	if strings.TrimSpace(email) == "" || password == "" {
		return "", "", NewExitError(ExitCommandError, "email and password are required")
	}
	return email, password, nil
}

func prompt(w io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
