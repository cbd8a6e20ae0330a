package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"series-tracker/models"
)

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "register [email]",
		Short: "Create an account and sign in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, pw, err := readCredentials(cmd, args, password)
			if err != nil {
				return err
			}
			return runAuth(cmd.Context(), rootOpts, cmd, email, pw, true)
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", fmt.Sprintf("password, at least %d characters", models.MinPasswordLength))
	return cmd
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Sign in and remember the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, pw, err := readCredentials(cmd, args, password)
			if err != nil {
				return err
			}
			return runAuth(cmd.Context(), rootOpts, cmd, email, pw, false)
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	return cmd
}

func runAuth(ctx context.Context, opts *RootOptions, cmd *cobra.Command, email, password string, register bool) error {
	c := newClient(opts)

	var (
		identity models.Identity
		err      error
	)
	if register {
		identity, err = c.SignUp(ctx, email, password)
	} else {
		identity, err = c.SignIn(ctx, email, password)
	}
	if err != nil {
		return WrapExitError(ExitFailure, authFailureMessage(err, register), err)
	}

	if err := newSessionStore(opts).Set(identity); err != nil {
		return WrapExitError(ExitCommandError, "failed to save session", err)
	}

	f := newFormatter(opts, cmd.OutOrStdout())
	verb := "Signed in"
	if register {
		verb = "Registered"
	}
	return f.Message(fmt.Sprintf("%s as %s", verb, identity.Email), models.Identity{UserID: identity.UserID, Email: identity.Email})
}

func authFailureMessage(err error, register bool) string {
	switch {
	case errors.Is(err, models.ErrConflict):
		return "an account with this email already exists"
	case errors.Is(err, models.ErrUnauthorized):
		return "wrong email or password"
	case errors.Is(err, models.ErrRateLimited):
		return "too many attempts, try again in a minute"
	case errors.Is(err, models.ErrInvalidInput) && register:
		return fmt.Sprintf("a valid email and a password of at least %d characters are required", models.MinPasswordLength)
	case register:
		return "registration failed"
	default:
		return "sign in failed"
	}
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := newSessionStore(rootOpts)
			identity, ok, err := store.Get()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read session", err)
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			if !ok {
				return f.Message("Not signed in", map[string]bool{"signedOut": false})
			}

			c := newClient(rootOpts)
			c.SetToken(identity.Token)
			// the local session is cleared even if the server cannot be reached
			signOutErr := c.SignOut(cmd.Context())
			if err := store.Clear(); err != nil {
				return WrapExitError(ExitCommandError, "failed to clear session", err)
			}
			if signOutErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: server sign out failed: %v\n", signOutErr)
			}
			return f.Message("Signed out "+identity.Email, map[string]bool{"signedOut": true})
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, ok, err := newSessionStore(rootOpts).Get()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read session", err)
			}
			if !ok {
				return &ExitError{Code: ExitCommandError, Message: ErrNotSignedIn.Error(), Err: ErrNotSignedIn}
			}
			f := newFormatter(rootOpts, cmd.OutOrStdout())
			return f.Message(identity.Email, models.Identity{UserID: identity.UserID, Email: identity.Email})
		},
	}
}
