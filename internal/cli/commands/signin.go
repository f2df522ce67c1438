package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/appshell-dev/appshell/internal/app"
	"github.com/appshell-dev/appshell/internal/authflow"
	"github.com/appshell-dev/appshell/internal/cli/input"
	"github.com/appshell-dev/appshell/internal/cli/prefs"
)

// NewSignInCmd creates the signin command
func NewSignInCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in, creating the account if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				req, err := resolveCredentials(email, password)
				if err != nil {
					return err
				}
				if err := runSignIn(ctx, a, cmd.OutOrStdout(), req); err != nil {
					return err
				}
				rememberEmail(a, req.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set APPSHELL_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set APPSHELL_PASSWORD, will prompt if not provided)")

	return cmd
}

// resolveCredentials fills missing values from the environment, then from
// the terminal
func resolveCredentials(email, password string) (authflow.SignInRequest, error) {
	if email == "" {
		email = os.Getenv("APPSHELL_EMAIL")
	}
	if password == "" {
		password = os.Getenv("APPSHELL_PASSWORD")
	}

	var err error
	if email == "" {
		email, err = input.Email(lastEmail()).Run()
		if errors.Is(err, input.ErrNotInteractive) {
			return authflow.SignInRequest{}, fmt.Errorf("email is required in non-interactive mode (use --email flag or APPSHELL_EMAIL env var)")
		}
		if err != nil {
			return authflow.SignInRequest{}, err
		}
	}
	if password == "" {
		password, err = input.Password().Run()
		if errors.Is(err, input.ErrNotInteractive) {
			return authflow.SignInRequest{}, fmt.Errorf("password is required in non-interactive mode (use --password flag or APPSHELL_PASSWORD env var)")
		}
		if err != nil {
			return authflow.SignInRequest{}, err
		}
	}

	return authflow.SignInRequest{Email: email, Password: password}, nil
}

func runSignIn(ctx context.Context, a *app.App, out io.Writer, req authflow.SignInRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Signing in as %s...\n", req.Email)

	outcome, err := a.Coordinator.SignIn(ctx, req)
	if err != nil {
		return fmt.Errorf("sign in interrupted: %w", err)
	}
	if outcome.Superseded {
		return errors.New("sign in superseded by a newer request")
	}
	if outcome.Message != authflow.SignInSuccessMessage {
		return fmt.Errorf("sign in failed: %s", outcome.Message)
	}

	session := a.Session()
	fmt.Fprintf(out, "✓ %s\n", outcome.Message)
	fmt.Fprintf(out, "  User: %s (%s)\n", session.UserEmail, session.UserID)
	return nil
}

// lastEmail is the prompt default, empty when nothing is remembered
func lastEmail() string {
	f, err := prefs.Default()
	if err != nil {
		return ""
	}
	p, err := f.Load()
	if err != nil {
		return ""
	}
	return p.LastEmail
}

// rememberEmail prefills the next interactive sign-in
func rememberEmail(a *app.App, email string) {
	f, err := prefs.Default()
	if err == nil {
		err = f.RecordSignIn(email, time.Now())
	}
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to save sign-in preferences")
	}
}
