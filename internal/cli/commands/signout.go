package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/appshell-dev/appshell/internal/app"
)

// NewSignOutCmd creates the signout command
func NewSignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out of the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return runSignOut(ctx, a, cmd.OutOrStdout())
			})
		},
	}
}

// runSignOut signs out from any status, so a failed sign-in can be cleared
func runSignOut(ctx context.Context, a *app.App, out io.Writer) error {
	outcome, err := a.Coordinator.SignOut(ctx)
	if err != nil {
		return err
	}
	if outcome.Superseded {
		fmt.Fprintln(out, "Sign out handled by a newer request")
		return nil
	}

	fmt.Fprintf(out, "✓ %s\n", outcome.Message)
	return nil
}
