package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/appshell-dev/appshell/internal/app"
	"github.com/appshell-dev/appshell/internal/store"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				printStatus(a, cmd.OutOrStdout())
				return nil
			})
		},
	}
}

func printStatus(a *app.App, out io.Writer) {
	session := a.Session()

	fmt.Fprintf(out, "Status: %s\n", session.Status)
	if session.Status == store.StatusAuthenticated {
		fmt.Fprintf(out, "User:   %s (%s)\n", session.UserEmail, session.UserID)
	}

	menu := "closed"
	if a.Menu.IsOpen() {
		menu = "open"
	}
	fmt.Fprintf(out, "Menu:   %s\n", menu)
}
