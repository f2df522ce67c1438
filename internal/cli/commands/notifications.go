package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/appshell-dev/appshell/internal/app"
	"github.com/appshell-dev/appshell/internal/persist"
)

// NewNotificationsCmd creates the notifications command
func NewNotificationsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List recent notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return listNotifications(ctx, a, cmd.OutOrStdout(), limit)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of notifications to show")

	return cmd
}

func listNotifications(ctx context.Context, a *app.App, out io.Writer, limit int) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}

	records, err := persist.ListNotifications(ctx, a.DB, limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No notifications")
		return nil
	}

	for _, r := range records {
		fmt.Fprintf(out, "%s  %s\n", r.CreatedAt.Local().Format(time.DateTime), r.Message)
	}
	return nil
}
