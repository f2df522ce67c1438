package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/appshell-dev/appshell/internal/app"
	"github.com/appshell-dev/appshell/internal/menu"
)

// chooser picks one of the menu items
type chooser func(items []menu.Item) (menu.ItemID, error)

// NewMenuCmd creates the menu command
func NewMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Open the side menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return runMenu(ctx, a, cmd.OutOrStdout(), promptMenu)
			})
		},
	}
}

func runMenu(ctx context.Context, a *app.App, out io.Writer, choose chooser) error {
	a.Menu.Open()

	id, err := choose(a.Menu.Items())
	if err != nil {
		a.Menu.Close()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		return err
	}

	item, err := a.Menu.Select(id)
	if err != nil {
		return err
	}

	switch item.ID {
	case menu.ItemHome:
		fmt.Fprintln(out, "Home")
		printStatus(a, out)
	case menu.ItemSession:
		printStatus(a, out)
	case menu.ItemNotifications:
		return listNotifications(ctx, a, out, 10)
	case menu.ItemSignIn:
		req, err := resolveCredentials("", "")
		if err != nil {
			return err
		}
		if err := runSignIn(ctx, a, out, req); err != nil {
			return err
		}
		rememberEmail(a, req.Email)
	case menu.ItemSignOut:
		return runSignOut(ctx, a, out)
	}
	return nil
}

func promptMenu(items []menu.Item) (menu.ItemID, error) {
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Menu",
		Items:     items,
		Templates: templates,
		Size:      len(items),
	}

	index, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return items[index].ID, nil
}
