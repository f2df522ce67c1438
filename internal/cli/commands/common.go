package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/appshell-dev/appshell/internal/app"
	"github.com/appshell-dev/appshell/internal/config"
	"github.com/appshell-dev/appshell/internal/logger"
)

// newApp builds and starts the runtime for a command. Replaced in tests.
var newApp = func(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout is reserved for command output
	logger.InitWriter(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	a, err := app.New(cfg, logger.GetLogger())
	if err != nil {
		return nil, err
	}

	if err := a.Start(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// withApp runs fn against a started runtime and closes it afterwards
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
