package main

import (
	"context"
	"fmt"
	"os"

	"github.com/appshell-dev/appshell/internal/app"
	"github.com/appshell-dev/appshell/internal/config"
	"github.com/appshell-dev/appshell/internal/logger"
	"github.com/appshell-dev/appshell/internal/server"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create app")
	}

	if err := a.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start app")
	}

	// faults are answered per request with 502, drain the channel
	go func() {
		for err := range a.Coordinator.Faults() {
			log.Debug().Err(err).Msg("Auth flow fault drained")
		}
	}()

	log.Info().Str("version", version).Msg("Starting appshell server...")

	// Start HTTP server (this blocks)
	srv := server.New(a, version)
	if err := srv.Start(); err != nil {
		log.Error().Err(err).Msg("Server failed")
	}

	if err := a.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing app")
	}
	log.Info().Msg("Database closed successfully")
}
